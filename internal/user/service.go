package user

import (
	"context"
	"fmt"
)

// Source is satisfied by expense.Service.
type Source interface {
	Users(ctx context.Context) ([]*User, error)
}

type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{
		source: source,
	}
}

func (s *Service) GetUsers(ctx context.Context) ([]*User, error) {
	users, err := s.source.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

func (s *Service) GetReviewers(ctx context.Context) ([]*User, error) {
	users, err := s.GetUsers(ctx)
	if err != nil {
		return nil, err
	}
	return Reviewers(users), nil
}

package expense

import (
	"context"

	errors "github.com/frahmantamala/expense-assistant/internal"
)

// checkCategory rejects ids the store would refuse with a foreign-key violation.
func (s *Service) checkCategory(ctx context.Context, id int64) error {
	categories, err := s.Categories(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		if c.ID == id && c.IsActive {
			return nil
		}
	}
	return errors.NewValidationFieldError("categoryId", "Please select a valid category", errors.ErrCodeInvalidCategory)
}

func (s *Service) findUser(ctx context.Context, id int64) (*User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id && u.IsActive {
			return u, nil
		}
	}
	return nil, nil
}

func (s *Service) checkOwner(ctx context.Context, id int64) error {
	u, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return errors.NewValidationFieldError("userId", "Please select a valid user", errors.ErrCodeInvalidUser)
	}
	return nil
}

// checkReviewer requires an active manager.
func (s *Service) checkReviewer(ctx context.Context, id int64) error {
	u, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}
	if u == nil || !u.IsManager() {
		return errors.NewValidationFieldError("reviewedBy", "Please select a reviewer", errors.ErrCodeInvalidReviewer)
	}
	return nil
}

package category

import (
	"context"
	"log/slog"
)

// Source is satisfied by expense.Service, so lookups share its store fallback.
type Source interface {
	Categories(ctx context.Context) ([]*Category, error)
}

type Service struct {
	source Source
	logger *slog.Logger
}

func NewService(source Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source: source,
		logger: logger,
	}
}

func (s *Service) GetActiveCategories(ctx context.Context) ([]*Category, error) {
	categories, err := s.source.Categories(ctx)
	if err != nil {
		s.logger.Error("failed to get categories", "error", err)
		return nil, err
	}
	active := Active(categories)
	s.logger.Debug("retrieved categories", "count", len(active))
	return active, nil
}

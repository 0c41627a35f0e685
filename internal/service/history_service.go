package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vbonduro/nutriscan/internal/domain"
)

// historyRepository is the subset of store.HistoryStore that HistoryService requires.
type historyRepository interface {
	Save(ctx context.Context, record *domain.AnalysisRecord) (*domain.HistoryItem, error)
	List(ctx context.Context) ([]*domain.HistoryItem, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

type HistoryService struct {
	store  historyRepository
	logger *slog.Logger
}

func NewHistoryService(store historyRepository, logger *slog.Logger) *HistoryService {
	return &HistoryService{store: store, logger: logger}
}

// Save stores a copy of record as the newest history item.
func (s *HistoryService) Save(ctx context.Context, record *domain.AnalysisRecord) (*domain.HistoryItem, error) {
	if record == nil || record.DishName == "" {
		return nil, domain.NewValidationError("Nothing to save.")
	}
	item, err := s.store.Save(ctx, record)
	if err != nil {
		s.logger.Error("failed to save history", "error", err)
		return nil, err
	}
	s.logger.Info("history saved", "id", item.ID, "dish", record.DishName)
	return item, nil
}

func (s *HistoryService) List(ctx context.Context) ([]*domain.HistoryItem, error) {
	return s.store.List(ctx)
}

func (s *HistoryService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.NewValidationError("History id is required.")
	}
	err := s.store.Delete(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("failed to delete history item", "id", id, "error", err)
	}
	return err
}

func (s *HistoryService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error("failed to clear history", "error", err)
		return err
	}
	s.logger.Info("history cleared")
	return nil
}

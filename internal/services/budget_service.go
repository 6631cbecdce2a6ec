// Package services orchestrates budget writes across the store and the
// budget-changed event stream.
package services

import (
	"context"
	"fmt"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/metrics"
	"bilancio/internal/storage"
)

// Publisher announces a new budget version to the snapshot worker.
type Publisher interface {
	PublishBudgetChanged(ctx context.Context, budgetID string, version int64) error
}

// BudgetService saves budgets locally first, then publishes a change event.
// A failed publish never fails the write: the worker's sweep catches up.
type BudgetService struct {
	store     storage.BudgetStore
	publisher Publisher
	logger    *applog.Logger
}

// NewBudgetService wires a store to an optional publisher.
func NewBudgetService(store storage.BudgetStore, publisher Publisher, logger *applog.Logger) *BudgetService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &BudgetService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentStorage),
	}
}

// Create stores a new, empty budget.
func (s *BudgetService) Create(ctx context.Context, name string) (core.Budget, error) {
	b, err := s.store.CreateBudget(ctx, name)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	s.logger.InfoContext(ctx, "Budget created", applog.FieldBudgetID, b.ID, applog.FieldOperation, applog.OpCreate)
	return b, nil
}

// SaveEntries replaces both entry lists and announces the new version.
func (s *BudgetService) SaveEntries(ctx context.Context, id string, income, expense []core.RawEntry) (core.Budget, error) {
	b, err := s.store.ReplaceEntries(ctx, id, income, expense)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save entries: %w", err)
	}

	applog.NewStructuredLogger(s.logger).LogBudgetSaved(ctx, b.ID, b.Version, len(b.Income), len(b.Expense))

	s.publish(ctx, b)
	return b, nil
}

// Delete removes a budget and its snapshot.
func (s *BudgetService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteBudget(ctx, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.logger.InfoContext(ctx, "Budget deleted", applog.FieldBudgetID, id, applog.FieldOperation, applog.OpDelete)
	return nil
}

func (s *BudgetService) publish(ctx context.Context, b core.Budget) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping budget event", applog.FieldBudgetID, b.ID)
		return
	}
	if err := s.publisher.PublishBudgetChanged(ctx, b.ID, b.Version); err != nil {
		metrics.MessagesPublished.WithLabelValues(metrics.ResultError).Inc()
		s.logger.WarnContext(ctx, "Failed to publish budget change",
			applog.FieldBudgetID, b.ID,
			applog.FieldVersion, b.Version,
			applog.FieldOperation, applog.OpPublish,
			applog.FieldError, err)
		return
	}
	metrics.MessagesPublished.WithLabelValues(metrics.ResultOK).Inc()
}

// Package memory is the in-process budget store used by default and in tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

type Store struct {
	mu        sync.Mutex
	budgets   map[string]core.Budget
	snapshots map[string]storage.Snapshot
	now       func() time.Time
	newID     func() string
}

func New() *Store {
	return &Store{
		budgets:   map[string]core.Budget{},
		snapshots: map[string]storage.Snapshot{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateBudget(_ context.Context, name string) (core.Budget, error) {
	now := s.now().UTC()
	b := core.Budget{ID: s.newID(), Name: strings.TrimSpace(name), CreatedAt: now, UpdatedAt: now}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) GetBudget(_ context.Context, id string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, storage.ErrNotFound)
	}
	return clone(b), nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		out = append(out, clone(b))
	}
	slices.SortFunc(out, func(a, b core.Budget) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) ReplaceEntries(_ context.Context, id string, income, expense []core.RawEntry) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, storage.ErrNotFound)
	}
	b.Income = storage.PrepareEntries(income, s.newID)
	b.Expense = storage.PrepareEntries(expense, s.newID)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	b.Version++
	b.UpdatedAt = s.now().UTC()
	s.budgets[id] = b
	return clone(b), nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.budgets[id]; !ok {
		return fmt.Errorf("budget %s: %w", id, storage.ErrNotFound)
	}
	delete(s.budgets, id)
	delete(s.snapshots, id)
	return nil
}

func (s *Store) SaveSnapshot(_ context.Context, snap storage.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.budgets[snap.BudgetID]; !ok {
		return fmt.Errorf("snapshot for budget %s: %w", snap.BudgetID, storage.ErrNotFound)
	}
	if prev, ok := s.snapshots[snap.BudgetID]; ok && prev.Version > snap.Version {
		return fmt.Errorf("snapshot %s v%d: %w", snap.BudgetID, snap.Version, storage.ErrStaleSnapshot)
	}
	if snap.RenderedAt.IsZero() {
		snap.RenderedAt = s.now()
	}
	snap.RenderedAt = snap.RenderedAt.UTC()
	snap.SVG = slices.Clone(snap.SVG)
	s.snapshots[snap.BudgetID] = snap
	return nil
}

func (s *Store) GetSnapshot(_ context.Context, budgetID string) (storage.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[budgetID]
	if !ok {
		return storage.Snapshot{}, fmt.Errorf("snapshot %s: %w", budgetID, storage.ErrNotFound)
	}
	snap.SVG = slices.Clone(snap.SVG)
	return snap, nil
}

func (s *Store) StaleSnapshots(_ context.Context, limit int) ([]storage.BudgetRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []core.Budget
	for id, b := range s.budgets {
		if snap, ok := s.snapshots[id]; ok && snap.Version >= b.Version {
			continue
		}
		stale = append(stale, b)
	}
	slices.SortFunc(stale, func(a, b core.Budget) int {
		if c := a.UpdatedAt.Compare(b.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}

	refs := make([]storage.BudgetRef, 0, len(stale))
	for _, b := range stale {
		refs = append(refs, storage.BudgetRef{ID: b.ID, Version: b.Version})
	}
	return refs, nil
}

func clone(b core.Budget) core.Budget {
	b.Income = slices.Clone(b.Income)
	b.Expense = slices.Clone(b.Expense)
	return b
}

// Package storage persists budgets and the SVG snapshots rendered from them.
package storage

import (
	"context"
	"errors"
	"time"

	"bilancio/internal/core"
)

var (
	// ErrNotFound is returned when a budget or snapshot does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrStaleSnapshot is returned when a snapshot older than the stored one
	// is saved.
	ErrStaleSnapshot = errors.New("storage: stale snapshot")
)

// BudgetStore keeps budgets and their entries. Every ReplaceEntries call bumps
// the budget version by one.
type BudgetStore interface {
	CreateBudget(ctx context.Context, name string) (core.Budget, error)
	GetBudget(ctx context.Context, id string) (core.Budget, error)
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	ReplaceEntries(ctx context.Context, id string, income, expense []core.RawEntry) (core.Budget, error)
	DeleteBudget(ctx context.Context, id string) error
}

// Snapshot is a pre-rendered diagram of one budget version.
type Snapshot struct {
	BudgetID   string
	Version    int64
	Width      int
	Height     int
	SVG        []byte
	RenderedAt time.Time
}

// BudgetRef identifies one version of a budget.
type BudgetRef struct {
	ID      string
	Version int64
}

// SnapshotStore keeps the latest snapshot per budget.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s Snapshot) error
	GetSnapshot(ctx context.Context, budgetID string) (Snapshot, error)
	// StaleSnapshots lists budgets whose snapshot is missing or older than
	// the budget, least recently updated first.
	StaleSnapshots(ctx context.Context, limit int) ([]BudgetRef, error)
}

// Store is everything a backend provides.
type Store interface {
	BudgetStore
	SnapshotStore
	Close() error
}

// PrepareEntries gives every row without an id a fresh one so the editor can
// track rows across saves.
func PrepareEntries(rows []core.RawEntry, newID func() string) []core.RawEntry {
	out := make([]core.RawEntry, 0, len(rows))
	for _, r := range rows {
		if r.ID == "" {
			r.ID = newID()
		}
		out = append(out, r)
	}
	return out
}

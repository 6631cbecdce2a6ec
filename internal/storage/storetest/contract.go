// Package storetest holds the behaviour every storage.Store must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// Run exercises a fresh store returned by open for every subtest.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Run("create and get", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		b, err := s.CreateBudget(ctx, "  March  ")
		require.NoError(t, err)
		assert.NotEmpty(t, b.ID)
		assert.Equal(t, "March", b.Name)
		assert.Zero(t, b.Version)

		got, err := s.GetBudget(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)
		assert.Equal(t, "March", got.Name)
		assert.Empty(t, got.Income)
		assert.Empty(t, got.Expense)
	})

	t.Run("create rejects empty name", func(t *testing.T) {
		s := open(t)
		_, err := s.CreateBudget(context.Background(), "   ")
		assert.ErrorIs(t, err, core.ErrEmptyName)
	})

	t.Run("missing budget", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		_, err := s.GetBudget(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.ReplaceEntries(ctx, "nope", nil, nil)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, s.DeleteBudget(ctx, "nope"), storage.ErrNotFound)
		_, err = s.GetSnapshot(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, s.SaveSnapshot(ctx, storage.Snapshot{BudgetID: "nope", SVG: []byte("<svg/>")}), storage.ErrNotFound)
	})

	t.Run("replace entries keeps order and bumps version", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		b, err := s.CreateBudget(ctx, "Home")
		require.NoError(t, err)

		income := []core.RawEntry{{Label: "Salary", Value: "2000"}, {ID: "fixed", Label: "Bonus", Value: "oops"}}
		expense := []core.RawEntry{{Label: "Rent", Value: "1200"}, {Label: "Food", Value: "400,50"}}

		updated, err := s.ReplaceEntries(ctx, b.ID, income, expense)
		require.NoError(t, err)
		assert.Equal(t, int64(1), updated.Version)
		require.Len(t, updated.Income, 2)
		assert.NotEmpty(t, updated.Income[0].ID)
		assert.Equal(t, "fixed", updated.Income[1].ID)

		got, err := s.GetBudget(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Version)
		assert.Equal(t, updated.Income, got.Income)
		assert.Equal(t, updated.Expense, got.Expense)
		assert.Equal(t, "oops", got.Income[1].Value)
		assert.Equal(t, "400,50", got.Expense[1].Value)

		again, err := s.ReplaceEntries(ctx, b.ID, income[:1], nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), again.Version)

		got, err = s.GetBudget(ctx, b.ID)
		require.NoError(t, err)
		assert.Len(t, got.Income, 1)
		assert.Empty(t, got.Expense)
	})

	t.Run("replace entries rejects too many rows", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		b, err := s.CreateBudget(ctx, "Big")
		require.NoError(t, err)

		rows := make([]core.RawEntry, core.MaxEntriesPerSide+1)
		_, err = s.ReplaceEntries(ctx, b.ID, rows, nil)
		assert.ErrorIs(t, err, core.ErrTooManyItems)

		got, err := s.GetBudget(ctx, b.ID)
		require.NoError(t, err)
		assert.Zero(t, got.Version)
	})

	t.Run("list budgets", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		a, err := s.CreateBudget(ctx, "A")
		require.NoError(t, err)
		b, err := s.CreateBudget(ctx, "B")
		require.NoError(t, err)
		_, err = s.ReplaceEntries(ctx, a.ID, []core.RawEntry{{Label: "Salary", Value: "1"}}, nil)
		require.NoError(t, err)

		list, err := s.ListBudgets(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		ids := []string{list[0].ID, list[1].ID}
		assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
		for _, got := range list {
			if got.ID == a.ID {
				assert.Len(t, got.Income, 1)
			}
		}
	})

	t.Run("delete removes budget and snapshot", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		b, err := s.CreateBudget(ctx, "Gone")
		require.NoError(t, err)
		require.NoError(t, s.SaveSnapshot(ctx, storage.Snapshot{BudgetID: b.ID, SVG: []byte("<svg/>")}))

		require.NoError(t, s.DeleteBudget(ctx, b.ID))
		_, err = s.GetBudget(ctx, b.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.GetSnapshot(ctx, b.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("snapshots", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		b, err := s.CreateBudget(ctx, "Snap")
		require.NoError(t, err)

		stale, err := s.StaleSnapshots(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []storage.BudgetRef{{ID: b.ID, Version: 0}}, stale)

		_, err = s.ReplaceEntries(ctx, b.ID, []core.RawEntry{{Label: "Salary", Value: "10"}}, nil)
		require.NoError(t, err)
		_, err = s.ReplaceEntries(ctx, b.ID, []core.RawEntry{{Label: "Salary", Value: "20"}}, nil)
		require.NoError(t, err)

		at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		require.NoError(t, s.SaveSnapshot(ctx, storage.Snapshot{
			BudgetID: b.ID, Version: 2, Width: 960, Height: 540, SVG: []byte("<svg>v2</svg>"), RenderedAt: at,
		}))

		got, err := s.GetSnapshot(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
		assert.Equal(t, 960, got.Width)
		assert.Equal(t, "<svg>v2</svg>", string(got.SVG))
		assert.True(t, at.Equal(got.RenderedAt))

		err = s.SaveSnapshot(ctx, storage.Snapshot{BudgetID: b.ID, Version: 1, SVG: []byte("<svg>v1</svg>")})
		assert.ErrorIs(t, err, storage.ErrStaleSnapshot)
		got, err = s.GetSnapshot(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "<svg>v2</svg>", string(got.SVG))

		stale, err = s.StaleSnapshots(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, stale)
	})
}

package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/flow"
	"bilancio/internal/storage"
	"bilancio/internal/storage/memory"
)

var renderedAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newWorker(t *testing.T, store storage.Store) *SnapshotWorker {
	t.Helper()
	w := NewSnapshotWorker(store, Options{Params: flow.DefaultParams(), Width: 640, Height: 360})
	w.now = func() time.Time { return renderedAt }
	return w
}

func seed(t *testing.T, store storage.Store, name string, income, expense []core.RawEntry) core.Budget {
	t.Helper()
	ctx := context.Background()
	b, err := store.CreateBudget(ctx, name)
	require.NoError(t, err)
	b, err = store.ReplaceEntries(ctx, b.ID, income, expense)
	require.NoError(t, err)
	return b
}

func TestHandleBudgetChanged_SavesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := newWorker(t, store)
	b := seed(t, store, "March",
		[]core.RawEntry{{Label: "Salary", Value: "2000"}},
		[]core.RawEntry{{Label: "Rent", Value: "1200"}})

	require.NoError(t, w.HandleBudgetChanged(ctx, amqp.NewBudgetChangedMessage(b.ID, b.Version)))

	snap, err := store.GetSnapshot(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Version, snap.Version)
	assert.Equal(t, 640, snap.Width)
	assert.Equal(t, 360, snap.Height)
	assert.Equal(t, renderedAt, snap.RenderedAt)
	assert.Contains(t, string(snap.SVG), "Salary")
	assert.Contains(t, string(snap.SVG), "Savings")
}

func TestHandleBudgetChanged_SkipsCoveredVersion(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := newWorker(t, store)
	b := seed(t, store, "March", []core.RawEntry{{Label: "Salary", Value: "2000"}}, nil)
	require.NoError(t, w.HandleBudgetChanged(ctx, amqp.NewBudgetChangedMessage(b.ID, b.Version)))

	w.now = func() time.Time { return renderedAt.Add(time.Hour) }
	require.NoError(t, w.HandleBudgetChanged(ctx, amqp.NewBudgetChangedMessage(b.ID, b.Version)))

	snap, err := store.GetSnapshot(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, renderedAt, snap.RenderedAt, "an old message must not re-render")
}

func TestHandleBudgetChanged_RendersLatestVersion(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := newWorker(t, store)
	b := seed(t, store, "March", []core.RawEntry{{Label: "Salary", Value: "2000"}}, nil)
	b, err := store.ReplaceEntries(ctx, b.ID, []core.RawEntry{{Label: "Bonus", Value: "300"}}, nil)
	require.NoError(t, err)

	// The message for version 1 arrives after version 2 was saved.
	require.NoError(t, w.HandleBudgetChanged(ctx, amqp.NewBudgetChangedMessage(b.ID, 1)))

	snap, err := store.GetSnapshot(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Version)
	assert.Contains(t, string(snap.SVG), "Bonus")
	assert.NotContains(t, string(snap.SVG), "Salary")
}

func TestHandleBudgetChanged_DeletedBudget(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := newWorker(t, store)

	require.NoError(t, w.HandleBudgetChanged(ctx, amqp.NewBudgetChangedMessage("gone", 3)))

	_, err := store.GetSnapshot(ctx, "gone")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSnapshot_EmptyBudget(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := newWorker(t, store)
	b := seed(t, store, "Empty", []core.RawEntry{{Label: "Typo", Value: "12a"}}, nil)

	outcome, err := w.Snapshot(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, outcome)

	snap, err := store.GetSnapshot(ctx, b.ID)
	require.NoError(t, err)
	assert.Contains(t, string(snap.SVG), flow.EmptyMessage)
}

func TestProcessStale(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := newWorker(t, store)
	fresh := seed(t, store, "Fresh", []core.RawEntry{{Label: "Salary", Value: "10"}}, nil)
	seed(t, store, "Stale", nil, []core.RawEntry{{Label: "Rent", Value: "5"}})
	_, err := w.Snapshot(ctx, fresh.ID)
	require.NoError(t, err)

	saved, err := w.ProcessStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	refs, err := store.StaleSnapshots(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, refs)

	saved, err = w.ProcessStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, saved)
}

type failingStore struct {
	storage.Store
	err error
}

func (f failingStore) GetSnapshot(context.Context, string) (storage.Snapshot, error) {
	return storage.Snapshot{}, f.err
}

func (f failingStore) StaleSnapshots(context.Context, int) ([]storage.BudgetRef, error) {
	return nil, f.err
}

func TestSnapshotWorker_StoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk I/O error")
	w := newWorker(t, failingStore{Store: memory.New(), err: boom})

	err := w.HandleBudgetChanged(ctx, amqp.NewBudgetChangedMessage("b1", 1))
	assert.ErrorIs(t, err, boom)

	_, err = w.ProcessStale(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestRunSweep_StopsOnCancel(t *testing.T) {
	store := memory.New()
	w := newWorker(t, store)
	b := seed(t, store, "March", []core.RawEntry{{Label: "Salary", Value: "2000"}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.RunSweep(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool {
		_, err := store.GetSnapshot(context.Background(), b.ID)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RunSweep did not return after cancel")
	}
}

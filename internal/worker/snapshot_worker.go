// Package worker pre-renders budget diagrams in the background.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/flow"
	applog "bilancio/internal/log"
	"bilancio/internal/metrics"
	"bilancio/internal/render"
	"bilancio/internal/storage"
)

// Snapshot job outcomes.
const (
	OutcomeSaved   = "saved"
	OutcomeStale   = "stale"
	OutcomeMissing = "missing"
	OutcomeError   = "error"
)

// SnapshotWorker renders the latest version of a budget to SVG and stores it.
type SnapshotWorker struct {
	store     storage.Store
	params    flow.Params
	width     int
	height    int
	batchSize int
	logger    *applog.Logger
	now       func() time.Time
}

// Options configures a SnapshotWorker.
type Options struct {
	Params    flow.Params
	Width     int
	Height    int
	BatchSize int
	Logger    *applog.Logger
}

func NewSnapshotWorker(store storage.Store, opts Options) *SnapshotWorker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	return &SnapshotWorker{
		store:     store,
		params:    opts.Params,
		width:     opts.Width,
		height:    opts.Height,
		batchSize: opts.BatchSize,
		logger:    opts.Logger.WithComponent(applog.ComponentWorker),
		now:       time.Now,
	}
}

// HandleBudgetChanged is the AMQP handler. Messages for deleted budgets and
// versions already covered by a snapshot are acknowledged without work.
func (w *SnapshotWorker) HandleBudgetChanged(ctx context.Context, msg *amqp.BudgetChangedMessage) error {
	snap, err := w.store.GetSnapshot(ctx, msg.BudgetID)
	switch {
	case err == nil && snap.Version >= msg.Version:
		metrics.SnapshotsTotal.WithLabelValues(OutcomeStale).Inc()
		w.logger.DebugContext(ctx, "Snapshot already up to date",
			applog.FieldBudgetID, msg.BudgetID,
			applog.FieldVersion, msg.Version,
			"snapshot_version", snap.Version)
		return nil
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("get snapshot %s: %w", msg.BudgetID, err)
	}

	_, err = w.Snapshot(ctx, msg.BudgetID)
	return err
}

// Snapshot renders the current version of a budget and stores it. It returns
// the outcome label.
func (w *SnapshotWorker) Snapshot(ctx context.Context, budgetID string) (string, error) {
	b, err := w.store.GetBudget(ctx, budgetID)
	if errors.Is(err, storage.ErrNotFound) {
		metrics.SnapshotsTotal.WithLabelValues(OutcomeMissing).Inc()
		w.logger.InfoContext(ctx, "Budget gone, skipping snapshot", applog.FieldBudgetID, budgetID)
		return OutcomeMissing, nil
	}
	if err != nil {
		metrics.SnapshotsTotal.WithLabelValues(OutcomeError).Inc()
		return OutcomeError, fmt.Errorf("get budget %s: %w", budgetID, err)
	}

	svg, err := w.render(b)
	if err != nil {
		metrics.SnapshotsTotal.WithLabelValues(OutcomeError).Inc()
		return OutcomeError, fmt.Errorf("render budget %s: %w", budgetID, err)
	}

	err = w.store.SaveSnapshot(ctx, storage.Snapshot{
		BudgetID:   b.ID,
		Version:    b.Version,
		Width:      w.width,
		Height:     w.height,
		SVG:        svg,
		RenderedAt: w.now(),
	})
	switch {
	case errors.Is(err, storage.ErrStaleSnapshot):
		metrics.SnapshotsTotal.WithLabelValues(OutcomeStale).Inc()
		return OutcomeStale, nil
	case errors.Is(err, storage.ErrNotFound):
		metrics.SnapshotsTotal.WithLabelValues(OutcomeMissing).Inc()
		return OutcomeMissing, nil
	case err != nil:
		metrics.SnapshotsTotal.WithLabelValues(OutcomeError).Inc()
		return OutcomeError, fmt.Errorf("save snapshot %s: %w", budgetID, err)
	}

	metrics.SnapshotsTotal.WithLabelValues(OutcomeSaved).Inc()
	fields := applog.NewFields().WithBudget(b.ID, b.Version, len(b.Income), len(b.Expense))
	fields[applog.FieldBytes] = len(svg)
	w.logger.InfoContext(ctx, "Snapshot saved", fields.ToSlice()...)
	return OutcomeSaved, nil
}

func (w *SnapshotWorker) render(b core.Budget) ([]byte, error) {
	start := time.Now()
	width, height := float64(w.width), float64(w.height)

	d, err := flow.Render(b.Income, b.Expense, width, height, w.params)
	if errors.Is(err, flow.ErrEmpty) {
		metrics.ObserveRender(metrics.SourceWorker, metrics.ResultEmpty, start)
		return render.Bytes(flow.EmptyScene(width, height, w.params))
	}
	if err != nil {
		metrics.ObserveRender(metrics.SourceWorker, metrics.ResultError, start)
		return nil, err
	}
	svg, err := render.Bytes(d.Scene())
	if err != nil {
		metrics.ObserveRender(metrics.SourceWorker, metrics.ResultError, start)
		return nil, err
	}
	metrics.ObserveRender(metrics.SourceWorker, metrics.ResultOK, start)
	return svg, nil
}

// ProcessStale re-renders budgets whose snapshot is missing or behind. It
// covers messages that were lost while the worker was down and returns how
// many snapshots were saved.
func (w *SnapshotWorker) ProcessStale(ctx context.Context) (int, error) {
	refs, err := w.store.StaleSnapshots(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale snapshots: %w", err)
	}
	if len(refs) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing stale snapshots", "count", len(refs))

	saved := 0
	for _, ref := range refs {
		if ctx.Err() != nil {
			return saved, ctx.Err()
		}
		outcome, err := w.Snapshot(ctx, ref.ID)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to refresh snapshot",
				applog.FieldBudgetID, ref.ID,
				applog.FieldVersion, ref.Version,
				applog.FieldError, err)
			continue
		}
		if outcome == OutcomeSaved {
			saved++
		}
	}
	return saved, nil
}

// RunSweep calls ProcessStale every interval until ctx is done.
func (w *SnapshotWorker) RunSweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.ProcessStale(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic snapshot sweep failed", applog.FieldError, err)
			}
		}
	}
}

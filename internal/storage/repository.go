package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable Store.
type SQLiteRepository struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// NewSQLiteRepository opens (and migrates) the database at dbPath.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now, newID: uuid.NewString}, nil
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection; used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, name string) (core.Budget, error) {
	now := r.now().UTC()
	b := core.Budget{
		ID:        r.newID(),
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, name, version, created_at, updated_at) VALUES (?, ?, 0, ?, ?)`,
		b.ID, b.Name, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget created", "component", "storage", "budget_id", b.ID, "name", b.Name)
	return b, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, version, created_at, updated_at FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %s: %w", id, err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT budget_id, side, entry_id, label, value FROM entries WHERE budget_id = ? ORDER BY side, position`, id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("get entries %s: %w", id, err)
	}
	byBudget, err := scanEntries(rows)
	if err != nil {
		return core.Budget{}, fmt.Errorf("get entries %s: %w", id, err)
	}
	e := byBudget[id]
	b.Income, b.Expense = e.income, e.expense
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, version, created_at, updated_at FROM budgets ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	entryRows, err := r.db.QueryContext(ctx,
		`SELECT budget_id, side, entry_id, label, value FROM entries ORDER BY budget_id, side, position`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	byBudget, err := scanEntries(entryRows)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	for i := range budgets {
		e := byBudget[budgets[i].ID]
		budgets[i].Income, budgets[i].Expense = e.income, e.expense
	}
	return budgets, nil
}

// ReplaceEntries swaps both entry lists in one transaction and bumps the
// version.
func (r *SQLiteRepository) ReplaceEntries(ctx context.Context, id string, income, expense []core.RawEntry) (core.Budget, error) {
	b, err := r.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	b.Income = PrepareEntries(income, r.newID)
	b.Expense = PrepareEntries(expense, r.newID)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Budget{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE budget_id = ?`, id); err != nil {
		return core.Budget{}, fmt.Errorf("clear entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (budget_id, side, position, entry_id, label, value) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return core.Budget{}, fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for _, side := range []struct {
		name core.Side
		rows []core.RawEntry
	}{{core.SideIncome, b.Income}, {core.SideExpense, b.Expense}} {
		for pos, e := range side.rows {
			if _, err := stmt.ExecContext(ctx, id, string(side.name), pos, e.ID, e.Label, e.Value); err != nil {
				return core.Budget{}, fmt.Errorf("insert %s entry %d: %w", side.name, pos, err)
			}
		}
	}

	now := r.now().UTC()
	err = tx.QueryRowContext(ctx,
		`UPDATE budgets SET version = version + 1, updated_at = ? WHERE id = ? RETURNING version`,
		now.UnixMilli(), id).Scan(&b.Version)
	if err != nil {
		return core.Budget{}, fmt.Errorf("bump budget version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Budget{}, fmt.Errorf("commit entries: %w", err)
	}

	b.UpdatedAt = time.UnixMilli(now.UnixMilli()).UTC()
	return b, nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM snapshots WHERE budget_id = ?`,
		`DELETE FROM entries WHERE budget_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete budget %s: %w", id, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("budget %s: %w", id, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// SaveSnapshot upserts the snapshot unless a newer version is already stored.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, s Snapshot) error {
	if s.RenderedAt.IsZero() {
		s.RenderedAt = r.now()
	}
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM budgets WHERE id = ?`, s.BudgetID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("snapshot for budget %s: %w", s.BudgetID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", s.BudgetID, err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (budget_id, version, width, height, svg, rendered_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(budget_id) DO UPDATE SET
			version = excluded.version,
			width = excluded.width,
			height = excluded.height,
			svg = excluded.svg,
			rendered_at = excluded.rendered_at
		WHERE excluded.version >= snapshots.version`,
		s.BudgetID, s.Version, s.Width, s.Height, s.SVG, s.RenderedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", s.BudgetID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("snapshot %s v%d: %w", s.BudgetID, s.Version, ErrStaleSnapshot)
	}
	return nil
}

func (r *SQLiteRepository) GetSnapshot(ctx context.Context, budgetID string) (Snapshot, error) {
	var (
		s          Snapshot
		renderedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT budget_id, version, width, height, svg, rendered_at FROM snapshots WHERE budget_id = ?`, budgetID).
		Scan(&s.BudgetID, &s.Version, &s.Width, &s.Height, &s.SVG, &renderedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", budgetID, ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get snapshot %s: %w", budgetID, err)
	}
	s.RenderedAt = time.UnixMilli(renderedAt).UTC()
	return s, nil
}

func (r *SQLiteRepository) StaleSnapshots(ctx context.Context, limit int) ([]BudgetRef, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.version
		FROM budgets b
		LEFT JOIN snapshots s ON s.budget_id = b.id
		WHERE s.budget_id IS NULL OR s.version < b.version
		ORDER BY b.updated_at, b.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale snapshots: %w", err)
	}
	defer rows.Close()

	var refs []BudgetRef
	for rows.Next() {
		var ref BudgetRef
		if err := rows.Scan(&ref.ID, &ref.Version); err != nil {
			return nil, fmt.Errorf("scan stale snapshot: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b                    core.Budget
		createdAt, updatedAt int64
	)
	if err := s.Scan(&b.ID, &b.Name, &b.Version, &createdAt, &updatedAt); err != nil {
		return core.Budget{}, err
	}
	b.CreatedAt = time.UnixMilli(createdAt).UTC()
	b.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return b, nil
}

type sides struct {
	income, expense []core.RawEntry
}

func scanEntries(rows *sql.Rows) (map[string]sides, error) {
	defer rows.Close()

	out := map[string]sides{}
	for rows.Next() {
		var (
			budgetID, side string
			e              core.RawEntry
		)
		if err := rows.Scan(&budgetID, &side, &e.ID, &e.Label, &e.Value); err != nil {
			return nil, err
		}
		s := out[budgetID]
		if core.Side(side) == core.SideIncome {
			s.income = append(s.income, e)
		} else {
			s.expense = append(s.expense, e)
		}
		out[budgetID] = s
	}
	return out, rows.Err()
}

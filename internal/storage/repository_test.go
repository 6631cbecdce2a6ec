package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
	"bilancio/internal/storage"
	"bilancio/internal/storage/storetest"
)

func openSQLite(t *testing.T) storage.Store {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "bilancio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	storetest.Run(t, openSQLite)
}

func TestSQLiteRepository_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bilancio.db")
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	b, err := repo.CreateBudget(ctx, "Persistent")
	require.NoError(t, err)
	_, err = repo.ReplaceEntries(ctx, b.ID, []core.RawEntry{{Label: "Salary", Value: "100"}}, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// Migrations are idempotent on an existing database.
	repo, err = storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Ping(ctx))
	got, err := repo.GetBudget(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	require.Len(t, got.Income, 1)
	assert.Equal(t, "Salary", got.Income[0].Label)
}

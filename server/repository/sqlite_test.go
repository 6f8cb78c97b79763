package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ponyo877/chatrelay/server/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) usecase.Repository {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "chatrelay.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	repo := NewSQLiteRepository(db)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	testRepository(t, openTestSQLite)
}

func TestSQLiteRepository_DuplicateID(t *testing.T) {
	repo := openTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, repo.AppendMessage(ctx, msg("1", "lobby", "once", 0)))
	assert.Error(t, repo.AppendMessage(ctx, msg("1", "lobby", "twice", 0)))
}

func TestSQLiteRepository_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatrelay.db")
	ctx := context.Background()

	db, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	repo := NewSQLiteRepository(db)
	require.NoError(t, repo.AppendMessage(ctx, msg("1", "lobby", "kept", 0)))
	require.NoError(t, repo.Close())

	db, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	repo = NewSQLiteRepository(db)
	defer repo.Close()

	got, err := repo.FetchHistory(ctx, "lobby", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, texts(got))
}

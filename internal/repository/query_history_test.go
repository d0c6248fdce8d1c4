package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"presto-adapter/internal/domain"
)

func openTestRepo(t *testing.T) *QueryHistoryRepo {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewQueryHistoryRepo(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestQueryHistoryRepo_RecordAndList(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	id, err := repo.Record(ctx, domain.QueryHistoryEntry{
		SQLText:    "SELECT 1",
		Status:     domain.StateFinished,
		DurationMs: 12,
		RowCount:   1,
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	msg := "division by zero"
	_, err = repo.Record(ctx, domain.QueryHistoryEntry{
		SQLText:      "SELECT 1/0",
		Status:       domain.StateFailed,
		ErrorMessage: &msg,
		DurationMs:   3,
	})
	require.NoError(t, err)

	entries, err := repo.List(ctx, domain.QueryHistoryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "SELECT 1/0", entries[0].SQLText)
	assert.Equal(t, domain.StateFailed, entries[0].Status)
	require.NotNil(t, entries[0].ErrorMessage)
	assert.Equal(t, msg, *entries[0].ErrorMessage)

	assert.Equal(t, "SELECT 1", entries[1].SQLText)
	assert.Equal(t, domain.StateFinished, entries[1].Status)
	assert.Nil(t, entries[1].ErrorMessage)
	assert.Equal(t, int64(12), entries[1].DurationMs)
	assert.Equal(t, int64(1), entries[1].RowCount)
	assert.False(t, entries[1].CreatedAt.IsZero())
}

func TestQueryHistoryRepo_StatusFilterAndLimit(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.Record(ctx, domain.QueryHistoryEntry{SQLText: "SELECT 1", Status: domain.StateFinished})
		require.NoError(t, err)
	}
	_, err := repo.Record(ctx, domain.QueryHistoryEntry{SQLText: "SELECT bad", Status: domain.StateFailed})
	require.NoError(t, err)

	failed := domain.StateFailed
	entries, err := repo.List(ctx, domain.QueryHistoryFilter{Status: &failed})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "SELECT bad", entries[0].SQLText)

	entries, err = repo.List(ctx, domain.QueryHistoryFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	storage, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

// withClock makes the storage clock advance one second per call.
func withClock(s *SQLiteStorage) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	s.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
}

func newRun(id, job, index string) *Run {
	return &Run{ID: id, Job: job, Index: index, Mode: "full", Strategy: "keyset"}
}

func TestNewSQLiteStorage_AppliesMigrations(t *testing.T) {
	storage := setupTestDB(t)

	version, err := schemaVersion(context.Background(), storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version.String())
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, storage.db))

	var count int
	require.NoError(t, storage.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count))
	assert.Equal(t, len(AllMigrations), count)
}

func TestRollbackMigration(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, storage.db))
	version, err := schemaVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version.String())

	require.NoError(t, RollbackMigration(ctx, storage.db))
	var name string
	err = storage.db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='runs'").Scan(&name)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStartRun(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	run := newRun("r1", "food", "food_items")
	require.NoError(t, storage.StartRun(ctx, run))
	assert.Equal(t, StatusRunning, run.Status)
	assert.False(t, run.StartedAt.IsZero())

	got, err := storage.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "food", got.Job)
	assert.Equal(t, "food_items", got.Index)
	assert.Equal(t, "full", got.Mode)
	assert.Equal(t, "keyset", got.Strategy)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Nil(t, got.FinishedAt)
	assert.Equal(t, run.StartedAt.UnixMilli(), got.StartedAt.UnixMilli())

	// duplicate id
	assert.Error(t, storage.StartRun(ctx, newRun("r1", "food", "food_items")))
}

func TestStartRun_Invalid(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		run  *Run
	}{
		{"nil", nil},
		{"no id", newRun("", "food", "food_items")},
		{"no job", newRun("r1", "", "food_items")},
		{"no index", newRun("r1", "food", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, storage.StartRun(ctx, tt.run), ErrInvalidRun)
		})
	}
}

func TestRecordProgress(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, storage.StartRun(ctx, newRun("r1", "food", "food_items")))

	p := Progress{Processed: 500, Succeeded: 498, Failed: 2, Batches: 1, Token: "1040"}
	require.NoError(t, storage.RecordProgress(ctx, "r1", p))

	got, err := storage.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 500, got.Processed)
	assert.Equal(t, 498, got.Succeeded)
	assert.Equal(t, 2, got.Failed)
	assert.Equal(t, 1, got.Batches)
	assert.Equal(t, "1040", got.Token)
	assert.Equal(t, StatusRunning, got.Status)

	assert.ErrorIs(t, storage.RecordProgress(ctx, "missing", p), ErrNotFound)
}

func TestFinishRun(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, storage.StartRun(ctx, newRun("r1", "food", "food_items")))

	p := Progress{Processed: 10, Succeeded: 10, Batches: 1, Token: "10"}
	require.NoError(t, storage.FinishRun(ctx, "r1", StatusTruncated, p, errors.New("fetch failed")))

	got, err := storage.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusTruncated, got.Status)
	assert.Equal(t, "fetch failed", got.Error)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, 10, got.Succeeded)

	assert.ErrorIs(t, storage.FinishRun(ctx, "r1", StatusRunning, p, nil), ErrInvalidRun)
	assert.ErrorIs(t, storage.FinishRun(ctx, "missing", StatusCompleted, p, nil), ErrNotFound)
}

func TestGetRun_NotFound(t *testing.T) {
	storage := setupTestDB(t)

	_, err := storage.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRuns(t *testing.T) {
	storage := setupTestDB(t)
	withClock(storage)
	ctx := context.Background()

	require.NoError(t, storage.StartRun(ctx, newRun("a", "food", "food_items")))
	require.NoError(t, storage.StartRun(ctx, newRun("b", "ecom", "ecom_items")))
	require.NoError(t, storage.StartRun(ctx, newRun("c", "food", "food_items")))

	all, err := storage.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)

	food, err := storage.ListRuns(ctx, "food", 1)
	require.NoError(t, err)
	require.Len(t, food, 1)
	assert.Equal(t, "c", food[0].ID)

	none, err := storage.ListRuns(ctx, "grocery", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLastCheckpoint(t *testing.T) {
	storage := setupTestDB(t)
	withClock(storage)
	ctx := context.Background()

	cp, err := storage.LastCheckpoint(ctx, "food", "food_items")
	require.NoError(t, err)
	assert.Zero(t, cp, "no runs yet")

	require.NoError(t, storage.StartRun(ctx, newRun("r1", "food", "food_items")))
	require.NoError(t, storage.RecordProgress(ctx, "r1", Progress{Batches: 2, Token: "880"}))
	require.NoError(t, storage.FinishRun(ctx, "r1", StatusTruncated, Progress{Batches: 2, Token: "880"}, errors.New("boom")))

	cp, err = storage.LastCheckpoint(ctx, "food", "food_items")
	require.NoError(t, err)
	assert.Equal(t, Checkpoint{Token: "880", Strategy: "keyset"}, cp)

	// other index is independent
	cp, err = storage.LastCheckpoint(ctx, "food", "food_items_v2")
	require.NoError(t, err)
	assert.Zero(t, cp)

	// the strategy travels with the token
	offsetRun := newRun("r3", "food", "food_items_v2")
	offsetRun.Strategy = "offset"
	require.NoError(t, storage.StartRun(ctx, offsetRun))
	require.NoError(t, storage.RecordProgress(ctx, "r3", Progress{Batches: 1, Token: "500"}))
	cp, err = storage.LastCheckpoint(ctx, "food", "food_items_v2")
	require.NoError(t, err)
	assert.Equal(t, Checkpoint{Token: "500", Strategy: "offset"}, cp)

	require.NoError(t, storage.StartRun(ctx, newRun("r2", "food", "food_items")))
	require.NoError(t, storage.FinishRun(ctx, "r2", StatusCompleted, Progress{Batches: 3, Token: "1500"}, nil))

	cp, err = storage.LastCheckpoint(ctx, "food", "food_items")
	require.NoError(t, err)
	assert.Zero(t, cp, "completed run leaves nothing to resume")
}

func TestRunStatus_Terminal(t *testing.T) {
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusTruncated.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

package app

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/searchsync/internal/bulk/bulktest"
	"github.com/dshills/searchsync/internal/config"
	"github.com/dshills/searchsync/internal/preflight"
	"github.com/dshills/searchsync/internal/source"
	"github.com/dshills/searchsync/internal/storage"
	"github.com/dshills/searchsync/internal/syncer"
)

const schema = `
CREATE TABLE stores (id INTEGER PRIMARY KEY, name TEXT, delivery_time TEXT,
	latitude TEXT, longitude TEXT, zone_id INTEGER, status INTEGER, slug TEXT, phone TEXT,
	email TEXT, logo TEXT, cover_photo TEXT, address TEXT, active INTEGER, veg INTEGER,
	non_veg INTEGER, delivery INTEGER, take_away INTEGER, module_id INTEGER,
	order_count INTEGER, total_order INTEGER, featured INTEGER, created_at TEXT, updated_at TEXT);
CREATE TABLE categories (id INTEGER PRIMARY KEY, name TEXT, slug TEXT, image TEXT,
	parent_id INTEGER, position INTEGER, status INTEGER, featured INTEGER, module_id INTEGER,
	created_at TEXT, updated_at TEXT);
CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT, description TEXT, price REAL,
	veg INTEGER, status INTEGER, avg_rating REAL, rating_count INTEGER, image TEXT,
	available_time_starts TEXT, available_time_ends TEXT, created_at TEXT, updated_at TEXT,
	module_id INTEGER, store_id INTEGER, category_id INTEGER);
CREATE TABLE zones (id INTEGER PRIMARY KEY, coordinates TEXT, status INTEGER)`

// setup builds a catalog with three food items in module 4, one grocery item
// in module 2, and a single square zone around store 2.
func setup(t *testing.T) (*config.Config, *bulktest.Server) {
	t.Helper()
	dir := t.TempDir()
	dsn := filepath.Join(dir, "catalog.db")

	db, err := sql.Open(source.SQLiteDriverName, dsn)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range strings.Split(schema, ";") {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	_, err = db.Exec(`INSERT INTO stores (id, name, delivery_time, latitude, longitude, zone_id, status, module_id)
		VALUES
		(1, 'Spice Hub', '20-30 min', '23.0225', '72.5714', 3, 1, 4),
		(2, 'Corner Cafe', NULL, '10.5', '20.5', NULL, 1, 4),
		(3, 'Daily Mart', NULL, NULL, NULL, NULL, 1, 5)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO categories (id, name, parent_id, status, module_id)
		VALUES (10, 'Starters', 0, 1, 4), (11, 'Kebabs', 10, 1, 4)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO zones VALUES
		(9, 'POLYGON((20 10, 21 10, 21 11, 20 11, 20 10))', 1),
		(8, 'POLYGON((bad))', 1)`)
	require.NoError(t, err)
	for i, module := range []int{4, 4, 4, 2} {
		store := 1 + i%2
		_, err := db.Exec(`INSERT INTO items (id, name, description, price, veg, status, module_id, store_id)
			VALUES (?, ?, 'desc', 10, 0, 1, ?, ?)`, (i+1)*10, fmt.Sprintf("Item %d", i+1), module, store)
		require.NoError(t, err)
	}

	srv := bulktest.New(t)

	cfg := config.Default()
	cfg.Source.Driver = source.DriverSQLite
	cfg.Source.DSN = dsn
	cfg.Sink.URL = srv.URL
	cfg.Embedding.Provider = "local"
	cfg.Embedding.Dimension = 16
	cfg.Embedding.Interval = 0
	cfg.Zones.Query = "SELECT id, coordinates FROM zones WHERE status = 1"
	cfg.Ledger.Path = filepath.Join(dir, "ledger.db")
	cfg.Sync.BatchSize = 2

	food := cfg.Sync.Jobs["food"]
	food.ResolveZones = true
	cfg.Sync.Jobs["food"] = food
	require.NoError(t, cfg.Validate())

	return cfg, srv
}

func newApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	a.retry = preflight.RetryConfig{MaxRetries: 1}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSync_FoodJob(t *testing.T) {
	cfg, srv := setup(t)
	a := newApp(t, cfg)
	ctx := context.Background()

	sum, err := a.Sync(ctx, SyncRequest{Job: "food", Setup: true, Embed: true})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Stats.Processed)
	assert.Equal(t, 3, sum.Stats.Succeeded)
	assert.Equal(t, 2, sum.Batches)
	assert.Equal(t, 3, srv.Len("food_items"))

	doc, ok := srv.Doc("food_items", "20")
	require.True(t, ok)
	assert.Equal(t, float64(9), doc["zone_id"], "zone resolved from store coordinates")
	assert.Len(t, doc["combined_vector"], 16)

	runs, err := a.Runs(ctx, "food", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.StatusCompleted, runs[0].Status)
}

func TestSync_PatchOverride(t *testing.T) {
	cfg, srv := setup(t)
	a := newApp(t, cfg)
	ctx := context.Background()

	_, err := a.Sync(ctx, SyncRequest{Job: "ecom"})
	require.NoError(t, err)
	sum, err := a.Sync(ctx, SyncRequest{Job: "ecom", Mode: "patch", Strategy: "offset"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Stats.Succeeded)

	doc, ok := srv.Doc("ecom_items", "40")
	require.True(t, ok)
	assert.Equal(t, float64(0), doc["veg"], "patch writes veg as a number")
}

func TestSync_UnknownJob(t *testing.T) {
	cfg, _ := setup(t)
	a := newApp(t, cfg)

	_, err := a.Sync(context.Background(), SyncRequest{Job: "pharmacy"})
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestSync_InvalidOverrides(t *testing.T) {
	cfg, _ := setup(t)
	a := newApp(t, cfg)

	_, err := a.Sync(context.Background(), SyncRequest{Job: "food", Mode: "merge"})
	assert.Error(t, err)
	_, err = a.Sync(context.Background(), SyncRequest{Job: "food", Strategy: "scroll"})
	assert.Error(t, err)
}

func TestSync_PreflightFailsOnRedCluster(t *testing.T) {
	cfg, srv := setup(t)
	srv.HealthStatus = "red"
	a := newApp(t, cfg)

	_, err := a.Sync(context.Background(), SyncRequest{Job: "food"})
	require.ErrorIs(t, err, preflight.ErrUnreachable)
	assert.Zero(t, srv.BulkRequests(), "no batch runs after a failed preflight")
}

func TestSync_Resume(t *testing.T) {
	cfg, srv := setup(t)
	a := newApp(t, cfg)
	ctx := context.Background()

	// Leave an unfinished run behind.
	require.NoError(t, a.ledger.StartRun(ctx, &storage.Run{ID: "old", Job: "food", Index: "food_items", Strategy: "keyset"}))
	require.NoError(t, a.ledger.FinishRun(ctx, "old", storage.StatusTruncated, storage.Progress{Token: "20"}, nil))

	sum, err := a.Sync(ctx, SyncRequest{Job: "food", Resume: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Stats.Processed, "only ids after the token are read")
	_, ok := srv.Doc("food_items", "30")
	assert.True(t, ok)
	_, ok = srv.Doc("food_items", "10")
	assert.False(t, ok)
}

func TestSync_ResumeUsesStoredStrategy(t *testing.T) {
	cfg, srv := setup(t)
	a := newApp(t, cfg)
	ctx := context.Background()

	// An offset token counts rows: two of the three food items were read.
	require.NoError(t, a.ledger.StartRun(ctx, &storage.Run{ID: "old", Job: "food", Index: "food_items", Strategy: "offset"}))
	require.NoError(t, a.ledger.FinishRun(ctx, "old", storage.StatusTruncated, storage.Progress{Token: "2"}, nil))

	_, err := a.Sync(ctx, SyncRequest{Job: "food", Resume: true, Strategy: "keyset"})
	require.ErrorIs(t, err, ErrStrategyMismatch)
	assert.Zero(t, srv.BulkRequests())

	job, err := a.job(ctx, SyncRequest{Job: "food", Resume: true})
	require.NoError(t, err)
	assert.Equal(t, source.StrategyOffset, job.Strategy)
	assert.Equal(t, "2", job.ResumeToken)

	sum, err := a.Sync(ctx, SyncRequest{Job: "food", Resume: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Stats.Processed)
	_, ok := srv.Doc("food_items", "30")
	assert.True(t, ok)
	_, ok = srv.Doc("food_items", "10")
	assert.False(t, ok)
}

func TestSync_StoresAndCategories(t *testing.T) {
	cfg, srv := setup(t)
	a := newApp(t, cfg)
	ctx := context.Background()

	sum, err := a.Sync(ctx, SyncRequest{Job: "food_stores", Setup: true})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Stats.Succeeded, "only module 4 stores")
	doc, ok := srv.Doc("food_stores", "2")
	require.True(t, ok)
	assert.Equal(t, "Corner Cafe", doc["name"])
	assert.InDelta(t, 10.5, doc["latitude"], 1e-9)
	_, ok = srv.Doc("food_stores", "3")
	assert.False(t, ok)

	sum, err = a.Sync(ctx, SyncRequest{Job: "ecom_stores"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Stats.Succeeded)

	sum, err = a.Sync(ctx, SyncRequest{Job: "food_categories", Setup: true})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Stats.Succeeded)
	doc, ok = srv.Doc("food_categories", "11")
	require.True(t, ok)
	assert.Equal(t, float64(10), doc["parent_id"])
	assert.Zero(t, srv.Len("food_items"))

	_, err = a.Sync(ctx, SyncRequest{Job: "food_stores", Embed: true})
	assert.ErrorIs(t, err, syncer.ErrInvalidJob)
}

func TestJob_FromConfig(t *testing.T) {
	cfg, _ := setup(t)
	a := newApp(t, cfg)

	job, err := a.job(context.Background(), SyncRequest{Job: "food"})
	require.NoError(t, err)
	assert.Equal(t, "food_items", job.Index)
	assert.Equal(t, []int64{4, 6, 11, 15}, job.Query.ModuleIDs)
	assert.Equal(t, source.StrategyKeyset, job.Strategy)
	assert.Equal(t, 2, job.BatchSize)
	assert.True(t, job.ResolveZones)
	assert.False(t, job.Embed)
}

func TestResolveZone(t *testing.T) {
	cfg, _ := setup(t)
	a := newApp(t, cfg)
	ctx := context.Background()

	id, ok, err := a.ResolveZone(ctx, 10.5, 20.5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(9), id)

	_, ok, err = a.ResolveZone(ctx, 50, 50)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = a.ResolveZone(ctx, 95, 0)
	assert.Error(t, err, "latitude out of range")
}

func TestRuns_LedgerDisabled(t *testing.T) {
	cfg, _ := setup(t)
	cfg.Ledger.Path = ""
	a := newApp(t, cfg)

	_, err := a.Runs(context.Background(), "", 10)
	assert.ErrorIs(t, err, ErrLedgerDisabled)
	_, err = a.Sync(context.Background(), SyncRequest{Job: "food", Resume: true})
	assert.ErrorIs(t, err, ErrLedgerDisabled)
}

func TestNew_UnreachableSource(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Driver = source.DriverSQLite
	cfg.Source.DSN = filepath.Join(t.TempDir(), "missing", "catalog.db")

	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, preflight.ErrUnreachable)
}

package geo

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dshills/searchsync/pkg/types"
)

type fakeLoader struct {
	mu    sync.Mutex
	zones []types.Zone
	err   error
	calls int
}

func (f *fakeLoader) LoadActive(ctx context.Context) ([]types.Zone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.zones, nil
}

func (f *fakeLoader) set(zones []types.Zone, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zones = zones
	f.err = err
}

func (f *fakeLoader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var unitSquare = types.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}

func TestServiceZoneFor(t *testing.T) {
	ctx := context.Background()
	loader := &fakeLoader{zones: []types.Zone{{ID: 7, Polygon: unitSquare}}}
	svc := NewService(loader, time.Minute, nil)

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	id, ok, err := svc.ZoneFor(ctx, pt(5, 5))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, 1, loader.count())

	_, ok, err = svc.ZoneFor(ctx, pt(50, 50))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, loader.count(), "snapshot still fresh")

	clock = clock.Add(2 * time.Minute)
	loader.set([]types.Zone{{ID: 8, Polygon: unitSquare}}, nil)

	id, ok, err = svc.ZoneFor(ctx, pt(5, 5))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(8), id)
	assert.Equal(t, 2, loader.count())
}

func TestServiceKeepsSnapshotOnFailedRefresh(t *testing.T) {
	ctx := context.Background()
	loader := &fakeLoader{zones: []types.Zone{{ID: 7, Polygon: unitSquare}}}
	svc := NewService(loader, time.Minute, nil)

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	require.NoError(t, svc.Refresh(ctx))

	clock = clock.Add(time.Hour)
	loader.set(nil, errors.New("connection refused"))

	id, ok, err := svc.ZoneFor(ctx, pt(5, 5))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestServiceInitialLoadFailure(t *testing.T) {
	loader := &fakeLoader{err: errors.New("connection refused")}
	svc := NewService(loader, time.Minute, nil)

	_, _, err := svc.ZoneFor(context.Background(), pt(5, 5))
	require.Error(t, err)
}

func TestServiceZeroIntervalReloadsEveryTime(t *testing.T) {
	loader := &fakeLoader{zones: []types.Zone{{ID: 7, Polygon: unitSquare}}}
	svc := NewService(loader, 0, nil)

	for i := 0; i < 3; i++ {
		_, _, err := svc.ZoneFor(context.Background(), pt(5, 5))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, loader.count())
}

func TestServiceRejectsInvalidPoint(t *testing.T) {
	loader := &fakeLoader{}
	svc := NewService(loader, time.Minute, nil)

	_, _, err := svc.ZoneFor(context.Background(), types.Point{Lat: 91, Lon: 0})
	require.ErrorIs(t, err, types.ErrInvalidLatitude)
	assert.Equal(t, 0, loader.count())
}

func TestStoreLoadActive(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "zones.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE zones (id INTEGER PRIMARY KEY, coordinates TEXT, status INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO zones (id, coordinates, status) VALUES
		(1, 'POLYGON((0 0,10 0,10 10,0 10,0 0))', 1),
		(2, 'POLYGON((0 0,oops 0,10 10))', 1),
		(3, NULL, 1),
		(4, 'MULTIPOLYGON(((0 0,1 0,1 1,0 0)))', 1),
		(5, 'POLYGON((20 20,30 20,30 30,20 20))', 0),
		(6, 'POLYGON((20 20,30 20,30 30,20 30))', 1)`)
	require.NoError(t, err)

	store := NewStore(db, "SELECT id, coordinates FROM zones WHERE status = 1 ORDER BY id", nil)
	zones, err := store.LoadActive(context.Background())
	require.NoError(t, err)

	require.Len(t, zones, 2)
	assert.Equal(t, int64(1), zones[0].ID)
	assert.Equal(t, int64(6), zones[1].ID)

	id, ok := Resolve(pt(25, 25), zones)
	assert.True(t, ok)
	assert.Equal(t, int64(6), id)
}

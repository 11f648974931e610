package geo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/searchsync/pkg/types"
)

// DefaultRefreshInterval is how long a zone snapshot is served before reload.
const DefaultRefreshInterval = 10 * time.Minute

// Loader supplies the current set of active zones.
type Loader interface {
	LoadActive(ctx context.Context) ([]types.Zone, error)
}

// Service serves zone lookups from a periodically refreshed snapshot.
type Service struct {
	loader   Loader
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	zones    []types.Zone
	loadedAt time.Time
	loaded   bool
}

// NewService creates a zone service. A non-positive interval reloads the
// snapshot on every lookup.
func NewService(loader Loader, interval time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		loader:   loader,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Refresh reloads the snapshot unconditionally.
func (s *Service) Refresh(ctx context.Context) error {
	zones, err := s.loader.LoadActive(ctx)
	if err != nil {
		return fmt.Errorf("load zones: %w", err)
	}

	s.mu.Lock()
	s.zones = zones
	s.loadedAt = s.now()
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info("zone snapshot refreshed", "zones", len(zones))
	return nil
}

// Snapshot returns the current zone list, reloading it when stale. A failed
// reload keeps serving the previous snapshot if there is one.
func (s *Service) Snapshot(ctx context.Context) ([]types.Zone, error) {
	s.mu.Lock()
	fresh := s.loaded && s.interval > 0 && s.now().Sub(s.loadedAt) < s.interval
	zones := s.zones
	loaded := s.loaded
	s.mu.Unlock()

	if fresh {
		return zones, nil
	}

	if err := s.Refresh(ctx); err != nil {
		if loaded {
			s.logger.Warn("zone refresh failed, serving previous snapshot", "error", err)
			return zones, nil
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zones, nil
}

// ZoneFor resolves pt against the current snapshot.
func (s *Service) ZoneFor(ctx context.Context, pt types.Point) (int64, bool, error) {
	if err := pt.Validate(); err != nil {
		return 0, false, err
	}

	zones, err := s.Snapshot(ctx)
	if err != nil {
		return 0, false, err
	}

	id, ok := Resolve(pt, zones)
	return id, ok, nil
}

// Package app wires configuration into the running components shared by the
// command line and the MCP server.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dshills/searchsync/internal/augment"
	"github.com/dshills/searchsync/internal/bulk"
	"github.com/dshills/searchsync/internal/config"
	"github.com/dshills/searchsync/internal/embedder"
	"github.com/dshills/searchsync/internal/geo"
	"github.com/dshills/searchsync/internal/notify"
	"github.com/dshills/searchsync/internal/preflight"
	"github.com/dshills/searchsync/internal/source"
	"github.com/dshills/searchsync/internal/storage"
	"github.com/dshills/searchsync/internal/syncer"
	"github.com/dshills/searchsync/pkg/types"
)

var (
	// ErrUnknownJob is returned for a job name missing from the configuration.
	ErrUnknownJob = errors.New("unknown job")
	// ErrLedgerDisabled is returned by ledger queries when no ledger is configured.
	ErrLedgerDisabled = errors.New("run ledger disabled")
	// ErrStrategyMismatch is returned when a resume asks for a different
	// strategy than the one that produced the stored token.
	ErrStrategyMismatch = errors.New("resume token strategy mismatch")
)

// App holds the long-lived components.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	db       *sql.DB
	sink     *bulk.Client
	emb      embedder.Embedder
	zones    *geo.Service
	ledger   *storage.SQLiteStorage
	notifier *notify.Publisher
	syncer   *syncer.Syncer
	retry    preflight.RetryConfig
}

// New connects to the source and builds every component. A source that
// cannot be reached is reported as preflight.ErrUnreachable.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, logger: logger, retry: preflight.DefaultRetryConfig()}

	db, err := source.OpenDB(ctx, cfg.Source.DBConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: source: %v", preflight.ErrUnreachable, err)
	}
	a.db = db

	a.sink = bulk.New(cfg.Sink.BulkConfig())

	emb, err := embedder.New(cfg.Embedding.EmbedderConfig())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	a.emb = emb

	a.zones = geo.NewService(geo.NewStore(db, cfg.Zones.Query, logger), cfg.Zones.RefreshInterval, logger)

	if cfg.Ledger.Path != "" {
		ledger, err := storage.NewSQLiteStorage(cfg.Ledger.Path)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to open run ledger: %w", err)
		}
		a.ledger = ledger
	}

	if cfg.Notify.URL != "" {
		pub, err := notify.Connect(cfg.Notify.URL, cfg.Notify.Subject)
		if err != nil {
			// Events are optional; a sync still runs without them.
			logger.Warn("run events disabled", "url", cfg.Notify.URL, "error", err)
		} else {
			a.notifier = pub
		}
	}

	deps := syncer.Deps{
		Open:           syncer.SQLSource(db, cfg.Source.Driver),
		OpenStores:     syncer.SQLStores(db, cfg.Source.Driver),
		OpenCategories: syncer.SQLCategories(db, cfg.Source.Driver),
		Loader:         a.sink,
		Augmenter:      augment.New(emb, cfg.Embedding.AugmentConfig(), logger),
		Zones:          a.zones,
		Logger:         logger,
	}
	if a.ledger != nil {
		deps.Recorder = a.ledger
	}
	if a.notifier != nil {
		deps.Notifier = a.notifier
	}
	a.syncer = syncer.New(deps)

	return a, nil
}

// Jobs returns the configured job names.
func (a *App) Jobs() []string {
	return a.cfg.JobNames()
}

// Close releases every component. It is safe to call on a partly built App.
func (a *App) Close() error {
	var errs []error
	if a.notifier != nil {
		errs = append(errs, a.notifier.Close())
	}
	if a.ledger != nil {
		errs = append(errs, a.ledger.Close())
	}
	if a.emb != nil {
		errs = append(errs, a.emb.Close())
	}
	if a.sink != nil {
		errs = append(errs, a.sink.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

// ResolveZone returns the active zone containing the point.
func (a *App) ResolveZone(ctx context.Context, lat, lon float64) (int64, bool, error) {
	return a.zones.ZoneFor(ctx, types.Point{Lat: lat, Lon: lon})
}

// Runs lists recent ledger entries for job, or for every job when empty.
func (a *App) Runs(ctx context.Context, job string, limit int) ([]*storage.Run, error) {
	if a.ledger == nil {
		return nil, ErrLedgerDisabled
	}
	return a.ledger.ListRuns(ctx, job, limit)
}

package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/searchsync/internal/augment"
	"github.com/dshills/searchsync/internal/bulk"
	"github.com/dshills/searchsync/internal/source"
	"github.com/dshills/searchsync/internal/storage"
	"github.com/dshills/searchsync/internal/transform"
	"github.com/dshills/searchsync/pkg/types"
)

var (
	// ErrRunInProgress is returned when another run already targets the index.
	ErrRunInProgress = errors.New("a sync run is already in progress for this index")
	// ErrInvalidJob is returned for a job that cannot run with the configured deps.
	ErrInvalidJob = errors.New("invalid job")
)

const tracerName = "github.com/dshills/searchsync/internal/syncer"

// Loader writes a batch of documents to the search index.
type Loader interface {
	Bulk(ctx context.Context, index string, mode types.WriteMode, items []bulk.Item) (bulk.Result, error)
}

// Augmenter embeds the text channels of a batch.
type Augmenter interface {
	Augment(ctx context.Context, items []transform.Channels) augment.Outcome
}

// ZoneLookup resolves a point to a zone id.
type ZoneLookup interface {
	ZoneFor(ctx context.Context, pt types.Point) (int64, bool, error)
}

// Recorder persists run progress.
type Recorder interface {
	StartRun(ctx context.Context, run *storage.Run) error
	RecordProgress(ctx context.Context, runID string, p storage.Progress) error
	FinishRun(ctx context.Context, runID string, status storage.RunStatus, p storage.Progress, runErr error) error
}

// Notifier is told about every finished run.
type Notifier interface {
	Notify(ctx context.Context, s *Summary) error
}

// OpenFunc opens a reader over one kind of source row.
type OpenFunc[T any] func(ctx context.Context, q source.Query, opts source.Options) (source.RowReader[T], error)

type sqlOpener[T any] func(ctx context.Context, db *sql.DB, q source.Query, opts source.Options) (source.RowReader[T], error)

func bindSQL[T any](db *sql.DB, driver string, open sqlOpener[T]) OpenFunc[T] {
	return func(ctx context.Context, q source.Query, opts source.Options) (source.RowReader[T], error) {
		opts.Driver = driver
		return open(ctx, db, q, opts)
	}
}

// SQLSource returns an OpenFunc reading items from db with the given driver.
func SQLSource(db *sql.DB, driver string) OpenFunc[types.SourceRecord] {
	return bindSQL(db, driver, source.Open)
}

// SQLStores returns an OpenFunc reading stores from db.
func SQLStores(db *sql.DB, driver string) OpenFunc[types.StoreRecord] {
	return bindSQL(db, driver, source.OpenStores)
}

// SQLCategories returns an OpenFunc reading categories from db.
func SQLCategories(db *sql.DB, driver string) OpenFunc[types.CategoryRecord] {
	return bindSQL(db, driver, source.OpenCategories)
}

// Deps are the collaborators of a Syncer. Loader and the opener for each
// record kind a job reads are required.
type Deps struct {
	Open           OpenFunc[types.SourceRecord]
	OpenStores     OpenFunc[types.StoreRecord]
	OpenCategories OpenFunc[types.CategoryRecord]
	Loader         Loader
	Augmenter      Augmenter  // required for jobs with Embed
	Zones          ZoneLookup // required for jobs with ResolveZones
	Recorder       Recorder
	Notifier       Notifier
	Logger         *slog.Logger
}

// Job describes one sync run.
type Job struct {
	Name string
	// Kind is the catalog table to read. Empty reads items.
	Kind        source.Kind
	Index       string
	Mode        types.WriteMode
	Query       source.Query
	Strategy    source.Strategy
	BatchSize   int
	ResumeToken string

	// Embed attaches name, description and combined vectors to every document.
	Embed bool
	// ResolveZones fills a missing zone id from the store coordinates.
	ResolveZones bool
}

// Syncer runs sync jobs.
type Syncer struct {
	deps   Deps
	logger *slog.Logger
	tracer trace.Tracer
	locks  indexLocks
	now    func() time.Time
}

// New creates a Syncer.
func New(deps Deps) *Syncer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		deps:   deps,
		logger: logger,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
}

func (s *Syncer) validate(job Job) error {
	kind, err := source.ParseKind(string(job.Kind))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if kind != source.KindItems {
		switch {
		case job.Mode == types.WritePatch:
			return fmt.Errorf("%w: %s are always written in full", ErrInvalidJob, kind)
		case job.Embed || job.ResolveZones:
			return fmt.Errorf("%w: embeddings and zone resolution apply to items only", ErrInvalidJob)
		}
	}

	switch {
	case s.deps.Loader == nil:
		return fmt.Errorf("%w: loader is required", ErrInvalidJob)
	case kind == source.KindItems && s.deps.Open == nil,
		kind == source.KindStores && s.deps.OpenStores == nil,
		kind == source.KindCategories && s.deps.OpenCategories == nil:
		return fmt.Errorf("%w: no source configured for %s", ErrInvalidJob, kind)
	case job.Index == "":
		return fmt.Errorf("%w: index is required", ErrInvalidJob)
	case job.Mode != types.WriteFull && job.Mode != types.WritePatch:
		return fmt.Errorf("%w: %w: %q", ErrInvalidJob, types.ErrInvalidWriteMode, job.Mode)
	case job.Embed && s.deps.Augmenter == nil:
		return fmt.Errorf("%w: embeddings requested but no embedder configured", ErrInvalidJob)
	case job.ResolveZones && s.deps.Zones == nil:
		return fmt.Errorf("%w: zone resolution requested but no zones configured", ErrInvalidJob)
	}
	return nil
}

// Run executes job until the source is exhausted.
//
// A source that cannot be opened returns a nil summary and an error wrapping
// source.ErrOpen. A fetch failure or cancellation ends the run early: the
// summary is returned with Truncated set together with the error. Batch and
// item failures never produce an error; they are counted in the summary.
func (s *Syncer) Run(ctx context.Context, job Job) (*Summary, error) {
	if err := s.validate(job); err != nil {
		return nil, err
	}

	lock := s.locks.get(job.Index)
	if !lock.TryAcquire() {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, job.Index)
	}
	defer lock.Release()

	sum := &Summary{
		RunID:     uuid.NewString(),
		Job:       job.Name,
		Index:     job.Index,
		Mode:      job.Mode,
		StartedAt: s.now(),
		Token:     job.ResumeToken,
	}
	logger := s.logger.With("run_id", sum.RunID, "job", job.Name, "index", job.Index)

	ctx, span := s.tracer.Start(ctx, "syncer.Run", trace.WithAttributes(
		attribute.String("sync.run_id", sum.RunID),
		attribute.String("sync.job", job.Name),
		attribute.String("sync.index", job.Index),
		attribute.String("sync.mode", string(job.Mode)),
		attribute.Bool("sync.embed", job.Embed),
	))
	defer span.End()

	s.recordStart(ctx, logger, job, sum)

	var err error
	switch kind, _ := source.ParseKind(string(job.Kind)); kind {
	case source.KindStores:
		err = drain(ctx, s, job, sum, logger, s.deps.OpenStores, s.processStores)
	case source.KindCategories:
		err = drain(ctx, s, job, sum, logger, s.deps.OpenCategories, s.processCategories)
	default:
		err = drain(ctx, s, job, sum, logger, s.deps.Open, s.processBatch)
	}
	if err != nil {
		sum.Err = err
		sum.Elapsed = s.now().Sub(sum.StartedAt)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.finish(ctx, logger, sum)
		logger.Error("sync aborted", "error", err)
		return nil, err
	}

	stats := sum.Stats
	sum.Elapsed = s.now().Sub(sum.StartedAt)
	sum.DocsPerSecond = throughput(stats.Processed, sum.Elapsed)

	span.SetAttributes(
		attribute.Int("sync.processed", stats.Processed),
		attribute.Int("sync.succeeded", stats.Succeeded),
		attribute.Int("sync.failed", stats.Failed),
		attribute.Int("sync.batches", sum.Batches),
	)
	if sum.Err != nil {
		span.RecordError(sum.Err)
		span.SetStatus(codes.Error, sum.Err.Error())
	}

	s.finish(context.WithoutCancel(ctx), logger, sum)

	if sum.Truncated {
		logger.Warn("sync truncated",
			"processed", stats.Processed,
			"succeeded", stats.Succeeded,
			"failed", stats.Failed,
			"token", sum.Token,
			"error", sum.Err)
		return sum, sum.Err
	}

	logger.Info("sync complete",
		"processed", stats.Processed,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"batches", sum.Batches,
		"elapsed", sum.Elapsed.Round(time.Millisecond).String(),
		"docs_per_sec", fmt.Sprintf("%.1f", sum.DocsPerSecond))
	return sum, nil
}

// batchFunc processes one batch of rows and returns the advanced stats.
type batchFunc[T any] func(ctx context.Context, job Job, n int, rows []T, stats types.RunStats) types.RunStats

// drain opens a reader and feeds every batch to process, keeping sum current.
// Only a failure to open is returned; a fetch failure or cancellation is
// recorded on sum as a truncation.
func drain[T any](ctx context.Context, s *Syncer, job Job, sum *Summary, logger *slog.Logger, open OpenFunc[T], process batchFunc[T]) error {
	reader, err := open(ctx, job.Query, source.Options{
		Strategy:    job.Strategy,
		BatchSize:   job.BatchSize,
		ResumeToken: job.ResumeToken,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = reader.Close()
	}()

	logger.Info("sync started",
		"kind", job.Kind,
		"mode", job.Mode,
		"strategy", job.Strategy,
		"batch_size", job.BatchSize,
		"embed", job.Embed,
		"resume_token", job.ResumeToken)

	var stats types.RunStats
	for {
		if err := ctx.Err(); err != nil {
			sum.Err = err
			sum.Truncated = true
			break
		}

		rows, err := reader.Next(ctx)
		if err != nil {
			sum.Err = err
			sum.Truncated = true
			break
		}
		if len(rows) == 0 {
			break
		}

		sum.Batches++
		stats = process(ctx, job, sum.Batches, rows, stats)
		sum.Stats = stats
		sum.Token = reader.Token()

		elapsed := s.now().Sub(sum.StartedAt)
		logger.Info("batch done",
			"batch", sum.Batches,
			"rows", len(rows),
			"processed", stats.Processed,
			"succeeded", stats.Succeeded,
			"failed", stats.Failed,
			"docs_per_sec", fmt.Sprintf("%.1f", throughput(stats.Processed, elapsed)),
			"token", sum.Token)
		s.recordProgress(ctx, logger, sum)
	}

	if err := reader.Close(); err != nil {
		logger.Warn("failed to release source cursor", "error", err)
	}
	sum.Stats = stats
	return nil
}

// The ledger and notifier are best effort: their failures are logged and
// never change the outcome of a run.

func (s *Syncer) recordStart(ctx context.Context, logger *slog.Logger, job Job, sum *Summary) {
	if s.deps.Recorder == nil {
		return
	}
	run := &storage.Run{
		ID:        sum.RunID,
		Job:       job.Name,
		Index:     job.Index,
		Mode:      string(job.Mode),
		Strategy:  string(job.Strategy),
		Token:     job.ResumeToken,
		StartedAt: sum.StartedAt,
	}
	if err := s.deps.Recorder.StartRun(ctx, run); err != nil {
		logger.Warn("failed to record run start", "error", err)
	}
}

func (s *Syncer) recordProgress(ctx context.Context, logger *slog.Logger, sum *Summary) {
	if s.deps.Recorder == nil {
		return
	}
	if err := s.deps.Recorder.RecordProgress(context.WithoutCancel(ctx), sum.RunID, sum.progress()); err != nil {
		logger.Warn("failed to record progress", "error", err)
	}
}

func (s *Syncer) finish(ctx context.Context, logger *slog.Logger, sum *Summary) {
	if s.deps.Recorder != nil {
		if err := s.deps.Recorder.FinishRun(ctx, sum.RunID, sum.Status(), sum.progress(), sum.Err); err != nil {
			logger.Warn("failed to record run end", "error", err)
		}
	}
	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.Notify(ctx, sum); err != nil {
			logger.Warn("failed to publish run event", "error", err)
		}
	}
}

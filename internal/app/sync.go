package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/searchsync/internal/bulk"
	"github.com/dshills/searchsync/internal/preflight"
	"github.com/dshills/searchsync/internal/source"
	"github.com/dshills/searchsync/internal/syncer"
	"github.com/dshills/searchsync/pkg/types"
)

// SyncRequest selects a configured job and overrides parts of it.
type SyncRequest struct {
	Job string

	Mode      string // overrides the job mode when set
	Strategy  string // overrides sync.strategy when set
	BatchSize int    // overrides sync.batch_size when positive
	Embed     bool   // forces embeddings on

	// Resume continues from the token left by the last unfinished run, with
	// the strategy that run used. ResumeToken, when set, is used instead.
	Resume      bool
	ResumeToken string

	// Setup creates the index with the mapping for the job's kind when it
	// is missing. Recreate deletes it first.
	Setup    bool
	Recreate bool

	SkipPreflight bool
}

// Sync runs one configured job.
func (a *App) Sync(ctx context.Context, req SyncRequest) (*syncer.Summary, error) {
	job, err := a.job(ctx, req)
	if err != nil {
		return nil, err
	}

	if !req.SkipPreflight {
		deps := []preflight.Dependency{preflight.SourceCheck(a.db), preflight.SinkCheck(a.sink)}
		if job.Embed {
			deps = append(deps, preflight.EmbedderCheck(a.emb))
		}
		if err := preflight.New(a.retry, a.logger, deps...).Check(ctx); err != nil {
			return nil, err
		}
	}

	if req.Setup || req.Recreate {
		created, err := a.sink.EnsureIndex(ctx, job.Index, a.mapping(job.Kind), req.Recreate)
		if err != nil {
			return nil, fmt.Errorf("failed to set up index %s: %w", job.Index, err)
		}
		if created {
			a.logger.Info("index created", "index", job.Index, "dimension", a.emb.Dimension())
		}
	}

	return a.syncer.Run(ctx, job)
}

func (a *App) mapping(kind source.Kind) map[string]any {
	switch kind {
	case source.KindStores:
		return bulk.StoreMapping()
	case source.KindCategories:
		return bulk.CategoryMapping()
	default:
		return bulk.ItemMapping(a.emb.Dimension())
	}
}

// job resolves req against the configuration.
func (a *App) job(ctx context.Context, req SyncRequest) (syncer.Job, error) {
	jc, ok := a.cfg.Sync.Jobs[req.Job]
	if !ok {
		return syncer.Job{}, fmt.Errorf("%w: %q (configured: %v)", ErrUnknownJob, req.Job, a.Jobs())
	}

	kind, err := source.ParseKind(jc.Kind)
	if err != nil {
		return syncer.Job{}, fmt.Errorf("%w: %v", syncer.ErrInvalidJob, err)
	}

	modeName := jc.Mode
	if req.Mode != "" {
		modeName = req.Mode
	}
	mode := types.WriteFull
	if modeName != "" {
		m, err := types.ParseWriteMode(modeName)
		if err != nil {
			return syncer.Job{}, fmt.Errorf("%w: %q", err, modeName)
		}
		mode = m
	}

	strategyName := a.cfg.Sync.Strategy
	if req.Strategy != "" {
		strategyName = req.Strategy
	}

	batch := a.cfg.Sync.BatchSize
	if req.BatchSize > 0 {
		batch = req.BatchSize
	}

	token := req.ResumeToken
	if token == "" && req.Resume {
		if a.ledger == nil {
			return syncer.Job{}, fmt.Errorf("resume: %w", ErrLedgerDisabled)
		}
		cp, err := a.ledger.LastCheckpoint(ctx, req.Job, jc.Index)
		if err != nil {
			return syncer.Job{}, err
		}
		if cp.Token != "" {
			// Offset tokens count rows while the others are ids.
			if cp.Strategy != "" {
				if req.Strategy != "" && !strings.EqualFold(req.Strategy, cp.Strategy) {
					return syncer.Job{}, fmt.Errorf("%w: token %s was written by %s, not %s",
						ErrStrategyMismatch, cp.Token, cp.Strategy, req.Strategy)
				}
				strategyName = cp.Strategy
			}
			token = cp.Token
			a.logger.Info("resuming", "job", req.Job, "index", jc.Index, "token", token, "strategy", strategyName)
		}
	}

	strategy, err := source.ParseStrategy(strategyName)
	if err != nil {
		return syncer.Job{}, err
	}

	return syncer.Job{
		Name:  req.Job,
		Kind:  kind,
		Index: jc.Index,
		Mode:  mode,
		Query: source.Query{
			ModuleIDs:        jc.ModuleIDs,
			IncludeInactive:  jc.IncludeInactive,
			ActiveStoresOnly: jc.ActiveStoresOnly,
		},
		Strategy:     strategy,
		BatchSize:    batch,
		ResumeToken:  token,
		Embed:        jc.Embed || req.Embed,
		ResolveZones: jc.ResolveZones,
	}, nil
}

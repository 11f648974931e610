package syncer

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/searchsync/internal/bulk"
	"github.com/dshills/searchsync/internal/transform"
	"github.com/dshills/searchsync/pkg/types"
)

// processBatch transforms, embeds and loads one batch and returns stats
// advanced by its outcome. Every record ends up either succeeded or failed.
func (s *Syncer) processBatch(ctx context.Context, job Job, n int, records []types.SourceRecord, stats types.RunStats) types.RunStats {
	// A batch that has started is finished even if the run is cancelled.
	ctx = context.WithoutCancel(ctx)
	ctx, span := s.tracer.Start(ctx, "syncer.batch", trace.WithAttributes(
		attribute.Int("sync.batch", n),
		attribute.Int("sync.rows", len(records)),
	))
	defer span.End()

	stats.Processed += len(records)

	if job.ResolveZones {
		s.fillZones(ctx, records)
	}

	var vectors []*types.Vectors
	if job.Embed {
		channels := make([]transform.Channels, len(records))
		for i, rec := range records {
			channels[i] = transform.Texts(rec)
		}
		out := s.deps.Augmenter.Augment(ctx, channels)
		vectors = out.Vectors
		stats.Failed += out.Failed
		span.SetAttributes(attribute.Int("sync.embed_failed", out.Failed))
	}

	items := make([]bulk.Item, 0, len(records))
	for i, rec := range records {
		var vec types.Vectors
		if job.Embed {
			// Items whose sub-batch failed are not written this run.
			if vectors[i] == nil {
				continue
			}
			vec = *vectors[i]
		}
		items = append(items, bulk.Item{
			ID:  strconv.FormatInt(rec.ID, 10),
			Doc: document(job.Mode, rec, vec),
		})
	}

	return s.load(ctx, span, job, n, items, stats)
}

// load writes items in one bulk request and folds the outcome into stats.
func (s *Syncer) load(ctx context.Context, span trace.Span, job Job, n int, items []bulk.Item, stats types.RunStats) types.RunStats {
	res, err := s.deps.Loader.Bulk(ctx, job.Index, job.Mode, items)
	stats.Succeeded += res.Succeeded
	stats.Failed += res.Failed
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("bulk request failed",
			"job", job.Name,
			"batch", n,
			"items", len(items),
			"error", err)
		return stats
	}
	for _, ie := range res.Errors {
		s.logger.Debug("document rejected", "job", job.Name, "batch", n, "error", ie.Error())
	}
	if res.Failed > 0 {
		s.logger.Warn("documents rejected", "job", job.Name, "batch", n, "failed", res.Failed)
	}
	return stats
}

func (s *Syncer) processStores(ctx context.Context, job Job, n int, rows []types.StoreRecord, stats types.RunStats) types.RunStats {
	return loadRows(ctx, s, job, n, rows, stats, func(r types.StoreRecord) (int64, any) {
		return r.ID, transform.Store(r)
	})
}

func (s *Syncer) processCategories(ctx context.Context, job Job, n int, rows []types.CategoryRecord, stats types.RunStats) types.RunStats {
	return loadRows(ctx, s, job, n, rows, stats, func(r types.CategoryRecord) (int64, any) {
		return r.ID, transform.Category(r)
	})
}

// loadRows writes catalog rows that need no enrichment, one document per row.
func loadRows[T any](ctx context.Context, s *Syncer, job Job, n int, rows []T, stats types.RunStats, doc func(T) (int64, any)) types.RunStats {
	ctx = context.WithoutCancel(ctx)
	ctx, span := s.tracer.Start(ctx, "syncer.batch", trace.WithAttributes(
		attribute.Int("sync.batch", n),
		attribute.Int("sync.rows", len(rows)),
		attribute.String("sync.kind", string(job.Kind)),
	))
	defer span.End()

	stats.Processed += len(rows)
	items := make([]bulk.Item, len(rows))
	for i, r := range rows {
		id, d := doc(r)
		items[i] = bulk.Item{ID: strconv.FormatInt(id, 10), Doc: d}
	}
	return s.load(ctx, span, job, n, items, stats)
}

func document(mode types.WriteMode, rec types.SourceRecord, vec types.Vectors) any {
	if mode == types.WritePatch {
		doc := transform.Patch(rec)
		doc.Vectors = vec
		return doc
	}
	doc := transform.Full(rec)
	doc.Vectors = vec
	return doc
}

// fillZones sets ZoneID on records that lack one but carry store coordinates
// inside a known zone.
func (s *Syncer) fillZones(ctx context.Context, records []types.SourceRecord) {
	for i := range records {
		rec := &records[i]
		if rec.ZoneID != nil {
			continue
		}
		pt, ok := transform.StorePoint(*rec)
		if !ok {
			continue
		}
		id, found, err := s.deps.Zones.ZoneFor(ctx, pt)
		if err != nil {
			s.logger.Warn("zone lookup failed", "item_id", rec.ID, "error", err)
			return
		}
		if found {
			rec.ZoneID = &id
		}
	}
}

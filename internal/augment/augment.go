// Package augment attaches embedding vectors to batches of items.
//
// A batch is split into sub-batches. For each sub-batch the embedder is
// called once per channel (name, description, combined). A sub-batch is all
// or nothing: if any of its three calls fails, none of its items get vectors
// and all of them are counted as failed. Calls are throttled by a token
// bucket so the embedding backend sees a bounded request rate.
package augment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/dshills/searchsync/internal/embedder"
	"github.com/dshills/searchsync/internal/transform"
	"github.com/dshills/searchsync/pkg/types"
)

// Defaults
const (
	DefaultSubBatchSize = 50
	DefaultInterval     = 100 * time.Millisecond
)

// Config controls sub-batching and pacing.
type Config struct {
	SubBatchSize int           // Items per embedder call, capped at the embedder's MaxBatch
	Interval     time.Duration // Minimum spacing between sub-batches, 0 disables pacing
	Normalize    bool          // Request unit-length vectors
}

// Outcome reports what happened to one batch.
type Outcome struct {
	// Vectors is parallel to the input. A nil entry means the item's
	// sub-batch failed and the item must not be written.
	Vectors  []*types.Vectors
	Embedded int
	Failed   int
	Errors   []error
}

// Augmenter embeds item texts.
type Augmenter struct {
	emb     embedder.Embedder
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates an augmenter. A zero SubBatchSize selects DefaultSubBatchSize.
func New(emb embedder.Embedder, cfg Config, logger *slog.Logger) *Augmenter {
	if cfg.SubBatchSize <= 0 {
		cfg.SubBatchSize = DefaultSubBatchSize
	}
	if limit := emb.MaxBatch(); limit > 0 && cfg.SubBatchSize > limit {
		cfg.SubBatchSize = limit
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &Augmenter{emb: emb, cfg: cfg, logger: logger}
	if cfg.Interval > 0 {
		a.limiter = rate.NewLimiter(rate.Every(cfg.Interval), 1)
	}
	return a
}

// Augment embeds every item's channels. It never returns an error; failures
// are reported per item through the Outcome.
func (a *Augmenter) Augment(ctx context.Context, items []transform.Channels) Outcome {
	out := Outcome{Vectors: make([]*types.Vectors, len(items))}

	for start := 0; start < len(items); start += a.cfg.SubBatchSize {
		end := start + a.cfg.SubBatchSize
		if end > len(items) {
			end = len(items)
		}

		vectors, err := a.subBatch(ctx, items[start:end])
		if err != nil {
			out.Failed += end - start
			out.Errors = append(out.Errors, fmt.Errorf("items %d-%d: %w", start, end-1, err))
			a.logger.Warn("embedding sub-batch failed",
				"from", start,
				"to", end-1,
				"items", end-start,
				"error", err)
			continue
		}

		copy(out.Vectors[start:end], vectors)
		out.Embedded += end - start
	}

	return out
}

func (a *Augmenter) subBatch(ctx context.Context, items []transform.Channels) ([]*types.Vectors, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("throttle: %w", err)
		}
	}

	names := make([]string, len(items))
	descriptions := make([]string, len(items))
	combined := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
		descriptions[i] = it.Description
		combined[i] = it.Combined
	}

	nameVecs, err := a.embed(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("name channel: %w", err)
	}
	descVecs, err := a.embed(ctx, descriptions)
	if err != nil {
		return nil, fmt.Errorf("description channel: %w", err)
	}
	combinedVecs, err := a.embed(ctx, combined)
	if err != nil {
		return nil, fmt.Errorf("combined channel: %w", err)
	}

	out := make([]*types.Vectors, len(items))
	for i := range items {
		out[i] = &types.Vectors{
			Name:        nameVecs[i],
			Description: descVecs[i],
			Combined:    combinedVecs[i],
		}
	}
	return out, nil
}

func (a *Augmenter) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
		Texts:     texts,
		Normalize: a.cfg.Normalize,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", embedder.ErrProviderFailed, len(resp.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Vector) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", embedder.ErrProviderFailed, i)
		}
		vecs[i] = e.Vector
	}
	return vecs, nil
}

// Package preflight verifies that the services a sync run depends on are
// reachable before any batch is read.
package preflight

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/searchsync/internal/bulk"
	"github.com/dshills/searchsync/internal/embedder"
	"github.com/dshills/searchsync/internal/source"
)

// ErrUnreachable is returned when a dependency fails every attempt.
var ErrUnreachable = errors.New("dependency unreachable")

// Dependency names one service and how to check it.
type Dependency struct {
	Name  string
	Check func(ctx context.Context) error
}

// SourceCheck pings the source database.
func SourceCheck(db *sql.DB) Dependency {
	return Dependency{Name: "source", Check: func(ctx context.Context) error {
		return source.Ping(ctx, db)
	}}
}

// SinkCheck checks search engine cluster health.
func SinkCheck(c *bulk.Client) Dependency {
	return Dependency{Name: "search", Check: func(ctx context.Context) error {
		_, err := c.Health(ctx)
		return err
	}}
}

// EmbedderCheck checks the embedding backend. Providers without a health
// endpoint always pass.
func EmbedderCheck(emb embedder.Embedder) Dependency {
	p := Dependency{Name: "embedder", Check: func(context.Context) error { return nil }}
	if hc, ok := emb.(embedder.HealthChecker); ok {
		p.Check = func(ctx context.Context) error {
			_, err := hc.Health(ctx)
			return err
		}
	}
	return p
}

// Checker checks dependencies concurrently.
type Checker struct {
	deps   []Dependency
	retry  RetryConfig
	logger *slog.Logger
}

// New creates a checker. A nil logger uses slog.Default.
func New(retry RetryConfig, logger *slog.Logger, deps ...Dependency) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{deps: deps, retry: retry, logger: logger}
}

// Check runs every check and reports all unreachable dependencies. Each
// returned failure wraps ErrUnreachable.
func (c *Checker) Check(ctx context.Context) error {
	errs := make([]error, len(c.deps))

	var g errgroup.Group
	for i, p := range c.deps {
		g.Go(func() error {
			start := time.Now()
			err := retryWithBackoff(ctx, c.retry, p.Check)
			if err != nil {
				errs[i] = fmt.Errorf("%w: %s: %v", ErrUnreachable, p.Name, err)
				c.logger.Error("preflight failed", "dependency", p.Name, "error", err)
				return nil
			}
			c.logger.Debug("preflight ok", "dependency", p.Name, "took", time.Since(start).String())
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

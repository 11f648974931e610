package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dshills/searchsync/pkg/types"
)

// Reader errors. ErrOpen is fatal to a run. ErrFetch ends a run early but
// keeps whatever was already processed.
var (
	ErrOpen              = errors.New("open source cursor")
	ErrFetch             = errors.New("fetch source batch")
	ErrClosed            = errors.New("reader closed")
	ErrUnsupportedDriver = errors.New("unsupported driver")
	ErrInvalidToken      = errors.New("invalid resume token")
)

// Strategy selects how batches are paged out of the source.
type Strategy string

const (
	StrategyStream Strategy = "stream"
	StrategyOffset Strategy = "offset"
	StrategyKeyset Strategy = "keyset"
)

// DefaultBatchSize is used when Options.BatchSize is not positive.
const DefaultBatchSize = 500

// ParseStrategy parses a strategy name. Empty selects StrategyStream.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyStream:
		return StrategyStream, nil
	case StrategyOffset:
		return StrategyOffset, nil
	case StrategyKeyset:
		return StrategyKeyset, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}

// Options configures a Reader.
type Options struct {
	Driver      string
	Strategy    Strategy
	BatchSize   int
	ResumeToken string
	Logger      *slog.Logger

	// OnRelease runs exactly once, after the pinned connection is returned.
	OnRelease func()
}

// RowReader yields batches of rows of one kind.
type RowReader[T any] interface {
	// Next returns the next batch. An empty batch means the source is
	// exhausted; every later call returns an empty batch as well.
	Next(ctx context.Context) ([]T, error)

	// Token returns a resume token positioned after the last delivered row.
	Token() string

	// Close releases the cursor and the pinned connection. It is safe to
	// call more than once.
	Close() error
}

// Reader yields batches of item records.
type Reader = RowReader[types.SourceRecord]

// cursor implements RowReader for every strategy.
type cursor[T any] struct {
	scan func(*sql.Rows) (T, error)
	id   func(T) int64

	conn    *sql.Conn
	rows    *sql.Rows
	dialect Dialect
	query   Query
	opts    Options
	logger  *slog.Logger

	lastID    int64
	offset    int64
	readOnly  bool
	exhausted bool
	closed    bool
}

// Open pins a connection and prepares an item reader. For the stream
// strategy the query is issued here; the paged strategies query on each Next.
func Open(ctx context.Context, db *sql.DB, q Query, opts Options) (Reader, error) {
	q.Kind = KindItems
	return open(ctx, db, q, opts, scanRecord, func(r types.SourceRecord) int64 { return r.ID })
}

// OpenStores prepares a reader over the stores table.
func OpenStores(ctx context.Context, db *sql.DB, q Query, opts Options) (RowReader[types.StoreRecord], error) {
	q.Kind = KindStores
	return open(ctx, db, q, opts, scanStore, func(r types.StoreRecord) int64 { return r.ID })
}

// OpenCategories prepares a reader over the categories table.
func OpenCategories(ctx context.Context, db *sql.DB, q Query, opts Options) (RowReader[types.CategoryRecord], error) {
	q.Kind = KindCategories
	return open(ctx, db, q, opts, scanCategory, func(r types.CategoryRecord) int64 { return r.ID })
}

func open[T any](ctx context.Context, db *sql.DB, q Query, opts Options,
	scan func(*sql.Rows) (T, error), id func(T) int64) (RowReader[T], error) {
	dialect, err := DialectFor(opts.Driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyStream
	}
	if _, err := ParseStrategy(string(opts.Strategy)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &cursor[T]{
		scan:    scan,
		id:      id,
		dialect: dialect,
		query:   q,
		opts:    opts,
		logger:  logger,
	}
	if err := c.resume(opts.ResumeToken); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %v", ErrOpen, err)
	}
	c.conn = conn
	c.requestReadOnly(ctx)

	if opts.Strategy == StrategyStream {
		stmt, args := q.build(dialect, page{afterID: c.lastID})
		rows, err := conn.QueryContext(ctx, stmt, args...)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("%w: %v", ErrOpen, err)
		}
		c.rows = rows
	}

	logger.Debug("source cursor opened",
		"kind", q.Kind,
		"strategy", opts.Strategy,
		"batch_size", opts.BatchSize,
		"read_only", c.readOnly,
		"resume_token", opts.ResumeToken)

	return c, nil
}

// requestReadOnly is best effort: a server that refuses still gets read.
func (c *cursor[T]) requestReadOnly(ctx context.Context) {
	stmt := c.dialect.readOnlyStatement()
	if stmt == "" {
		return
	}
	if _, err := c.conn.ExecContext(ctx, stmt); err != nil {
		c.logger.Warn("read-only session not available", "error", err)
		return
	}
	c.readOnly = true
}

func (c *cursor[T]) resume(token string) error {
	if token == "" {
		return nil
	}
	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil || n < 0 {
		return fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}
	if c.opts.Strategy == StrategyOffset {
		c.offset = n
	} else {
		c.lastID = n
	}
	return nil
}

func (c *cursor[T]) Token() string {
	if c.opts.Strategy == StrategyOffset {
		if c.offset == 0 {
			return ""
		}
		return strconv.FormatInt(c.offset, 10)
	}
	if c.lastID == 0 {
		return ""
	}
	return strconv.FormatInt(c.lastID, 10)
}

func (c *cursor[T]) Next(ctx context.Context) ([]T, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if c.exhausted {
		return nil, nil
	}

	var (
		batch []T
		err   error
	)
	switch c.opts.Strategy {
	case StrategyStream:
		batch, err = c.nextStream()
	case StrategyOffset:
		batch, err = c.nextPage(ctx, page{limit: c.opts.BatchSize, offset: c.offset})
	case StrategyKeyset:
		batch, err = c.nextPage(ctx, page{afterID: c.lastID, limit: c.opts.BatchSize})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	if len(batch) > 0 {
		c.lastID = c.id(batch[len(batch)-1])
		c.offset += int64(len(batch))
	}
	return batch, nil
}

func (c *cursor[T]) nextStream() ([]T, error) {
	batch := make([]T, 0, c.opts.BatchSize)
	for len(batch) < c.opts.BatchSize {
		if !c.rows.Next() {
			if err := c.rows.Err(); err != nil {
				return nil, err
			}
			c.exhausted = true
			_ = c.rows.Close()
			break
		}
		rec, err := c.scan(c.rows)
		if err != nil {
			return nil, err
		}
		batch = append(batch, rec)
	}
	return batch, nil
}

func (c *cursor[T]) nextPage(ctx context.Context, p page) ([]T, error) {
	stmt, args := c.query.build(c.dialect, p)
	rows, err := c.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	batch := make([]T, 0, c.opts.BatchSize)
	for rows.Next() {
		rec, err := c.scan(rows)
		if err != nil {
			return nil, err
		}
		batch = append(batch, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(batch) < c.opts.BatchSize {
		c.exhausted = true
	}
	return batch, nil
}

func (c *cursor[T]) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.rows != nil {
		if err := c.rows.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rows: %w", err))
		}
	}
	if c.conn != nil {
		if c.readOnly {
			// Session state survives on pooled connections.
			if _, err := c.conn.ExecContext(context.Background(), c.dialect.readWriteStatement()); err != nil {
				c.logger.Warn("failed to reset read-only session", "error", err)
			}
		}
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release connection: %w", err))
		}
	}

	if c.opts.OnRelease != nil {
		c.opts.OnRelease()
	}
	c.logger.Debug("source cursor released", "token", c.Token())

	return errors.Join(errs...)
}

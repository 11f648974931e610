package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested run doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidRun is returned when a run is missing required fields
	ErrInvalidRun = errors.New("invalid run")
)

// DefaultListLimit caps ListRuns when no positive limit is given
const DefaultListLimit = 20

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

var _ Storage = (*SQLiteStorage)(nil)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStorage creates a new SQLite ledger at dbPath
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// StartRun inserts run with status running. StartedAt defaults to now.
func (s *SQLiteStorage) StartRun(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" || run.Job == "" || run.Index == "" {
		return fmt.Errorf("%w: id, job and index are required", ErrInvalidRun)
	}

	now := s.now()
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	run.UpdatedAt = now
	run.Status = StatusRunning

	query := `
		INSERT INTO runs (id, job, index_name, mode, strategy, processed, succeeded, failed,
			batches, token, status, error, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.Job, run.Index, run.Mode, run.Strategy,
		run.Processed, run.Succeeded, run.Failed, run.Batches, run.Token,
		string(run.Status), run.Error,
		run.StartedAt.UnixMilli(), run.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// RecordProgress updates counters and token of a running run
func (s *SQLiteStorage) RecordProgress(ctx context.Context, runID string, p Progress) error {
	query := `
		UPDATE runs SET processed = ?, succeeded = ?, failed = ?, batches = ?, token = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		p.Processed, p.Succeeded, p.Failed, p.Batches, p.Token, s.now().UnixMilli(), runID)
	if err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}
	return expectOne(res)
}

// FinishRun stores the final counters and terminal status
func (s *SQLiteStorage) FinishRun(ctx context.Context, runID string, status RunStatus, p Progress, runErr error) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: %q is not a terminal status", ErrInvalidRun, status)
	}

	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}

	now := s.now().UnixMilli()
	query := `
		UPDATE runs SET processed = ?, succeeded = ?, failed = ?, batches = ?, token = ?,
			status = ?, error = ?, finished_at = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		p.Processed, p.Succeeded, p.Failed, p.Batches, p.Token,
		string(status), msg, now, now, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return expectOne(res)
}

const runColumns = `id, job, index_name, mode, strategy, processed, succeeded, failed,
	batches, token, status, error, started_at, finished_at, updated_at`

// GetRun retrieves a run by id
func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. An empty job lists
// every job.
func (s *SQLiteStorage) ListRuns(ctx context.Context, job string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := "SELECT " + runColumns + " FROM runs"
	args := []any{}
	if job != "" {
		query += " WHERE job = ?"
		args = append(args, job)
	}
	query += " ORDER BY started_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LastCheckpoint returns the token and strategy left by the latest unfinished
// run of job into index
func (s *SQLiteStorage) LastCheckpoint(ctx context.Context, job, index string) (Checkpoint, error) {
	query := `
		SELECT status, token, strategy FROM runs
		WHERE job = ? AND index_name = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1
	`
	var (
		status string
		cp     Checkpoint
	)
	err := s.db.QueryRowContext(ctx, query, job, index).Scan(&status, &cp.Token, &cp.Strategy)
	if err == sql.ErrNoRows {
		return Checkpoint{}, nil
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("failed to read last checkpoint: %w", err)
	}
	if RunStatus(status) == StatusCompleted {
		return Checkpoint{}, nil
	}
	return cp, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (*Run, error) {
	var (
		run        Run
		status     string
		startedAt  int64
		finishedAt sql.NullInt64
		updatedAt  int64
	)
	err := r.Scan(&run.ID, &run.Job, &run.Index, &run.Mode, &run.Strategy,
		&run.Processed, &run.Succeeded, &run.Failed, &run.Batches, &run.Token,
		&status, &run.Error, &startedAt, &finishedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	run.StartedAt = time.UnixMilli(startedAt)
	run.UpdatedAt = time.UnixMilli(updatedAt)
	if finishedAt.Valid {
		t := time.UnixMilli(finishedAt.Int64)
		run.FinishedAt = &t
	}
	return &run, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

package storage

import (
	"context"
	"time"
)

// Storage records sync runs and their progress.
type Storage interface {
	// StartRun inserts a new run in the running state.
	StartRun(ctx context.Context, run *Run) error
	// RecordProgress stores counters and the resume token after a batch.
	RecordProgress(ctx context.Context, runID string, p Progress) error
	// FinishRun sets the terminal status of a run.
	FinishRun(ctx context.Context, runID string, status RunStatus, p Progress, runErr error) error

	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, job string, limit int) ([]*Run, error)

	// LastCheckpoint returns where the most recent run of job into index
	// stopped. It is zero when that run completed or none exists.
	LastCheckpoint(ctx context.Context, job, index string) (Checkpoint, error)

	Close() error
}

// Checkpoint is the resume point of an unfinished run. A token is only
// meaningful to a reader using the same strategy.
type Checkpoint struct {
	Token    string
	Strategy string
}

// RunStatus is the lifecycle state of a run
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusTruncated RunStatus = "truncated"
	StatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status ends a run.
func (s RunStatus) Terminal() bool {
	return s != StatusRunning
}

// Run is one invocation of a sync job
type Run struct {
	ID         string
	Job        string
	Index      string
	Mode       string
	Strategy   string
	Processed  int
	Succeeded  int
	Failed     int
	Batches    int
	Token      string
	Status     RunStatus
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
	UpdatedAt  time.Time
}

// Progress is the per-batch snapshot written to the ledger
type Progress struct {
	Processed int
	Succeeded int
	Failed    int
	Batches   int
	Token     string
}

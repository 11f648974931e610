package syncer

import (
	"fmt"
	"time"

	"github.com/dshills/searchsync/internal/storage"
	"github.com/dshills/searchsync/pkg/types"
)

// Summary is the final report of a run.
type Summary struct {
	RunID         string          `json:"run_id"`
	Job           string          `json:"job"`
	Index         string          `json:"index"`
	Mode          types.WriteMode `json:"mode"`
	Stats         types.RunStats  `json:"stats"`
	Batches       int             `json:"batches"`
	StartedAt     time.Time       `json:"started_at"`
	Elapsed       time.Duration   `json:"elapsed"`
	DocsPerSecond float64         `json:"docs_per_second"`

	// Token resumes a truncated run where it stopped.
	Token     string `json:"token,omitempty"`
	Truncated bool   `json:"truncated"`
	Err       error  `json:"-"`
}

// Status maps the summary onto a ledger status.
func (s *Summary) Status() storage.RunStatus {
	if s.Truncated {
		return storage.StatusTruncated
	}
	if s.Err != nil {
		return storage.StatusFailed
	}
	return storage.StatusCompleted
}

func (s *Summary) progress() storage.Progress {
	return storage.Progress{
		Processed: s.Stats.Processed,
		Succeeded: s.Stats.Succeeded,
		Failed:    s.Stats.Failed,
		Batches:   s.Batches,
		Token:     s.Token,
	}
}

// String renders the one-line report printed at the end of a run.
func (s *Summary) String() string {
	out := fmt.Sprintf("%s -> %s (%s): processed=%d succeeded=%d failed=%d batches=%d elapsed=%s rate=%.1f docs/sec",
		s.Job, s.Index, s.Mode,
		s.Stats.Processed, s.Stats.Succeeded, s.Stats.Failed,
		s.Batches, s.Elapsed.Round(time.Millisecond), s.DocsPerSecond)
	if s.Truncated {
		out += fmt.Sprintf(" truncated at token=%q", s.Token)
	}
	return out
}

func throughput(processed int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(processed) / elapsed.Seconds()
}

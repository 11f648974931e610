// Package notify publishes sync run events on NATS so downstream search
// caches can be invalidated when an index changes.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/dshills/searchsync/internal/syncer"
)

// DefaultSubject prefixes event subjects; the outcome is appended.
const DefaultSubject = "searchsync.sync"

// Event is the payload of a run event.
type Event struct {
	RunID         string  `json:"run_id"`
	Job           string  `json:"job"`
	Index         string  `json:"index"`
	Mode          string  `json:"mode"`
	Status        string  `json:"status"`
	Processed     int     `json:"processed"`
	Succeeded     int     `json:"succeeded"`
	Failed        int     `json:"failed"`
	Batches       int     `json:"batches"`
	ElapsedMs     int64   `json:"elapsed_ms"`
	DocsPerSecond float64 `json:"docs_per_second"`
	Token         string  `json:"token,omitempty"`
	Error         string  `json:"error,omitempty"`
	FinishedAt    string  `json:"finished_at"`
}

// NewEvent builds the event for a finished run.
func NewEvent(s *syncer.Summary) Event {
	ev := Event{
		RunID:         s.RunID,
		Job:           s.Job,
		Index:         s.Index,
		Mode:          string(s.Mode),
		Status:        string(s.Status()),
		Processed:     s.Stats.Processed,
		Succeeded:     s.Stats.Succeeded,
		Failed:        s.Stats.Failed,
		Batches:       s.Batches,
		ElapsedMs:     s.Elapsed.Milliseconds(),
		DocsPerSecond: s.DocsPerSecond,
		Token:         s.Token,
		FinishedAt:    s.StartedAt.Add(s.Elapsed).UTC().Format(time.RFC3339),
	}
	if s.Err != nil {
		ev.Error = s.Err.Error()
	}
	return ev
}

// Subject returns the subject an event is published on, e.g.
// searchsync.sync.completed.
func Subject(prefix string, ev Event) string {
	if prefix == "" {
		prefix = DefaultSubject
	}
	return prefix + "." + ev.Status
}

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publisher sends run events to NATS.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// Connect dials url and returns a publisher for subject.
func Connect(url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("searchsync"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewPublisher(nc, subject), nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(nc *nats.Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{nc: nc, subject: subject}
}

// Notify publishes the event for s. Trace context from ctx is injected into
// the message headers.
func (p *Publisher) Notify(ctx context.Context, s *syncer.Summary) error {
	ev := NewEvent(s)
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := &nats.Msg{
		Subject: Subject(p.subject, ev),
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return p.nc.FlushWithContext(ctx)
}

// Close drains the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}

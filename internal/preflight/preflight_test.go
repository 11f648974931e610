package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/searchsync/internal/bulk"
	"github.com/dshills/searchsync/internal/bulk/bulktest"
	"github.com/dshills/searchsync/internal/embedder"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestCheck_AllHealthy(t *testing.T) {
	srv := bulktest.New(t)
	emb, err := embedder.NewLocalProvider(8, nil)
	require.NoError(t, err)

	c := New(fastRetry(), nil,
		SinkCheck(bulk.New(bulk.Config{URL: srv.URL})),
		EmbedderCheck(emb),
	)
	assert.NoError(t, c.Check(context.Background()))
}

func TestCheck_RetriesUntilHealthy(t *testing.T) {
	var calls atomic.Int32
	dep := Dependency{Name: "flaky", Check: func(context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("not yet")
		}
		return nil
	}}

	assert.NoError(t, New(fastRetry(), nil, dep).Check(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestCheck_ReportsEveryUnreachableDependency(t *testing.T) {
	srv := bulktest.New(t)
	srv.HealthStatus = "red"

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(down.Close)
	emb, err := embedder.NewServiceProvider(down.URL, 384, time.Second, nil)
	require.NoError(t, err)

	var healthy atomic.Int32
	c := New(fastRetry(), nil,
		SinkCheck(bulk.New(bulk.Config{URL: srv.URL})),
		EmbedderCheck(emb),
		Dependency{Name: "ok", Check: func(context.Context) error { healthy.Add(1); return nil }},
	)

	err = c.Check(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.Contains(t, err.Error(), "search")
	assert.Contains(t, err.Error(), "embedder")
	assert.NotContains(t, err.Error(), "ok:")
	assert.Equal(t, int32(1), healthy.Load())
}

func TestRetryWithBackoff_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryWithBackoff(ctx, RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2},
		func(context.Context) error {
			calls++
			cancel()
			return errors.New("boom")
		})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_ReturnsLastError(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetry(), func(context.Context) error {
		calls++
		return errors.New("still down")
	})
	assert.EqualError(t, err, "still down")
	assert.Equal(t, 3, calls)
}

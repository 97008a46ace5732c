package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ProcessesSubmittedWork(t *testing.T) {
	var processed atomic.Int64
	pool := NewPool(2, 16, func(_ context.Context, n int) error {
		processed.Add(int64(n))
		return nil
	})

	require.NoError(t, pool.Start(context.Background()))
	for i := 1; i <= 5; i++ {
		require.NoError(t, pool.Submit(i))
	}
	require.NoError(t, pool.Stop(time.Second))

	assert.Equal(t, int64(15), processed.Load())

	stats := pool.Stats()
	assert.Equal(t, int64(5), stats.Submitted)
	assert.Equal(t, int64(5), stats.Processed)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestPool_SubmitBeforeStart(t *testing.T) {
	pool := NewPool(1, 1, func(_ context.Context, _ int) error { return nil })
	assert.ErrorIs(t, pool.Submit(1), ErrPoolNotStarted)
}

func TestPool_DoubleStart(t *testing.T) {
	pool := NewPool(1, 1, func(_ context.Context, _ int) error { return nil })
	require.NoError(t, pool.Start(context.Background()))
	assert.ErrorIs(t, pool.Start(context.Background()), ErrPoolAlreadyStarted)
	require.NoError(t, pool.Stop(time.Second))
}

func TestPool_QueueFullBackpressure(t *testing.T) {
	block := make(chan struct{})
	pool := NewPool(1, 1, func(_ context.Context, _ int) error {
		<-block
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))

	// One item occupies the worker, one fills the queue; keep submitting
	// until the queue rejects.
	var sawFull bool
	for i := 0; i < 10; i++ {
		if err := pool.Submit(i); errors.Is(err, ErrQueueFull) {
			sawFull = true
			break
		}
	}
	assert.True(t, sawFull)
	assert.Positive(t, pool.Stats().Dropped)

	close(block)
	require.NoError(t, pool.Stop(time.Second))
}

func TestPool_FailedWorkCounted(t *testing.T) {
	pool := NewPool(1, 4, func(_ context.Context, n int) error {
		if n%2 == 0 {
			return errors.New("even numbers fail")
		}
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))
	for i := 0; i < 4; i++ {
		require.NoError(t, pool.Submit(i))
	}
	require.NoError(t, pool.Stop(time.Second))

	stats := pool.Stats()
	assert.Equal(t, int64(4), stats.Processed)
	assert.Equal(t, int64(2), stats.Failed)
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := NewPool(1, 4, func(_ context.Context, _ int) error { return nil })
	require.NoError(t, pool.Start(context.Background()))
	require.NoError(t, pool.Stop(time.Second))
	assert.ErrorIs(t, pool.Submit(1), ErrPoolStopped)
}

func TestPool_NilProcessorPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewPool[int](1, 1, nil)
	})
}

func TestPool_Defaults(t *testing.T) {
	pool := NewPool(0, 0, func(_ context.Context, _ int) error { return nil })
	stats := pool.Stats()
	assert.Equal(t, 4, stats.Workers)
	assert.Equal(t, 256, stats.QueueSize)
}

func TestPool_WithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	pool := NewPool(1, 8,
		func(_ context.Context, _ int) error { return nil },
		WithMetrics[int](reg, "test_pool"))

	require.NoError(t, pool.Start(context.Background()))
	require.NoError(t, pool.Submit(1))
	require.NoError(t, pool.Stop(time.Second))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["test_pool_submitted_total"])
	assert.True(t, names["test_pool_processed_total"])
	assert.True(t, names["test_pool_queue_depth"])
}

package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_AcquireRelease(t *testing.T) {
	g := New(Config{MaxConcurrent: 1})

	release, err := g.Acquire(context.Background())
	require.NoError(t, err)

	_, err = g.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	release()

	release2, err := g.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}

func TestGate_AcquireWaitTimesOut(t *testing.T) {
	metrics := NewMetrics()
	g := New(Config{MaxConcurrent: 1, AcquireWait: 20 * time.Millisecond, Metrics: metrics})

	release, err := g.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	start := time.Now()
	_, err = g.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrAcquireTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, int64(1), metrics.AcquireTimeouts())
}

func TestGate_AcquireWaitSucceedsWhenSlotFrees(t *testing.T) {
	g := New(Config{MaxConcurrent: 1, AcquireWait: time.Second})

	release, err := g.Acquire(context.Background())
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		release()
	}()

	release2, err := g.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}

func TestGate_ContextCancellation(t *testing.T) {
	g := New(Config{MaxConcurrent: 1, AcquireWait: time.Second})

	release, err := g.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = g.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGate_Do(t *testing.T) {
	metrics := NewMetrics()
	g := New(Config{MaxConcurrent: 2, Metrics: metrics})

	err := g.Do(context.Background(), func(ctx context.Context) error {
		assert.Equal(t, int64(1), metrics.ActiveJobs())
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int64(0), metrics.ActiveJobs())
}

func TestGate_DoPropagatesError(t *testing.T) {
	g := New(Config{MaxConcurrent: 1})

	boom := errors.New("boom")
	err := g.Do(context.Background(), func(ctx context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
}

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.IncActiveJobs()
	m.IncCompletedJobs()
	m.IncCompletedJobs()
	m.IncFailedJobs()
	m.IncRejected()

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.ActiveJobs)
	assert.Equal(t, int64(2), snap.CompletedJobs)
	assert.Equal(t, int64(1), snap.FailedJobs)
	assert.Equal(t, int64(1), snap.Rejected)
	assert.Equal(t, int64(0), snap.AcquireTimeouts)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.IncActiveJobs()
	m.DecActiveJobs()
	m.IncCompletedJobs()

	assert.NotPanics(t, func() { m.IncRejected() })
}

// Package limiter gates concurrent export jobs. An export holds external
// TTS/ASR connections and CPU for DSP, so the server caps how many run at
// once and rejects the overflow quickly instead of queueing unbounded work.
package limiter

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrBusy indicates the gate refused a slot because capacity is exhausted.
	ErrBusy = errors.New("limiter: busy")
	// ErrAcquireTimeout indicates no slot freed up within the configured wait.
	ErrAcquireTimeout = errors.New("limiter: acquire timeout")
)

// Gate limits concurrent jobs using a semaphore-style slot pool.
type Gate struct {
	slots       chan struct{}
	acquireWait time.Duration
	metrics     *Metrics
}

// Config controls the gate's capacity and patience.
type Config struct {
	MaxConcurrent int
	// AcquireWait is how long a caller may wait for a slot before being
	// rejected. Zero means reject immediately when full.
	AcquireWait time.Duration
	Metrics     *Metrics
}

// New constructs a Gate with the provided configuration.
func New(cfg Config) *Gate {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &Gate{
		slots:       make(chan struct{}, cfg.MaxConcurrent),
		acquireWait: cfg.AcquireWait,
		metrics:     cfg.Metrics,
	}
}

// Acquire reserves a slot. The returned release function must be called to
// free it.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.slots <- struct{}{}:
		return g.onAcquire(), nil
	default:
	}

	if g.acquireWait <= 0 {
		g.metrics.IncRejected()
		return nil, ErrBusy
	}

	timer := time.NewTimer(g.acquireWait)
	defer timer.Stop()

	select {
	case g.slots <- struct{}{}:
		return g.onAcquire(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		g.metrics.IncAcquireTimeouts()
		return nil, ErrAcquireTimeout
	}
}

// Do executes fn while holding a slot, releasing it when fn returns.
func (g *Gate) Do(ctx context.Context, fn func(context.Context) error) error {
	release, err := g.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return fn(ctx)
}

func (g *Gate) onAcquire() func() {
	g.metrics.IncActiveJobs()

	return func() {
		select {
		case <-g.slots:
		default:
		}
		g.metrics.DecActiveJobs()
	}
}

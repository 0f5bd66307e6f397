package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrTooManyRuns is returned by TryAcquireRun when every run slot is busy.
var ErrTooManyRuns = errors.New("too many active runs")

// Config holds resource limits.
type Config struct {
	// MaxRuns is the maximum number of concurrently active runs.
	// If 0, runs are not limited.
	MaxRuns int64

	// BatchesPerSecond paces batch execution across all runs.
	// If 0, unlimited.
	BatchesPerSecond float64

	// BatchBurst is the token bucket size. If 0, defaults to 1.
	BatchBurst int
}

// Controller manages run slots and batch pacing.
type Controller struct {
	runSem *semaphore.Weighted // nil if unlimited
	active atomic.Int64

	batchLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.BatchBurst <= 0 {
		cfg.BatchBurst = 1
	}

	c := &Controller{}

	if cfg.MaxRuns > 0 {
		c.runSem = semaphore.NewWeighted(cfg.MaxRuns)
	}

	if cfg.BatchesPerSecond > 0 {
		c.batchLimiter = rate.NewLimiter(rate.Limit(cfg.BatchesPerSecond), cfg.BatchBurst)
	}

	return c
}

// AcquireRun reserves a run slot, blocking until one is free.
func (c *Controller) AcquireRun(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.runSem != nil {
		if err := c.runSem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	c.active.Add(1)
	return nil
}

// TryAcquireRun reserves a run slot without blocking.
func (c *Controller) TryAcquireRun() error {
	if c == nil {
		return nil
	}
	if c.runSem != nil && !c.runSem.TryAcquire(1) {
		return ErrTooManyRuns
	}
	c.active.Add(1)
	return nil
}

// ReleaseRun releases a run slot.
func (c *Controller) ReleaseRun() {
	if c == nil {
		return
	}
	if c.runSem != nil {
		c.runSem.Release(1)
	}
	c.active.Add(-1)
}

// ActiveRuns returns the number of held run slots.
func (c *Controller) ActiveRuns() int64 {
	if c == nil {
		return 0
	}
	return c.active.Load()
}

// WaitBatch blocks until the pacing limiter admits one batch.
func (c *Controller) WaitBatch(ctx context.Context) error {
	if c == nil || c.batchLimiter == nil {
		return nil
	}
	return c.batchLimiter.Wait(ctx)
}

package executor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Runner schedules one background task per execution. Drivers never poll on
// the caller's goroutine; they hand their loop to a Runner.
type Runner interface {
	Submit(task func()) error
}

// Pool is the Runner backing production executions: a bounded, elastic worker
// pool. The engine's page protocol is a blocking call-and-response, so each
// in-flight query pins one worker for its whole lifetime. Capacity bounds the
// number of concurrent executions; idle workers are reclaimed after
// idleTimeout; saturated submits block the submitter rather than queue
// without bound.
type Pool struct {
	inner *ants.Pool
}

// NewPool creates a worker pool with the given capacity and idle-worker
// expiry.
func NewPool(capacity int, idleTimeout time.Duration, logger *slog.Logger) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	inner, err := ants.NewPool(capacity,
		ants.WithExpiryDuration(idleTimeout),
		ants.WithPanicHandler(func(v any) {
			logger.Error("query worker panic", "panic", v)
		}))
	if err != nil {
		return nil, fmt.Errorf("create query worker pool: %w", err)
	}
	return &Pool{inner: inner}, nil
}

// Submit schedules a task, blocking while the pool is saturated.
func (p *Pool) Submit(task func()) error {
	return p.inner.Submit(task)
}

// Running returns the number of busy workers.
func (p *Pool) Running() int {
	return p.inner.Running()
}

// Release shuts the pool down, waiting up to timeout for running tasks.
func (p *Pool) Release(timeout time.Duration) error {
	return p.inner.ReleaseTimeout(timeout)
}

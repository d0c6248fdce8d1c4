package executor

import (
	"context"
	"sync"
)

// Future is a one-shot, multi-waiter result cell. It resolves at most once;
// every Get observes the same value. The zero value is not usable, construct
// with NewFuture.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
}

// NewFuture creates an unresolved future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// complete resolves the future. Calls after the first are no-ops.
func (f *Future[T]) complete(v T) {
	f.once.Do(func() {
		f.value = v
		close(f.done)
	})
}

// Get blocks until the future resolves or the context is canceled.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed when the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the future has resolved.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

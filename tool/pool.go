package tool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultPoolSize bounds concurrent blocking calls when no size is configured.
var DefaultPoolSize = max(4, runtime.NumCPU())

// Pool runs blocking library calls that have no context support on a bounded
// set of workers. A caller that gives up at its deadline abandons the call; the
// worker slot is released only when the call actually returns.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
}

// NewPool returns a pool with size workers.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: int64(size)}
}

// Size returns the worker bound.
func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	return int(p.size)
}

// Future is the pending result of an offloaded call.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Wait blocks until the call completes or ctx ends.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, contextError(ctx, "offloaded call")
	}
}

// Submit schedules fn on the pool once a worker slot is free.
func Submit[T any](ctx context.Context, p *Pool, fn func() (T, error)) (*Future[T], error) {
	if p == nil {
		return nil, errors.New("tool: pool is nil")
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, contextError(ctx, "waiting for worker")
	}

	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer p.sem.Release(1)
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = NewError(CodeInternalFailure, fmt.Sprintf("offloaded call panicked: %v", r), nil)
			}
		}()
		f.value, f.err = fn()
	}()
	return f, nil
}

// Offload runs fn on the pool and waits at most timeout for its result.
func Offload[T any](ctx context.Context, p *Pool, timeout time.Duration, fn func() (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	f, err := Submit(ctx, p, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.Wait(ctx)
}

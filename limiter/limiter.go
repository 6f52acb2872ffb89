// Package limiter bounds the number of concurrent expensive operations,
// admitting queued tasks strictly FIFO as slots free up.
package limiter

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter gates concurrent execution of tasks at a fixed maximum. Tasks that
// cannot be admitted immediately queue in FIFO order and start as soon as an
// active slot frees.
type Limiter struct {
	sem *semaphore.Weighted
	max int64
}

// New creates a Limiter admitting at most max concurrent tasks. max is
// clamped to at least 1.
func New(max int) *Limiter {
	if max < 1 {
		max = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(max)), max: int64(max)}
}

// Run admits task under the limiter, blocking until a slot is available.
// The slot is released as soon as task returns, whether it succeeds or
// fails; a failing task never poisons the limiter for later callers. Queued
// tasks cannot be withdrawn once Run has been called: cancelling ctx does not
// remove a queued task, it is only passed on to task, and callers enforce
// their own timeouts inside task.
func Run[T any](ctx context.Context, l *Limiter, task func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := l.sem.Acquire(context.Background(), 1); err != nil {
		return zero, err
	}
	defer l.sem.Release(1)
	return task(ctx)
}

// Max returns the configured concurrency bound.
func (l *Limiter) Max() int {
	return int(l.max)
}

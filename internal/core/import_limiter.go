package core

// import_limiter.go implements concurrency control for imports.
//
// An import rewrites large parts of the matrix in one transaction, so running
// several at once only produces lock contention and last-write-wins churn.
// The limiter bounds parallel imports with a weighted semaphore; when every
// slot is taken a new import waits up to maxWait and then fails with
// ErrTooManyImports. WaitForDrain supports graceful shutdown.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyImports is returned when all import slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyImports = errors.New("too many concurrent imports, please try again later")

// DefaultMaxConcurrentImports is the default limit for parallel imports.
const DefaultMaxConcurrentImports = 1

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 10 * time.Second

// ImportLimiter controls concurrent import processing.
type ImportLimiter struct {
	sem     *semaphore.Weighted
	max     int64
	maxWait time.Duration
	active  atomic.Int64
}

// NewImportLimiter creates a limiter that allows at most maxConcurrent
// simultaneous imports. Requests that cannot acquire a slot within maxWait
// receive ErrTooManyImports.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &ImportLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     int64(maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for an import slot. The caller MUST call Release when the
// import completes.
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		// Distinguish the caller giving up from our own wait expiring.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyImports
	}
	l.active.Add(1)
	return nil
}

// Release releases a previously acquired slot.
func (l *ImportLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// ActiveCount returns the number of currently running imports.
func (l *ImportLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// WaitForDrain blocks until all active imports complete or ctx is done.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ImportLimiterStatus is a snapshot of the limiter's state.
type ImportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *ImportLimiter) Status() ImportLimiterStatus {
	active := l.ActiveCount()
	return ImportLimiterStatus{
		Active:        active,
		Available:     int(l.max) - active,
		MaxConcurrent: int(l.max),
	}
}

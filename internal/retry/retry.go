package retry

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var ErrTooManyAttempts = errors.New("too many retry attempts")

type Callable func(attempt int) error

type retryError struct {
	error
	attempt int
}

func (e *retryError) Unwrap() error { return e.error }

// Error marks err as recoverable, any other error stops the retries
func Error(err error, attempt int) error {
	if err == nil {
		return nil
	}
	return &retryError{error: err, attempt: attempt}
}

type Attempts interface {
	Next() (time.Duration, bool)
	Current() int
}

// Start calls cb until it succeeds, returns an error not marked with Error,
// runs out of attempts or ctx is done. Waits between calls come from a.
func Start(ctx context.Context, a Attempts, cb Callable) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := cb(a.Current())
		if err == nil {
			return nil
		}

		// callable encountered an unrecoverable error
		var rErr *retryError
		if !errors.As(err, &rErr) {
			return errors.Wrapf(err, "retry %d failed", a.Current())
		}

		next, stop := a.Next()
		if stop {
			return errors.Wrapf(ErrTooManyAttempts, "last error: %v", rErr.error)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(next):
			continue
		}
	}
}

// Incremental retries cb up to maxRetries times, every wait is step
// longer than the previous one
func Incremental(ctx context.Context, step time.Duration, maxRetries int, cb Callable) error {
	return Start(ctx, IncrementalAttempts(step, maxRetries), cb)
}

type incrementalAttempts struct {
	sync.RWMutex
	prev time.Duration
	step time.Duration
	max  int
	curr int
}

func (a *incrementalAttempts) Next() (time.Duration, bool) {
	a.Lock()
	defer a.Unlock()

	a.curr++
	if a.curr > a.max {
		return 0, true
	}

	next := a.prev + a.step
	a.prev = next

	return next, false
}

func (a *incrementalAttempts) Current() int {
	a.RLock()
	defer a.RUnlock()
	return a.curr
}

// IncrementalAttempts waits step, 2*step, 3*step... between attempts
func IncrementalAttempts(step time.Duration, max int) Attempts {
	return &incrementalAttempts{
		prev: 0,
		step: step,
		max:  max,
		curr: 1,
	}
}

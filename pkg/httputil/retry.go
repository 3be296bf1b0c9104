// Package httputil provides shared HTTP transport helpers.
//
// The aggregation engine issues at most one logical call per unit of work
// (one graph query per dependency, one license-scoring call per manifest)
// and reacts only to success or failure. Retry and backoff policy for
// transient failures lives here, below the engine, so the core logic never
// sees retry internals.
package httputil

import (
	"context"
	"errors"
	"time"
)

// Defaults used by [RetryWithBackoff].
const (
	defaultAttempts = 3
	defaultDelay    = time.Second
)

// RetryableError marks a failure as transient. Transport code wraps
// network errors and 5xx responses with it; [Retry] re-attempts only
// errors carrying this marker and returns everything else immediately.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err carries the [RetryableError] marker
// anywhere in its chain.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Retry runs fn until it succeeds, fails permanently, or the attempt
// budget is spent. The delay between attempts doubles each time. A
// cancelled context wins over a pending backoff sleep; the last
// transient error is returned when the budget runs out.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt == attempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// RetryWithBackoff is [Retry] with the package defaults: three attempts
// starting at a one second delay.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, defaultAttempts, defaultDelay, fn)
}

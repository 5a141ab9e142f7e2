// Package retry provides a bounded-attempt loop for operations whose
// waiting is done inside the attempt itself — chunk retransmission
// waits on a socket read deadline, so there is no backoff sleep between
// tries; the deadline is the clock.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError wraps an error to signal that retrying will not help.
// Return [Permanent](err) from the operation function to stop retrying
// immediately.  Local I/O failures during a transfer are permanent;
// only communication timeouts are retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable.  The loop will return the
// inner error immediately without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err has been marked as permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ── Loop ─────────────────────────────────────────────────────────────

// Loop retries an operation a fixed number of times.
type Loop struct {
	// MaxAttempts is the total number of tries including the first.
	// Zero or negative means a single attempt.
	MaxAttempts int
	// Delay is an optional pause between attempts.  The chunk
	// retransmission path leaves it zero: the per-attempt ack wait
	// already bounds the pacing.
	Delay time.Duration
}

// Do executes fn until it succeeds, returns a permanent error, or the
// attempt budget is exhausted.  The attempt parameter is 1-based.
func (l *Loop) Do(ctx context.Context, fn func(attempt int) error) error {
	max := l.MaxAttempts
	if max < 1 {
		max = 1
	}

	var err error
	for attempt := 1; attempt <= max; attempt++ {
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		err = fn(attempt)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		if attempt == max {
			break
		}

		if l.Delay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(l.Delay):
			}
		}
	}
	return fmt.Errorf("max retries (%d) exceeded: %w", max, err)
}

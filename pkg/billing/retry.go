package billing

import (
	"context"
	"errors"
	"math"
	"time"
)

// BackoffStrategy calculates the delay before a retry attempt.
type BackoffStrategy interface {
	// NextInterval returns the delay for the given attempt, starting at 1.
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff grows the retry delay exponentially up to a cap.
// The zero value is usable and applies defaults suited to processor API
// calls: 500ms initial, doubling, capped at 5s.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	initial := e.InitialInterval
	if initial == 0 {
		initial = 500 * time.Millisecond
	}
	limit := e.MaxInterval
	if limit == 0 {
		limit = 5 * time.Second
	}
	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if interval > float64(limit) {
		interval = float64(limit)
	}
	return time.Duration(interval)
}

// withRetry runs call up to attempts times, each under its own timeout,
// backing off between failures. The caller's context cancellation stops
// the loop immediately and is never retried past.
func withRetry(ctx context.Context, attempts int, timeout time.Duration, backoff BackoffStrategy, call func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		err := call(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(backoff.NextInterval(attempt)):
		}
	}
	return lastErr
}

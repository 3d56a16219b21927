package util

import (
	"context"
	"math/rand/v2"
	"time"
)

// Retry calls fn up to maxAttempts times with jittered exponential backoff
// starting at baseDelay. It returns nil on the first successful call, or the
// last error once attempts are exhausted. Cancellation is honoured between
// attempts.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= maxAttempts {
			return err
		}

		// Backoff doubles per attempt; jitter spreads the sleep over
		// [delay/2, delay) so concurrent retries against the same
		// provider don't fire in lockstep.
		delay := baseDelay << (attempt - 1)
		sleep := delay
		if half := delay / 2; half > 0 {
			sleep = half + rand.N(half)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

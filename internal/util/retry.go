package util

import (
	"context"
	"time"
)

// Retry runs fn until it succeeds, making at most maxAttempts calls. Each
// failure doubles the wait before the next call, starting from baseDelay.
// A cancelled context aborts the wait and returns ctx.Err(); otherwise the
// last error from fn is returned.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	delay := baseDelay
	var lastErr error
	for attempt := 1; ; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			return lastErr
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}

package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces calls so that at most perMinute of them start per
// minute. Waiters are granted slots in arrival order; the first call never
// blocks.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration // minimum spacing between granted slots
	next     time.Time     // earliest time the next slot opens
}

// NewRateLimiter creates a RateLimiter allowing perMinute operations per
// minute.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{interval: time.Minute / time.Duration(perMinute)}
}

// Wait blocks until the caller's slot opens or the context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	if rl.next.Before(now) {
		rl.next = now
	}
	wait := rl.next.Sub(now)
	rl.next = rl.next.Add(rl.interval)
	rl.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package ratelimiter

import (
	"context"
	"time"
)

// RateLimiter is the interface for rate limiting.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// Wait blocks until the limiter allows a request or the context is done.
// It polls rather than reserving: the limiters here do not expose a
// next-token deadline.
func Wait(ctx context.Context, rl RateLimiter) error {
	for {
		if rl.Allow() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

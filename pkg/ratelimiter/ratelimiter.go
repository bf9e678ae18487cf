package ratelimiter

import "context"

// RateLimiter is the interface for request admission control.
type RateLimiter interface {
	// Allow returns true if a request from the given client may proceed,
	// false once the client's quota for the current window is exhausted.
	Allow(ctx context.Context, clientID string) bool
}

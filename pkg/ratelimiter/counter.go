package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// clientWindow tracks one client's count within the current fixed window.
type clientWindow struct {
	count       int
	windowStart time.Time
}

// FixedWindowCounter implements RateLimiter with a per-client fixed window
// counter kept in process memory. Each client gets up to limit requests per
// window; the counter resets when the window elapses.
type FixedWindowCounter struct {
	limit  int
	window time.Duration

	mutex   sync.Mutex
	clients map[string]*clientWindow
	now     func() time.Time // injectable for tests
}

// NewFixedWindowCounter creates a FixedWindowCounter.
// limit: the maximum number of requests allowed per client in the window.
// window: the duration of the time window.
func NewFixedWindowCounter(limit int, window time.Duration) *FixedWindowCounter {
	return &FixedWindowCounter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientWindow),
		now:     time.Now,
	}
}

// Allow checks whether a request from clientID fits in its current window.
// It resets the client's counter if the window has passed.
func (fwc *FixedWindowCounter) Allow(_ context.Context, clientID string) bool {
	fwc.mutex.Lock()
	defer fwc.mutex.Unlock()

	now := fwc.now()
	cw, ok := fwc.clients[clientID]
	if !ok || now.After(cw.windowStart.Add(fwc.window)) {
		cw = &clientWindow{windowStart: now}
		fwc.clients[clientID] = cw
	}

	if cw.count < fwc.limit {
		cw.count++
		return true
	}
	return false
}

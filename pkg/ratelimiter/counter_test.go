package ratelimiter

import (
	"context"
	"testing"
	"time"
)

func TestFixedWindowCounter_PerClientQuota(t *testing.T) {
	fwc := NewFixedWindowCounter(2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if !fwc.Allow(ctx, "1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if fwc.Allow(ctx, "1.2.3.4") {
		t.Error("third request in the window should be rejected")
	}

	// A different client has its own quota.
	if !fwc.Allow(ctx, "5.6.7.8") {
		t.Error("other client should not share the exhausted quota")
	}
}

func TestFixedWindowCounter_WindowReset(t *testing.T) {
	fwc := NewFixedWindowCounter(1, time.Minute)
	ctx := context.Background()

	current := time.Now()
	fwc.now = func() time.Time { return current }

	if !fwc.Allow(ctx, "1.2.3.4") {
		t.Fatal("first request should be allowed")
	}
	if fwc.Allow(ctx, "1.2.3.4") {
		t.Fatal("second request in the same window should be rejected")
	}

	current = current.Add(2 * time.Minute)
	if !fwc.Allow(ctx, "1.2.3.4") {
		t.Error("request after the window elapsed should be allowed again")
	}
}

package http

import (
	"context"
	"testing"
	"time"
)

func TestLoginLimiterLocalWindow(t *testing.T) {
	now := time.Now()
	limiter := NewLoginLimiter(nil, 3, time.Minute)
	limiter.nowFunc = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if ok, _ := limiter.Allow(ctx, "1.2.3.4"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	ok, retryAfter := limiter.Allow(ctx, "1.2.3.4")
	if ok {
		t.Fatal("fourth attempt should be denied")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("retryAfter = %v, want within (0, 1m]", retryAfter)
	}

	// A different client is unaffected.
	if ok, _ := limiter.Allow(ctx, "5.6.7.8"); !ok {
		t.Fatal("other client should be allowed")
	}

	// The window expires and the counter resets.
	now = now.Add(time.Minute + time.Second)
	if ok, _ := limiter.Allow(ctx, "1.2.3.4"); !ok {
		t.Fatal("attempt after window should be allowed")
	}
}

func TestLoginLimiterDisabled(t *testing.T) {
	limiter := NewLoginLimiter(nil, 0, time.Minute)
	for i := 0; i < 100; i++ {
		if ok, _ := limiter.Allow(context.Background(), "x"); !ok {
			t.Fatal("disabled limiter must always allow")
		}
	}
}

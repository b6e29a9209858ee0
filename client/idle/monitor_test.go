package idle

import (
	"sync/atomic"
	"testing"
	"time"

	"sfme/evaluation/client/session"
)

func TestPollIntervalClamp(t *testing.T) {
	cases := []struct {
		timeout time.Duration
		want    time.Duration
	}{
		{10 * time.Minute, 5 * time.Second},
		{50 * time.Second, 5 * time.Second},
		{30 * time.Second, 3 * time.Second},
		{10 * time.Second, time.Second},
		{2 * time.Second, time.Second},
	}
	for _, tc := range cases {
		if got := PollInterval(tc.timeout); got != tc.want {
			t.Errorf("PollInterval(%v) = %v, want %v", tc.timeout, got, tc.want)
		}
	}
}

func TestTimeoutFiresExactlyOnce(t *testing.T) {
	var fired int32
	m := NewMonitor(50*time.Millisecond, session.NewMemoryKV(), func() {
		atomic.AddInt32(&fired, 1)
	})
	m.Start()
	defer m.Stop()

	time.Sleep(300 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("callback fired %d times, want exactly 1", got)
	}
}

func TestActivityBurstResetsDeadline(t *testing.T) {
	var fired int32
	m := NewMonitor(120*time.Millisecond, session.NewMemoryKV(), func() {
		atomic.AddInt32(&fired, 1)
	})
	m.Start()
	defer m.Stop()

	// Keep poking well inside the window; the timeout must not fire.
	for i := 0; i < 6; i++ {
		time.Sleep(40 * time.Millisecond)
		m.Activity()
	}
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatalf("callback fired during activity burst")
	}

	// Then go quiet and it fires once.
	time.Sleep(300 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("callback fired %d times after quiet window, want 1", got)
	}
}

func TestPollerFiresWhenTimerIsThrottled(t *testing.T) {
	if testing.Short() {
		t.Skip("multi-second poll fallback")
	}
	var fired int32
	m := NewMonitor(1200*time.Millisecond, session.NewMemoryKV(), func() {
		atomic.AddInt32(&fired, 1)
	})
	m.Start()
	defer m.Stop()

	// Simulate a throttled environment where the timer never runs; only
	// the periodic sweep is left to notice the quiet window.
	m.mu.Lock()
	m.timer.Stop()
	m.mu.Unlock()

	time.Sleep(2500 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("callback fired %d times via the poller, want exactly 1", got)
	}
}

func TestStopPreventsCallback(t *testing.T) {
	var fired int32
	m := NewMonitor(50*time.Millisecond, nil, func() {
		atomic.AddInt32(&fired, 1)
	})
	m.Start()
	m.Stop()

	time.Sleep(150 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatal("callback fired after Stop")
	}

	// Activity after Stop is a harmless no-op.
	m.Activity()
}

func TestActivityTimestampPersisted(t *testing.T) {
	kv := session.NewMemoryKV()
	m := NewMonitor(time.Minute, kv, nil)
	m.Start()
	defer m.Stop()

	m.Activity()

	raw, err := kv.Get("lastActivityAt")
	if err != nil || raw == "" {
		t.Fatalf("expected persisted timestamp, got %q, %v", raw, err)
	}
	stamp, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		t.Fatalf("timestamp does not parse: %v", err)
	}
	if time.Since(stamp) > time.Second {
		t.Fatalf("timestamp too old: %v", stamp)
	}
}

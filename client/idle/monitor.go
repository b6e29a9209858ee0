// Package idle watches for user inactivity and fires a single timeout
// callback, typically wired to session logout.
package idle

import (
	"log"
	"sync"
	"time"

	"sfme/evaluation/client/session"
)

// DefaultTimeout matches the server's idle session window.
const DefaultTimeout = 10 * time.Minute

const timestampKey = "lastActivityAt"

// PollInterval is the fallback sweep period for a given timeout: a tenth
// of the timeout, clamped to [1s, 5s].
func PollInterval(timeout time.Duration) time.Duration {
	interval := timeout / 10
	if interval < time.Second {
		return time.Second
	}
	if interval > 5*time.Second {
		return 5 * time.Second
	}
	return interval
}

// Monitor tracks the time of the last user activity. When the timeout
// elapses without activity, onTimeout runs exactly once. A timer carries
// the normal path; a poller reading the persisted timestamp backstops
// environments where timers are throttled.
type Monitor struct {
	timeout   time.Duration
	onTimeout func()
	kv        session.KV

	mu      sync.Mutex
	last    time.Time
	timer   *time.Timer
	fired   bool
	stopped bool
	done    chan struct{}
}

func NewMonitor(timeout time.Duration, kv session.KV, onTimeout func()) *Monitor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Monitor{
		timeout:   timeout,
		onTimeout: onTimeout,
		kv:        kv,
		done:      make(chan struct{}),
	}
}

// Start begins watching. The monitor counts from now, not from zero.
func (m *Monitor) Start() {
	m.mu.Lock()
	m.last = time.Now()
	m.timer = time.AfterFunc(m.timeout, func() { m.fire() })
	m.mu.Unlock()

	m.persist(time.Now())
	go m.poll()
}

// Activity records user input and pushes the deadline out. Any burst of
// calls collapses into one timer reset per call; the timeout only fires
// after a full quiet window.
func (m *Monitor) Activity() {
	now := time.Now()

	m.mu.Lock()
	if m.stopped || m.fired {
		m.mu.Unlock()
		return
	}
	m.last = now
	if m.timer != nil {
		m.timer.Stop()
		m.timer.Reset(m.timeout)
	}
	m.mu.Unlock()

	m.persist(now)
}

// Stop tears the monitor down. After Stop the callback never fires.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	if m.timer != nil {
		m.timer.Stop()
	}
	close(m.done)
	m.mu.Unlock()
}

func (m *Monitor) fire() bool {
	m.mu.Lock()
	if m.stopped || m.fired {
		m.mu.Unlock()
		return false
	}
	// The timer may have raced a late Activity; re-check the clock.
	if remaining := m.timeout - time.Since(m.last); remaining > 0 {
		m.timer.Reset(remaining)
		m.mu.Unlock()
		return false
	}
	m.fired = true
	m.mu.Unlock()

	if m.onTimeout != nil {
		m.onTimeout()
	}
	return true
}

func (m *Monitor) poll() {
	ticker := time.NewTicker(PollInterval(m.timeout))
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			last := m.last
			done := m.fired || m.stopped
			m.mu.Unlock()
			if done {
				return
			}

			// Prefer the persisted timestamp when another component
			// (say, a second window) recorded later activity.
			if m.kv != nil {
				if raw, err := m.kv.Get(timestampKey); err == nil && raw != "" {
					if stored, err := time.Parse(time.RFC3339Nano, raw); err == nil && stored.After(last) {
						last = stored
						m.mu.Lock()
						m.last = stored
						m.mu.Unlock()
					}
				}
			}

			if time.Since(last) >= m.timeout && m.fire() {
				return
			}
		}
	}
}

func (m *Monitor) persist(at time.Time) {
	if m.kv == nil {
		return
	}
	if err := m.kv.Set(timestampKey, at.Format(time.RFC3339Nano)); err != nil {
		log.Printf("idle: persist activity timestamp: %v", err)
	}
}

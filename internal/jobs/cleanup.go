package jobs

import (
	"context"
	"log"
	"time"

	"sfme/evaluation/internal/repository"
)

// Cleanup periodically purges expired OTP challenges and revokes refresh
// sessions that have sat idle past the timeout.
type Cleanup struct {
	store       *repository.Store
	interval    time.Duration
	idleTimeout time.Duration
}

func NewCleanup(store *repository.Store, interval, idleTimeout time.Duration) *Cleanup {
	return &Cleanup{store: store, interval: interval, idleTimeout: idleTimeout}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (c *Cleanup) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleanup) sweep(ctx context.Context) {
	now := time.Now().UTC()

	if purged, err := c.store.DeleteExpiredOTPs(ctx, now); err != nil {
		log.Printf("cleanup: delete expired otps: %v", err)
	} else if purged > 0 {
		log.Printf("cleanup: purged %d expired otps", purged)
	}

	cutoff := now.Add(-c.idleTimeout)
	if revoked, err := c.store.RevokeIdleSessions(ctx, cutoff, now); err != nil {
		log.Printf("cleanup: revoke idle sessions: %v", err)
	} else if revoked > 0 {
		log.Printf("cleanup: revoked %d idle sessions", revoked)
	}
}

package http

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter enforces a fixed-window limit on login attempts per client.
// Counters live in Redis when available so the window survives restarts and
// is shared across replicas; otherwise an in-process map is used.
type LoginLimiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration

	mu      sync.Mutex
	local   map[string]*localWindow
	swept   time.Time
	nowFunc func() time.Time
}

type localWindow struct {
	count int
	start time.Time
}

func NewLoginLimiter(rdb *redis.Client, max int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		rdb:     rdb,
		max:     max,
		window:  window,
		local:   make(map[string]*localWindow),
		nowFunc: time.Now,
	}
}

// Allow reports whether the client identified by key may attempt a login.
// When denied, retryAfter is the time until the current window expires.
func (l *LoginLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if l.max <= 0 {
		return true, 0
	}
	if l.rdb != nil {
		ok, retryAfter, err := l.allowRedis(ctx, key)
		if err == nil {
			return ok, retryAfter
		}
		log.Printf("login limiter: redis unavailable, using local window: %v", err)
	}
	return l.allowLocal(key)
}

func (l *LoginLimiter) allowRedis(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := "login_rate:" + key

	count, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, 0, err
		}
	}
	if count <= int64(l.max) {
		return true, 0, nil
	}

	ttl, err := l.rdb.TTL(ctx, redisKey).Result()
	if err != nil || ttl < 0 {
		ttl = l.window
	}
	return false, ttl, nil
}

func (l *LoginLimiter) allowLocal(key string) (bool, time.Duration) {
	now := l.nowFunc()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > l.window {
		for k, w := range l.local {
			if now.Sub(w.start) >= l.window {
				delete(l.local, k)
			}
		}
		l.swept = now
	}

	w := l.local[key]
	if w == nil || now.Sub(w.start) >= l.window {
		l.local[key] = &localWindow{count: 1, start: now}
		return true, 0
	}

	w.count++
	if w.count <= l.max {
		return true, 0
	}
	return false, w.start.Add(l.window).Sub(now)
}

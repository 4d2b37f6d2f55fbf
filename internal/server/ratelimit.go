package server

import (
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between requests per key.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastSeen    map[string]time.Time
}

func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		minInterval: minInterval,
		lastSeen:    make(map[string]time.Time),
	}
}

// Allow reports whether key may proceed now, and otherwise how long to wait.
func (r *RateLimiter) Allow(key string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	last, ok := r.lastSeen[key]
	if ok {
		if elapsed := now.Sub(last); elapsed < r.minInterval {
			return false, r.minInterval - elapsed
		}
	}
	r.lastSeen[key] = now
	if len(r.lastSeen) > 10000 {
		r.pruneLocked(now)
	}
	return true, 0
}

func (r *RateLimiter) pruneLocked(now time.Time) {
	for key, last := range r.lastSeen {
		if now.Sub(last) >= r.minInterval {
			delete(r.lastSeen, key)
		}
	}
}

package handlers

import (
	"strconv"
	"sync"
	"time"
)

// rateLimiter allows a fixed number of invocations per chat+command within a
// sliding window. Keeps chat spam from hammering the store.
type rateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	seen   map[string][]time.Time

	now func() time.Time
}

// sweepAbove caps how many chat+command keys accumulate before expired ones
// are dropped wholesale. Without it every chat that ever sent a command keeps
// a live map entry for the lifetime of the process.
const sweepAbove = 1024

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		seen:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

func (r *rateLimiter) Allow(chatID int64, command string) bool {
	key := strconv.FormatInt(chatID, 10) + command
	now := r.now()
	cutoff := now.Add(-r.window)

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.seen) > sweepAbove {
		r.sweepLocked(cutoff)
	}

	recent := r.seen[key][:0]
	for _, t := range r.seen[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= r.limit {
		r.seen[key] = recent
		return false
	}
	r.seen[key] = append(recent, now)
	return true
}

// sweepLocked removes keys whose every timestamp fell out of the window.
// Caller holds r.mu.
func (r *rateLimiter) sweepLocked(cutoff time.Time) {
	for key, times := range r.seen {
		recent := times[:0]
		for _, t := range times {
			if t.After(cutoff) {
				recent = append(recent, t)
			}
		}
		if len(recent) == 0 {
			delete(r.seen, key)
		} else {
			r.seen[key] = recent
		}
	}
}

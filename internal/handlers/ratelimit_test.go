package handlers

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsTwoThenBlocks(t *testing.T) {
	r := newRateLimiter(2, time.Minute)
	if !r.Allow(1, "/status") {
		t.Fatal("first call blocked")
	}
	if !r.Allow(1, "/status") {
		t.Fatal("second call blocked")
	}
	if r.Allow(1, "/status") {
		t.Fatal("third call allowed within window")
	}
	// different command and different chat are independent
	if !r.Allow(1, "/help") {
		t.Fatal("other command blocked")
	}
	if !r.Allow(2, "/status") {
		t.Fatal("other chat blocked")
	}
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	r := newRateLimiter(2, time.Minute)
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Allow(1, "/status")
	r.Allow(1, "/status")
	if r.Allow(1, "/status") {
		t.Fatal("third call allowed within window")
	}

	now = now.Add(time.Minute + time.Second)
	if !r.Allow(1, "/status") {
		t.Fatal("call blocked after window passed")
	}
}

func TestRateLimiterDropsExpiredKeys(t *testing.T) {
	r := newRateLimiter(2, time.Minute)
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	for chat := int64(0); chat <= sweepAbove; chat++ {
		r.Allow(chat, "/status")
	}
	if len(r.seen) != sweepAbove+1 {
		t.Fatalf("seen holds %d keys, want %d", len(r.seen), sweepAbove+1)
	}

	// every entry expires; the next call past the threshold sweeps them out
	now = now.Add(time.Minute + time.Second)
	r.Allow(9999999, "/status")
	if len(r.seen) != 1 {
		t.Fatalf("seen holds %d keys after sweep, want 1", len(r.seen))
	}
}

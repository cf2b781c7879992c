package httpapi

import (
	"sync"
	"time"
)

// rateLimiter is a sliding-window counter keyed by caller-chosen strings
// (ip, email). It throttles credential guessing and OTP spam; session and
// OTP state itself never lives in process memory.
type rateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string][]time.Time
}

func newRateLimiter(window time.Duration, max int) *rateLimiter {
	return &rateLimiter{
		window:  window,
		max:     max,
		entries: make(map[string][]time.Time),
	}
}

func (l *rateLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	ts := l.entries[key]

	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	ts = kept
	if len(ts) >= l.max {
		l.entries[key] = ts
		return false
	}

	ts = append(ts, now)
	l.entries[key] = ts
	return true
}

// Package ratelimit implements the per-principal request gate (C8): a
// fixed one-minute window keyed by "ratelimit:{auth.id}", held in a
// process-wide map guarded by a single mutex (§5's "process-wide keyed
// map under a mutex ... a short critical section that must not span
// I/O"). This is deliberately not golang.org/x/time/rate's token bucket
// — the spec's reset-at-instant semantics (count resets to 1 the moment
// now reaches resetAt) differ from token-bucket refill; see DESIGN.md.
package ratelimit

import (
	"fmt"
	"sync"

	"github.com/rawcontext/engram-sub001/internal/bitemporal"
)

const windowMillis = 60_000

// window is one principal's current count/resetAt pair (§4.8).
type window struct {
	count   int
	resetAt bitemporal.Instant
}

// Decision reports the outcome of one Check call: whether the request is
// allowed, and the header values the HTTP layer must emit regardless.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    bitemporal.Instant // unix seconds, ceil'd
	RetryAfter int                // seconds, only meaningful when !Allowed
}

// Limiter holds one window per key. The zero value is not usable; use New.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
}

// New constructs a Limiter enforcing limit requests per one-minute window.
func New(limit int) *Limiter {
	return &Limiter{windows: make(map[string]*window), limit: limit}
}

// Key formats the rate-limit key for an authenticated principal id.
func Key(authID string) string {
	return fmt.Sprintf("ratelimit:%s", authID)
}

// Check increments the counter for key and reports the resulting
// decision. The critical section is map lookup + arithmetic only — no
// I/O — per §5's resource-sharing guarantee.
func (l *Limiter) Check(key string, now bitemporal.Instant) Decision {
	l.mu.Lock()
	w, ok := l.windows[key]
	if !ok || now >= w.resetAt {
		w = &window{count: 0, resetAt: now + windowMillis}
		l.windows[key] = w
	}
	w.count++
	count, resetAt := w.count, w.resetAt
	l.mu.Unlock()

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   ceilMillisToSeconds(resetAt),
	}
	if count > l.limit {
		d.Allowed = false
		d.RetryAfter = int(ceilMillisToSeconds(resetAt - now))
	} else {
		d.Allowed = true
	}
	return d
}

func ceilMillisToSeconds(ms bitemporal.Instant) bitemporal.Instant {
	if ms <= 0 {
		return 0
	}
	return (ms + 999) / 1000
}

package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Tracker mirrors the most recent upstream rate-limit headers and refuses
// new calls once the remaining quota is exhausted. It is advisory state:
// constructed once per process, injected into the API client, and reset on
// restart. Concurrent handlers share one instance, so reads and writes go
// through a mutex; acceptable staleness under race is tolerated.
type Tracker struct {
	mu        sync.Mutex
	limit     int
	remaining int
	reset     time.Time
	threshold int
	now       func() time.Time
}

// Info is a point-in-time snapshot of the tracker.
type Info struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// ThrottledError reports how long the caller should wait before retrying.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("rate limit exhausted, retry in %s", e.RetryAfter.Round(time.Second))
}

// New creates a tracker that starts with the given quota and refuses calls
// once remaining drops to threshold or below while the reset time is still
// in the future.
func New(limit, threshold int) *Tracker {
	return &Tracker{
		limit:     limit,
		remaining: limit,
		reset:     time.Now().Add(time.Hour),
		threshold: threshold,
		now:       time.Now,
	}
}

// SetClock overrides the time source; used by tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Allow returns nil when a call may proceed, or a *ThrottledError when the
// quota is exhausted and the reset time has not passed. It fails closed
// without touching the network.
func (t *Tracker) Allow() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.remaining > t.threshold {
		return nil
	}
	now := t.now()
	if now.Before(t.reset) {
		return &ThrottledError{RetryAfter: t.reset.Sub(now)}
	}
	// Reset time has passed; assume the upstream window rolled over.
	t.remaining = t.limit
	return nil
}

// UpdateFromHeaders refreshes the counters from x-ratelimit-* response
// headers. Missing headers leave the previous values in place.
func (t *Tracker) UpdateFromHeaders(h http.Header) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if v := h.Get("x-ratelimit-limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			t.limit = n
		}
	}
	if v := h.Get("x-ratelimit-remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			t.remaining = n
		}
	}
	if v := h.Get("x-ratelimit-reset"); v != "" {
		// Upstream sends unix seconds.
		if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
			t.reset = time.Unix(sec, 0)
		}
	}
}

// Snapshot returns the current counters.
func (t *Tracker) Snapshot() Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Info{Limit: t.limit, Remaining: t.remaining, Reset: t.reset}
}

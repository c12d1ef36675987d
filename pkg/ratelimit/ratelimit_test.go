package ratelimit

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestAllow_UnderQuota(t *testing.T) {
	tr := New(100, 10)
	if err := tr.Allow(); err != nil {
		t.Fatalf("expected call to be allowed, got %v", err)
	}
}

func TestAllow_FailsClosedUntilReset(t *testing.T) {
	tr := New(100, 10)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr.SetClock(func() time.Time { return base })

	h := http.Header{}
	h.Set("x-ratelimit-limit", "100")
	h.Set("x-ratelimit-remaining", "0")
	h.Set("x-ratelimit-reset", "1748779260") // base + 60s
	tr.UpdateFromHeaders(h)

	err := tr.Allow()
	if err == nil {
		t.Fatal("expected throttling error while quota is exhausted")
	}
	var throttled *ThrottledError
	if !errors.As(err, &throttled) {
		t.Fatalf("expected *ThrottledError, got %T", err)
	}
	if throttled.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v; want positive", throttled.RetryAfter)
	}

	// After the reset time passes, calls are allowed again.
	tr.SetClock(func() time.Time { return base.Add(2 * time.Minute) })
	if err := tr.Allow(); err != nil {
		t.Fatalf("expected call to be allowed after reset, got %v", err)
	}
}

func TestUpdateFromHeaders_PartialHeaders(t *testing.T) {
	tr := New(1000, 10)
	h := http.Header{}
	h.Set("x-ratelimit-remaining", "42")
	tr.UpdateFromHeaders(h)

	info := tr.Snapshot()
	if info.Remaining != 42 {
		t.Errorf("Remaining = %d; want 42", info.Remaining)
	}
	if info.Limit != 1000 {
		t.Errorf("Limit = %d; want previous value 1000", info.Limit)
	}
}

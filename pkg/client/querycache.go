// Package client is the Go SDK for the BagsHub API. It carries the
// session cookie, caches list queries with a staleness window, and
// applies bookmark mutations optimistically.
package client

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bagshub/bagshub/pkg/logger"
)

// FetchFunc loads the value for a cache key from the server.
type FetchFunc func(ctx context.Context) (interface{}, error)

// Cache is a query cache keyed by request shape. Values younger than
// the staleness window are served directly; stale values are served
// immediately while a background refresh runs; concurrent misses on the
// same key coalesce into one fetch.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	staleAfter time.Duration
	now        func() time.Time
}

type entry struct {
	value     interface{}
	hasValue  bool
	fetchedAt time.Time
	inflight  *inflight
}

type inflight struct {
	done  chan struct{}
	value interface{}
	err   error
}

// NewCache creates a cache whose values go stale after staleAfter.
func NewCache(staleAfter time.Duration) *Cache {
	return &Cache{
		entries:    make(map[string]*entry),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the cached value for key, fetching it if missing. A
// stale value is returned immediately and refreshed in the background;
// callers never block on revalidation.
func (c *Cache) Get(ctx context.Context, key string, fetch FetchFunc) (interface{}, error) {
	c.mu.Lock()
	e := c.entries[key]
	if e == nil {
		e = &entry{}
		c.entries[key] = e
	}

	if e.hasValue {
		value := e.value
		stale := c.now().Sub(e.fetchedAt) >= c.staleAfter
		if stale && e.inflight == nil {
			e.inflight = c.startFetch(key, e, fetch)
		}
		c.mu.Unlock()
		return value, nil
	}

	// Miss: coalesce onto an existing fetch or start one.
	if e.inflight == nil {
		e.inflight = c.startFetch(key, e, fetch)
	}
	call := e.inflight
	c.mu.Unlock()

	select {
	case <-call.done:
		return call.value, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// startFetch launches the fetch goroutine for e. Caller holds c.mu.
func (c *Cache) startFetch(key string, e *entry, fetch FetchFunc) *inflight {
	call := &inflight{done: make(chan struct{})}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		value, err := fetch(ctx)

		c.mu.Lock()
		if err == nil {
			e.value = value
			e.hasValue = true
			e.fetchedAt = c.now()
		} else {
			logger.Log.Debug("query cache refresh failed",
				zap.String("key", key), zap.Error(err))
		}
		e.inflight = nil
		c.mu.Unlock()

		call.value, call.err = value, err
		close(call.done)
	}()
	return call
}

// Set stores a value directly, marking it fresh. Used after mutations
// whose response carries the new state.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value, hasValue: true, fetchedAt: c.now()}
}

// Invalidate drops a key so the next Get refetches.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// AutoRefresh refetches key every interval until ctx is cancelled,
// keeping hot lists warm regardless of read traffic.
func (c *Cache) AutoRefresh(ctx context.Context, key string, interval time.Duration, fetch FetchFunc) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				value, err := fetch(ctx)
				if err != nil {
					logger.Log.Debug("auto refresh failed",
						zap.String("key", key), zap.Error(err))
					continue
				}
				c.Set(key, value)
			}
		}
	}()
}

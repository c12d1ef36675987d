package client

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bagshub/bagshub/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestCache_FreshValueServedWithoutRefetch(t *testing.T) {
	cache := NewCache(time.Minute)
	var calls int32
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "v1", nil
	}

	for i := 0; i < 3; i++ {
		got, err := cache.Get(context.Background(), "k", fetch)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != "v1" {
			t.Fatalf("got %v; want v1", got)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fetch calls = %d; want 1", n)
	}
}

func TestCache_StaleValueServedThenRefreshed(t *testing.T) {
	cache := NewCache(time.Minute)
	now := time.Now()
	var mu sync.Mutex
	cache.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})

	refreshed := make(chan struct{})
	var calls int32
	fetch := func(ctx context.Context) (interface{}, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 2 {
			defer close(refreshed)
			return "v2", nil
		}
		return "v1", nil
	}

	if got, _ := cache.Get(context.Background(), "k", fetch); got != "v1" {
		t.Fatalf("got %v; want v1", got)
	}

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	// Stale read returns the old value without blocking.
	got, err := cache.Get(context.Background(), "k", fetch)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "v1" {
		t.Fatalf("stale read = %v; want v1", got)
	}

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("background refresh never ran")
	}

	// Eventually the refreshed value lands.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if got, _ := cache.Get(context.Background(), "k", fetch); got == "v2" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("refreshed value never served")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCache_CoalescesConcurrentMisses(t *testing.T) {
	cache := NewCache(time.Minute)
	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v1", nil
	}

	const readers = 10
	var wg sync.WaitGroup
	results := make([]interface{}, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = cache.Get(context.Background(), "k", fetch)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fetch calls = %d; want 1 (coalesced)", n)
	}
	for i, r := range results {
		if r != "v1" {
			t.Errorf("results[%d] = %v; want v1", i, r)
		}
	}
}

func TestCache_FetchErrorNotCached(t *testing.T) {
	cache := NewCache(time.Minute)
	var calls int32
	fetch := func(ctx context.Context) (interface{}, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("boom")
		}
		return "v1", nil
	}

	if _, err := cache.Get(context.Background(), "k", fetch); err == nil {
		t.Fatal("expected first fetch to fail")
	}
	got, err := cache.Get(context.Background(), "k", fetch)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if got != "v1" {
		t.Errorf("got %v; want v1", got)
	}
}

func TestCache_Invalidate(t *testing.T) {
	cache := NewCache(time.Minute)
	var calls int32
	fetch := func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	cache.Get(context.Background(), "k", fetch)
	cache.Invalidate("k")
	got, _ := cache.Get(context.Background(), "k", fetch)
	if got != int32(2) {
		t.Errorf("got %v; want refetched value 2", got)
	}
}

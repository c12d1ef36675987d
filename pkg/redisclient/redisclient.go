package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/bagshub/bagshub/pkg/logger"
	"github.com/bagshub/bagshub/pkg/metrics"
)

var (
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	ErrCacheMiss          = errors.New("cache miss")
)

// Client wraps go-redis with a circuit breaker. It is used as a
// shared cache for leaderboard responses so a Redis outage degrades
// to upstream fetches instead of failing requests.
type Client struct {
	rdb *redis.Client
	// Circuit breaker state
	failureCount int64
	lastFailure  int64
	state        int32 // 0: closed, 1: open, 2: half-open
}

// New constructs a Client with sensible defaults & retry logic
func New(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.New("invalid REDIS_URL: " + err.Error())
	}
	opt.PoolSize = 20
	opt.MinIdleConns = 5
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.IdleTimeout = 5 * time.Minute
	return &Client{rdb: redis.NewClient(opt)}, nil
}

// withMetrics wraps operations with metrics collection
func (c *Client) withMetrics(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start).Seconds()

	metrics.RedisOperationDuration.WithLabelValues(operation, getStatus(err)).Observe(duration)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		metrics.RedisErrors.WithLabelValues(operation).Inc()
	}

	return err
}

// getStatus returns "success" or "error" for metrics
func getStatus(err error) string {
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		return "error"
	}
	return "success"
}

// checkCircuitBreaker checks if circuit breaker should be opened/closed
func (c *Client) checkCircuitBreaker(err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		atomic.AddInt64(&c.failureCount, 1)
		atomic.StoreInt64(&c.lastFailure, time.Now().Unix())

		// Open circuit breaker after 5 consecutive failures
		if atomic.LoadInt64(&c.failureCount) >= 5 {
			atomic.CompareAndSwapInt32(&c.state, 0, 1) // closed -> open
			logger.Log.Warn("circuit breaker opened", zap.String("operation", "redis"))
		}
	} else {
		// Reset failure count on success
		atomic.StoreInt64(&c.failureCount, 0)
		atomic.CompareAndSwapInt32(&c.state, 1, 2) // open -> half-open
	}
}

// GetJSON fetches a key and unmarshals it into dest. A missing key
// returns ErrCacheMiss.
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	return c.withMetrics("get", func() error {
		if atomic.LoadInt32(&c.state) == 1 {
			return ErrCircuitBreakerOpen
		}

		ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()

		raw, err := c.rdb.Get(ctx, key).Bytes()
		c.checkCircuitBreaker(err)
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	})
}

// SetJSON marshals value and stores it under key with the given TTL,
// retrying transient failures with exponential backoff.
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.withMetrics("set", func() error {
		if atomic.LoadInt32(&c.state) == 1 {
			return ErrCircuitBreakerOpen
		}

		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}

		op := func() error {
			ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
			defer cancel()
			err := c.rdb.Set(ctx, key, raw, ttl).Err()
			c.checkCircuitBreaker(err)
			return err
		}
		// exponential backoff: max 3 retries
		return backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3))
	})
}

// Delete removes a key. Used to invalidate a warmed list after a
// manual refresh.
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.withMetrics("del", func() error {
		if atomic.LoadInt32(&c.state) == 1 {
			return ErrCircuitBreakerOpen
		}

		ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		err := c.rdb.Del(ctx, key).Err()
		c.checkCircuitBreaker(err)
		return err
	})
}

// Ping verifies connectivity.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Close closes the underlying connection pool
func (c *Client) Close() error {
	return c.rdb.Close()
}

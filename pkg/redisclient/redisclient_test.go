package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	redismock "github.com/go-redis/redismock/v8"

	"github.com/bagshub/bagshub/pkg/logger"
)

func init() {
	// The circuit breaker logs through the global logger.
	_ = logger.Init()
}

type listEntry struct {
	Mint  string  `json:"mint"`
	Price float64 `json:"price"`
}

func TestGetJSON_Hit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &Client{rdb: db}

	mock.ExpectGet("tokens:trending").SetVal(`{"mint":"abc","price":1.5}`)

	var got listEntry
	if err := client.GetJSON(context.Background(), "tokens:trending", &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Mint != "abc" || got.Price != 1.5 {
		t.Errorf("got %+v; want abc/1.5", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetJSON_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &Client{rdb: db}

	mock.ExpectGet("tokens:gainers").RedisNil()

	var got listEntry
	err := client.GetJSON(context.Background(), "tokens:gainers", &got)
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestSetJSON(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &Client{rdb: db}

	mock.ExpectSet("tokens:trending", []byte(`{"mint":"abc","price":1.5}`), 30*time.Second).SetVal("OK")

	err := client.SetJSON(context.Background(), "tokens:trending",
		listEntry{Mint: "abc", Price: 1.5}, 30*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// TestSetJSON_RetryOnError ensures SetJSON retries on a transient Redis error.
func TestSetJSON_RetryOnError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &Client{rdb: db}

	payload := []byte(`{"mint":"abc","price":1.5}`)
	mock.ExpectSet("k", payload, time.Minute).SetErr(errors.New("transient"))
	mock.ExpectSet("k", payload, time.Minute).SetVal("OK")

	err := client.SetJSON(context.Background(), "k", listEntry{Mint: "abc", Price: 1.5}, time.Minute)
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCircuitBreaker_Opens(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &Client{rdb: db}

	// Five consecutive failures open the breaker; retries count too,
	// so two failing Set calls (4 attempts each) are plenty.
	for i := 0; i < 8; i++ {
		mock.ExpectSet("k", []byte(`{"mint":"","price":0}`), time.Minute).SetErr(errors.New("down"))
	}
	for i := 0; i < 2; i++ {
		_ = client.SetJSON(context.Background(), "k", listEntry{}, time.Minute)
	}

	err := client.SetJSON(context.Background(), "k", listEntry{}, time.Minute)
	if !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Fatalf("expected ErrCircuitBreakerOpen, got %v", err)
	}
}

func TestGetJSON_MissDoesNotTripBreaker(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &Client{rdb: db}

	for i := 0; i < 6; i++ {
		mock.ExpectGet("k").RedisNil()
	}
	var got listEntry
	for i := 0; i < 6; i++ {
		if err := client.GetJSON(context.Background(), "k", &got); !errors.Is(err, ErrCacheMiss) {
			t.Fatalf("expected ErrCacheMiss, got %v", err)
		}
	}
}

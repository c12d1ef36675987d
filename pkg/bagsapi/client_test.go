package bagsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bagshub/bagshub/pkg/metrics"
	"github.com/bagshub/bagshub/pkg/ratelimit"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-key", ratelimit.New(1000, 10)), srv
}

func TestTokens_SendsAPIKeyAndParams(t *testing.T) {
	var gotKey, gotQuery string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tokens":[{"mint":"So11111111111111111111111111111111111111112","name":"Wrapped SOL","symbol":"SOL"}],"total":1}`))
	})

	list, err := client.Tokens(context.Background(), TokensParams{Sort: "volume", Limit: 5})
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	if gotKey != "test-key" {
		t.Errorf("x-api-key = %q; want %q", gotKey, "test-key")
	}
	if gotQuery != "limit=5&sort=volume" {
		t.Errorf("query = %q; want %q", gotQuery, "limit=5&sort=volume")
	}
	if len(list.Tokens) != 1 || list.Tokens[0].Symbol != "SOL" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestDoJSON_MissingAPIKey(t *testing.T) {
	client := New("http://unreachable.invalid", "", ratelimit.New(1000, 10))
	_, err := client.Tokens(context.Background(), TokensParams{})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestDoJSON_UpstreamErrorMapped(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"message":"upstream exploded"}`))
	})

	_, err := client.Tokens(context.Background(), TokensParams{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d; want 502", apiErr.StatusCode)
	}
	if apiErr.Message != "upstream exploded" {
		t.Errorf("Message = %q; want upstream body message", apiErr.Message)
	}
}

func TestRateLimitGuard_NoNetworkCallWhenExhausted(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("x-ratelimit-limit", "1000")
		w.Header().Set("x-ratelimit-remaining", "0")
		w.Header().Set("x-ratelimit-reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
		w.Write([]byte(`{"tokens":[]}`))
	})

	// First call succeeds and learns the exhausted quota from headers.
	if _, err := client.Tokens(context.Background(), TokensParams{}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d; want 1", calls)
	}

	// Second call must be rejected locally without reaching the server.
	_, err := client.Tokens(context.Background(), TokensParams{})
	var throttled *ratelimit.ThrottledError
	if !errors.As(err, &throttled) {
		t.Fatalf("expected throttling error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d; rejected request must not hit the network", calls)
	}
}

func TestMetrics_OperationLabelsStayBounded(t *testing.T) {
	const mint = "J6bAGSmetrixxxxxxxxxxxxxxxxxxxxxxxxxxxxx"
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":{"mint":"` + mint + `","name":"Test","symbol":"TST"}}`))
	})

	if _, err := client.TokenByMint(context.Background(), mint); err != nil {
		t.Fatalf("TokenByMint: %v", err)
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	// Per-call paths would make the label set grow with every distinct
	// mint; the label must be the fixed operation name.
	if !strings.Contains(body, `endpoint="token_by_mint"`) {
		t.Error("expected a fixed token_by_mint operation label in metrics output")
	}
	if strings.Contains(body, mint) {
		t.Error("mint address leaked into a metric label")
	}
}

func TestCreateToken_PostsJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s; want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q; want application/json", ct)
		}
		w.Write([]byte(`{"mint":"J6bAGSmintxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx","success":true}`))
	})

	resp, err := client.CreateToken(context.Background(), CreateTokenRequest{Name: "Test", Symbol: "TST"})
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if !resp.Success || resp.Mint == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

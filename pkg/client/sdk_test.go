package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func respond(w http.ResponseWriter, status int, success bool, data interface{}, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": success,
		"data":    data,
		"error":   errMsg,
	})
}

func TestAPI_SessionCookieCarriesOver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "bagshub_token", Value: "session-1", Path: "/"})
			respond(w, http.StatusOK, true, map[string]interface{}{
				"user": map[string]string{"id": "u1", "username": "alice"},
			}, "")
		case "/api/auth/me":
			c, err := r.Cookie("bagshub_token")
			if err != nil || c.Value != "session-1" {
				respond(w, http.StatusUnauthorized, false, nil, "authentication required")
				return
			}
			respond(w, http.StatusOK, true, map[string]interface{}{
				"user": map[string]string{"id": "u1", "username": "alice"},
			}, "")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	api, err := NewAPI(srv.URL, time.Minute)
	if err != nil {
		t.Fatalf("NewAPI: %v", err)
	}

	if _, err := api.Login(context.Background(), "alice", "password123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	me, err := api.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Username != "alice" {
		t.Errorf("username = %s; want alice", me.Username)
	}
}

func TestAPI_TokensCached(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		respond(w, http.StatusOK, true, map[string]interface{}{
			"tokens": []map[string]interface{}{{"mint": "m1", "name": "One", "symbol": "ONE"}},
		}, "")
	}))
	defer srv.Close()

	api, err := NewAPI(srv.URL, time.Minute)
	if err != nil {
		t.Fatalf("NewAPI: %v", err)
	}

	for i := 0; i < 3; i++ {
		tokens, err := api.Tokens(context.Background(), "trending", 10)
		if err != nil {
			t.Fatalf("Tokens: %v", err)
		}
		if len(tokens) != 1 || tokens[0].Mint != "m1" {
			t.Fatalf("tokens = %+v; want [m1]", tokens)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hits = %d; want 1 (cached)", n)
	}
}

func TestAPI_AddBookmarkRollsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusUnauthorized, false, nil, "authentication required")
	}))
	defer srv.Close()

	api, err := NewAPI(srv.URL, time.Minute)
	if err != nil {
		t.Fatalf("NewAPI: %v", err)
	}

	err = api.AddBookmark(context.Background(), testMint, "")
	if err == nil {
		t.Fatal("expected server rejection to propagate")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("err = %v; want 401 APIError", err)
	}
	if api.Bookmarks.Has(testMint) {
		t.Error("rejected bookmark must be rolled back")
	}
}

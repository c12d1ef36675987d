package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/bagshub/bagshub/pkg/models"
)

// APIError is a non-2xx response from the BagsHub server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bagshub api: %s (status %d)", e.Message, e.StatusCode)
}

// API is the BagsHub HTTP client. The cookie jar keeps the session
// across Login; list reads go through the query cache.
type API struct {
	baseURL string
	http    *http.Client
	cache   *Cache

	// Bookmarks holds the optimistic bookmark state for the session.
	Bookmarks *BookmarkSet
}

// NewAPI builds a client against baseURL. staleAfter controls how long
// cached lists are served without revalidation.
func NewAPI(baseURL string, staleAfter time.Duration) (*API, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &API{
		baseURL:   baseURL,
		http:      &http.Client{Timeout: 15 * time.Second, Jar: jar},
		cache:     NewCache(staleAfter),
		Bookmarks: NewBookmarkSet(),
	}, nil
}

// envelope mirrors the server's response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (a *API) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("bagshub request: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || env.Data == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// Tokens fetches a leaderboard through the query cache.
func (a *API) Tokens(ctx context.Context, kind models.LeaderboardKind, limit int) ([]models.Token, error) {
	key := fmt.Sprintf("tokens:%s:%d", kind, limit)
	value, err := a.cache.Get(ctx, key, func(ctx context.Context) (interface{}, error) {
		return a.fetchTokens(ctx, kind, limit, "")
	})
	if err != nil {
		return nil, err
	}
	return value.([]models.Token), nil
}

// SearchTokens queries by name or symbol. Search results bypass the
// cache; queries are too diverse to be worth keeping.
func (a *API) SearchTokens(ctx context.Context, query string, limit int) ([]models.Token, error) {
	return a.fetchTokens(ctx, models.KindTrending, limit, query)
}

func (a *API) fetchTokens(ctx context.Context, kind models.LeaderboardKind, limit int, search string) ([]models.Token, error) {
	v := url.Values{}
	v.Set("type", string(kind))
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	if search != "" {
		v.Set("search", search)
	}
	var data struct {
		Tokens []models.Token `json:"tokens"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/tokens?"+v.Encode(), nil, &data); err != nil {
		return nil, err
	}
	return data.Tokens, nil
}

// TokenDetails fetches the detail payload for one mint.
func (a *API) TokenDetails(ctx context.Context, mint string) (*models.TokenDetails, error) {
	var details models.TokenDetails
	if err := a.do(ctx, http.MethodGet, "/api/tokens/"+url.PathEscape(mint), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// Register creates an account and starts a session.
func (a *API) Register(ctx context.Context, username, password, email string) (*models.PublicUser, error) {
	body := map[string]string{"username": username, "password": password}
	if email != "" {
		body["email"] = email
	}
	var data struct {
		User models.PublicUser `json:"user"`
	}
	if err := a.do(ctx, http.MethodPost, "/api/auth/register", body, &data); err != nil {
		return nil, err
	}
	return &data.User, nil
}

// Login starts a session; the cookie jar holds the token afterwards.
func (a *API) Login(ctx context.Context, username, password string) (*models.PublicUser, error) {
	var data struct {
		User models.PublicUser `json:"user"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := a.do(ctx, http.MethodPost, "/api/auth/login", body, &data); err != nil {
		return nil, err
	}
	return &data.User, nil
}

// Logout ends the session.
func (a *API) Logout(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the logged-in user.
func (a *API) Me(ctx context.Context) (*models.PublicUser, error) {
	var data struct {
		User models.PublicUser `json:"user"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/auth/me", nil, &data); err != nil {
		return nil, err
	}
	return &data.User, nil
}

// LoadBookmarks fetches the watchlist and seeds the optimistic set.
func (a *API) LoadBookmarks(ctx context.Context) ([]models.Bookmark, error) {
	var data struct {
		Bookmarks []models.Bookmark `json:"bookmarks"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/bookmarks", nil, &data); err != nil {
		return nil, err
	}
	mints := make([]string, len(data.Bookmarks))
	for i, b := range data.Bookmarks {
		mints[i] = b.TokenMint
	}
	a.Bookmarks.Load(mints)
	return data.Bookmarks, nil
}

// AddBookmark bookmarks a mint optimistically: Bookmarks.Has reports
// true immediately and reverts if the server refuses.
func (a *API) AddBookmark(ctx context.Context, mint, notes string) error {
	return a.Bookmarks.Add(ctx, mint, func(ctx context.Context) error {
		body := map[string]string{"tokenMint": mint}
		if notes != "" {
			body["notes"] = notes
		}
		return a.do(ctx, http.MethodPost, "/api/bookmarks", body, nil)
	})
}

// RemoveBookmark deletes a bookmark with the same optimistic contract.
func (a *API) RemoveBookmark(ctx context.Context, mint string) error {
	return a.Bookmarks.Remove(ctx, mint, func(ctx context.Context) error {
		return a.do(ctx, http.MethodDelete, "/api/bookmarks/"+url.PathEscape(mint), nil, nil)
	})
}

// Package bagsapi is the client for the primary upstream token data
// source, the Bags protocol public API. All calls carry the x-api-key
// header and feed the shared rate-limit tracker; when the tracker reports
// the quota exhausted the client fails fast without touching the network.
package bagsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/bagshub/bagshub/pkg/logger"
	"github.com/bagshub/bagshub/pkg/metrics"
	"github.com/bagshub/bagshub/pkg/models"
	"github.com/bagshub/bagshub/pkg/ratelimit"
)

// ErrMissingAPIKey is returned immediately when a call requiring the API
// key is made without one configured. This is a configuration error, not
// something to retry.
var ErrMissingAPIKey = errors.New("bagsapi: BAGS_API_KEY is not configured")

// APIError carries the upstream HTTP status alongside the message the
// upstream returned, so handlers can map it onto their own taxonomy.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bags api: %s (status %d)", e.Message, e.StatusCode)
}

// Client talks to the Bags API. Construct once per process with New and
// share across handlers; the zero value is not usable.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *ratelimit.Tracker
}

// New builds a client. limiter must not be nil; apiKey may be empty for
// read-only deployments (writes will fail with ErrMissingAPIKey).
func New(baseURL, apiKey string, limiter *ratelimit.Tracker) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		limiter: limiter,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// RateLimit exposes the tracker snapshot for diagnostics endpoints.
func (c *Client) RateLimit() ratelimit.Info {
	return c.limiter.Snapshot()
}

// doJSON issues a request and decodes the JSON body into out. The
// rate-limit guard runs before the call and the tracker is refreshed from
// response headers after every call, success or not. op is the fixed
// metric label for the call; mint addresses and query strings must never
// end up in label values.
func (c *Client) doJSON(ctx context.Context, method, op, endpoint string, body io.Reader, contentType string, out interface{}) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	if err := c.limiter.Allow(); err != nil {
		metrics.RateLimitRejections.Inc()
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("x-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequestDuration.WithLabelValues("bags", op, "error").Observe(time.Since(start).Seconds())
		metrics.UpstreamErrors.WithLabelValues("bags", op).Inc()
		return fmt.Errorf("bags api request: %w", err)
	}
	defer resp.Body.Close()

	c.limiter.UpdateFromHeaders(resp.Header)
	metrics.UpstreamRequestDuration.WithLabelValues("bags", op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamErrors.WithLabelValues("bags", op).Inc()
		return &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode bags api response: %w", err)
	}
	return nil
}

// readErrorMessage pulls message/error out of an upstream error body,
// falling back to a status-based message.
func readErrorMessage(resp *http.Response) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fmt.Sprintf("request failed with status %d", resp.StatusCode)
}

// TokenList is the upstream list envelope.
type TokenList struct {
	Tokens  []models.Token `json:"tokens"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	HasMore bool           `json:"hasMore"`
}

// TokensParams filters the generic token listing.
type TokensParams struct {
	Page   int
	Limit  int
	Sort   string // newest | volume | marketCap | trending | gainers | losers | holders
	Search string
}

func (p TokensParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	return v
}

// Tokens fetches a page of tokens with optional sort and free-text search.
func (c *Client) Tokens(ctx context.Context, p TokensParams) (*TokenList, error) {
	endpoint := "/tokens"
	if q := p.values().Encode(); q != "" {
		endpoint += "?" + q
	}
	var list TokenList
	if err := c.doJSON(ctx, http.MethodGet, "tokens", endpoint, nil, "", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Trending fetches the trending list. timeFrame is 1h, 6h, or 24h.
func (c *Client) Trending(ctx context.Context, limit int, timeFrame string) (*TokenList, error) {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	if timeFrame != "" {
		v.Set("timeFrame", timeFrame)
	}
	endpoint := "/tokens/trending"
	if q := v.Encode(); q != "" {
		endpoint += "?" + q
	}
	var list TokenList
	if err := c.doJSON(ctx, http.MethodGet, "trending", endpoint, nil, "", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// TokenByMint fetches detail data for one token.
func (c *Client) TokenByMint(ctx context.Context, mint string) (*models.Token, error) {
	var out struct {
		Token models.Token `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "token_by_mint", "/tokens/"+url.PathEscape(mint), nil, "", &out); err != nil {
		return nil, err
	}
	return &out.Token, nil
}

// HolderList is the holder distribution envelope.
type HolderList struct {
	Holders []models.Holder `json:"holders"`
	Total   int             `json:"total"`
}

// Holders fetches a page of the token's holder distribution.
func (c *Client) Holders(ctx context.Context, mint string, page, limit int) (*HolderList, error) {
	v := url.Values{}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	endpoint := "/tokens/" + url.PathEscape(mint) + "/holders"
	if q := v.Encode(); q != "" {
		endpoint += "?" + q
	}
	var list HolderList
	if err := c.doJSON(ctx, http.MethodGet, "holders", endpoint, nil, "", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// TransactionList is the swap history envelope.
type TransactionList struct {
	Transactions []models.Transaction `json:"transactions"`
	Total        int                  `json:"total"`
}

// Transactions fetches recent swaps. txType is buy, sell, or empty for all.
func (c *Client) Transactions(ctx context.Context, mint string, page, limit int, txType string) (*TransactionList, error) {
	v := url.Values{}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	if txType != "" && txType != "all" {
		v.Set("type", txType)
	}
	endpoint := "/tokens/" + url.PathEscape(mint) + "/transactions"
	if q := v.Encode(); q != "" {
		endpoint += "?" + q
	}
	var list TransactionList
	if err := c.doJSON(ctx, http.MethodGet, "transactions", endpoint, nil, "", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// PriceHistory fetches OHLCV candles for charting. interval is one of
// 1m, 5m, 15m, 1h, 4h, 1d; from/to are unix seconds, zero means open-ended.
func (c *Client) PriceHistory(ctx context.Context, mint, interval string, from, to int64) ([]models.PriceCandle, error) {
	v := url.Values{}
	if interval != "" {
		v.Set("interval", interval)
	}
	if from > 0 {
		v.Set("from", strconv.FormatInt(from, 10))
	}
	if to > 0 {
		v.Set("to", strconv.FormatInt(to, 10))
	}
	endpoint := "/tokens/" + url.PathEscape(mint) + "/prices"
	if q := v.Encode(); q != "" {
		endpoint += "?" + q
	}
	var out struct {
		Prices []models.PriceCandle `json:"prices"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "prices", endpoint, nil, "", &out); err != nil {
		return nil, err
	}
	return out.Prices, nil
}

// Search looks up tokens by name or symbol.
func (c *Client) Search(ctx context.Context, query string, limit int) (*TokenList, error) {
	return c.Tokens(ctx, TokensParams{Search: query, Limit: limit})
}

// TopGainers fetches the gainers leaderboard.
func (c *Client) TopGainers(ctx context.Context, limit int) (*TokenList, error) {
	return c.Tokens(ctx, TokensParams{Sort: "gainers", Limit: limit})
}

// TopLosers fetches the losers leaderboard.
func (c *Client) TopLosers(ctx context.Context, limit int) (*TokenList, error) {
	return c.Tokens(ctx, TokensParams{Sort: "losers", Limit: limit})
}

// ByVolume fetches the volume leaderboard.
func (c *Client) ByVolume(ctx context.Context, limit int) (*TokenList, error) {
	return c.Tokens(ctx, TokensParams{Sort: "volume", Limit: limit})
}

// Newest fetches recently launched tokens.
func (c *Client) Newest(ctx context.Context, limit int) (*TokenList, error) {
	return c.Tokens(ctx, TokensParams{Sort: "newest", Limit: limit})
}

// CreateTokenRequest is the pass-through token creation payload.
type CreateTokenRequest struct {
	Name             string  `json:"name" validate:"required"`
	Symbol           string  `json:"symbol" validate:"required"`
	Description      string  `json:"description,omitempty"`
	ImageURL         string  `json:"image,omitempty"`
	Twitter          string  `json:"twitter,omitempty"`
	Telegram         string  `json:"telegram,omitempty"`
	Website          string  `json:"website,omitempty"`
	InitialBuyAmount float64 `json:"initialBuyAmount,omitempty"`
}

// CreateTokenResponse is the upstream acknowledgement of a launch.
type CreateTokenResponse struct {
	Mint        string `json:"mint"`
	Transaction string `json:"transaction,omitempty"`
	Success     bool   `json:"success"`
}

// CreateToken launches a new token through the upstream API. Requires the
// API key; failures surface as specific, user-actionable errors.
func (c *Client) CreateToken(ctx context.Context, req CreateTokenRequest) (*CreateTokenResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode create token request: %w", err)
	}
	var out CreateTokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "create_token", "/tokens", bytes.NewReader(body), "application/json", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadResponse is the upstream acknowledgement of an image upload.
type UploadResponse struct {
	URL string `json:"url"`
}

// UploadImage uploads token artwork as multipart form data.
func (c *Client) UploadImage(ctx context.Context, image []byte, filename, mimeType string) (*UploadResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := c.limiter.Allow(); err != nil {
		metrics.RateLimitRejections.Inc()
		return nil, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write multipart body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("bags", "upload").Inc()
		return nil, fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	c.limiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamErrors.WithLabelValues("bags", "upload").Inc()
		logger.Log.Warn("image upload rejected", zap.Int("status", resp.StatusCode))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "failed to upload image"}
	}

	var out UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &out, nil
}

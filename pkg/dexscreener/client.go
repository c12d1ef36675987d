// Package dexscreener is the client for the secondary upstream token data
// source. The API is free and unauthenticated; it serves as the fallback
// when the Bags API fails or returns nothing.
package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/bagshub/bagshub/pkg/logger"
	"github.com/bagshub/bagshub/pkg/metrics"
	"github.com/bagshub/bagshub/pkg/models"
)

const chainSolana = "solana"

// Client talks to the DexScreener API. Construct once with New.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client against the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
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

// getJSON issues a GET and decodes the body into out. op is the fixed
// metric label for the call; token addresses and query strings must never
// end up in label values.
func (c *Client) getJSON(ctx context.Context, op, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequestDuration.WithLabelValues("dexscreener", op, "error").Observe(time.Since(start).Seconds())
		metrics.UpstreamErrors.WithLabelValues("dexscreener", op).Inc()
		return fmt.Errorf("dexscreener request: %w", err)
	}
	defer resp.Body.Close()

	metrics.UpstreamRequestDuration.WithLabelValues("dexscreener", op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamErrors.WithLabelValues("dexscreener", op).Inc()
		return fmt.Errorf("dexscreener api error: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode dexscreener response: %w", err)
	}
	return nil
}

// Search finds pairs matching a free-text query, keeping Solana pairs only.
func (c *Client) Search(ctx context.Context, query string) ([]Pair, error) {
	var data searchResponse
	if err := c.getJSON(ctx, "search", "/latest/dex/search?q="+url.QueryEscape(query), &data); err != nil {
		return nil, err
	}
	return filterSolana(data.Pairs), nil
}

// TokenPairs lists every known pair for a token address on Solana.
func (c *Client) TokenPairs(ctx context.Context, tokenAddress string) ([]Pair, error) {
	var data searchResponse
	if err := c.getJSON(ctx, "token_pairs", "/latest/dex/tokens/"+url.PathEscape(tokenAddress), &data); err != nil {
		return nil, err
	}
	return filterSolana(data.Pairs), nil
}

// Trending lists currently boosted Solana tokens. DexScreener has no direct
// trending endpoint, so boosted tokens stand in for it; when the boosts
// endpoint fails or yields nothing, a generic search is the fallback.
func (c *Client) Trending(ctx context.Context, limit int) ([]Pair, error) {
	var boosts []boost
	if err := c.getJSON(ctx, "boosts", "/token-boosts/top/v1", &boosts); err != nil {
		logger.Log.Warn("boosts endpoint failed, falling back to search", zap.Error(err))
		return c.Search(ctx, chainSolana)
	}

	var mints []string
	for _, b := range boosts {
		if b.ChainID == chainSolana {
			mints = append(mints, b.TokenAddress)
		}
	}
	if len(mints) == 0 {
		return c.Search(ctx, chainSolana)
	}
	if limit <= 0 || limit > 10 {
		limit = 10
	}
	if len(mints) > limit {
		mints = mints[:limit]
	}

	var pairs []Pair
	for _, mint := range mints {
		tokenPairs, err := c.TokenPairs(ctx, mint)
		if err != nil {
			// Skip failed lookups; trending is best effort.
			continue
		}
		if len(tokenPairs) > 0 {
			pairs = append(pairs, tokenPairs[0])
		}
	}
	return pairs, nil
}

// Latest lists recently profiled Solana tokens (new launches), merging the
// profile's icon and links into the pair's info block.
func (c *Client) Latest(ctx context.Context, limit int) ([]Pair, error) {
	var profiles []profile
	if err := c.getJSON(ctx, "profiles", "/token-profiles/latest/v1", &profiles); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 10 {
		limit = 10
	}
	var pairs []Pair
	for _, p := range profiles {
		if p.ChainID != chainSolana {
			continue
		}
		if len(pairs) >= limit {
			break
		}
		tokenPairs, err := c.TokenPairs(ctx, p.TokenAddress)
		if err != nil || len(tokenPairs) == 0 {
			continue
		}
		pair := tokenPairs[0]
		info := PairInfo{ImageURL: p.Icon}
		for _, l := range p.Links {
			switch l.Type {
			case "website":
				info.Websites = append(info.Websites, l)
			case "twitter", "telegram", "discord":
				info.Socials = append(info.Socials, l)
			}
		}
		pair.Info = &info
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// TopByVolume returns normalized tokens sorted by 24h volume.
func (c *Client) TopByVolume(ctx context.Context, limit int) ([]models.Token, error) {
	pairs, err := c.Search(ctx, chainSolana)
	if err != nil {
		return nil, err
	}
	pairs = DedupePairs(pairs)
	filtered := pairs[:0]
	for _, p := range pairs {
		if p.Volume.H24 > 0 {
			filtered = append(filtered, p)
		}
	}
	sortPairs(filtered, func(a, b Pair) bool { return a.Volume.H24 > b.Volume.H24 })
	return pairsToTokens(clip(filtered, limit)), nil
}

// TopGainers returns normalized tokens with positive 24h change, highest
// first. A volume floor filters out illiquid noise.
func (c *Client) TopGainers(ctx context.Context, limit int) ([]models.Token, error) {
	pairs, err := c.Search(ctx, chainSolana)
	if err != nil {
		return nil, err
	}
	pairs = DedupePairs(pairs)
	filtered := pairs[:0]
	for _, p := range pairs {
		if p.PriceChange.H24 > 0 && p.Volume.H24 > 1000 {
			filtered = append(filtered, p)
		}
	}
	sortPairs(filtered, func(a, b Pair) bool { return a.PriceChange.H24 > b.PriceChange.H24 })
	return pairsToTokens(clip(filtered, limit)), nil
}

// TopLosers returns normalized tokens with negative 24h change, lowest first.
func (c *Client) TopLosers(ctx context.Context, limit int) ([]models.Token, error) {
	pairs, err := c.Search(ctx, chainSolana)
	if err != nil {
		return nil, err
	}
	pairs = DedupePairs(pairs)
	filtered := pairs[:0]
	for _, p := range pairs {
		if p.PriceChange.H24 < 0 && p.Volume.H24 > 1000 {
			filtered = append(filtered, p)
		}
	}
	sortPairs(filtered, func(a, b Pair) bool { return a.PriceChange.H24 < b.PriceChange.H24 })
	return pairsToTokens(clip(filtered, limit)), nil
}

func filterSolana(pairs []Pair) []Pair {
	out := pairs[:0]
	for _, p := range pairs {
		if p.ChainID == chainSolana {
			out = append(out, p)
		}
	}
	return out
}

func clip(pairs []Pair, limit int) []Pair {
	if limit > 0 && len(pairs) > limit {
		return pairs[:limit]
	}
	return pairs
}

func pairsToTokens(pairs []Pair) []models.Token {
	tokens := make([]models.Token, 0, len(pairs))
	for _, p := range pairs {
		tokens = append(tokens, PairToToken(p))
	}
	return tokens
}

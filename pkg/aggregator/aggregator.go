// Package aggregator merges token market data from the Bags API and
// DexScreener into a single normalized feed. Reads degrade gracefully:
// when the primary upstream fails the secondary is tried, and when both
// fail lists come back empty rather than erroring.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bagshub/bagshub/pkg/bagsapi"
	"github.com/bagshub/bagshub/pkg/dexscreener"
	"github.com/bagshub/bagshub/pkg/logger"
	"github.com/bagshub/bagshub/pkg/metrics"
	"github.com/bagshub/bagshub/pkg/models"
)

// ErrNotFound is returned by TokenDetails when neither upstream knows
// the mint.
var ErrNotFound = errors.New("aggregator: token not found")

// DefaultLimit caps list responses when the caller does not say.
const DefaultLimit = 50

// BagsSource is the slice of the Bags API client the aggregator needs.
type BagsSource interface {
	Tokens(ctx context.Context, p bagsapi.TokensParams) (*bagsapi.TokenList, error)
	Trending(ctx context.Context, limit int, timeFrame string) (*bagsapi.TokenList, error)
	TokenByMint(ctx context.Context, mint string) (*models.Token, error)
}

// DexSource is the slice of the DexScreener client the aggregator needs.
type DexSource interface {
	Trending(ctx context.Context, limit int) ([]dexscreener.Pair, error)
	Latest(ctx context.Context, limit int) ([]dexscreener.Pair, error)
	TopByVolume(ctx context.Context, limit int) ([]models.Token, error)
	TopGainers(ctx context.Context, limit int) ([]models.Token, error)
	TopLosers(ctx context.Context, limit int) ([]models.Token, error)
	Search(ctx context.Context, query string) ([]dexscreener.Pair, error)
	TokenPairs(ctx context.Context, tokenAddress string) ([]dexscreener.Pair, error)
}

// ListCache stores rendered leaderboards. A nil cache disables caching.
type ListCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Query selects one token list.
type Query struct {
	Kind   models.LeaderboardKind
	Limit  int
	Search string
}

func (q Query) normalized() Query {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = DefaultLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func (q Query) cacheKey() string {
	return fmt.Sprintf("tokens:%s:%d", q.Kind, q.Limit)
}

// Service aggregates the two upstreams behind one read API.
type Service struct {
	bags     BagsSource
	dex      DexSource
	cache    ListCache
	cacheTTL time.Duration
}

// New builds a Service. bags may be nil when no API key is configured;
// cache may be nil to disable the shared list cache.
func New(bags BagsSource, dex DexSource, cache ListCache, cacheTTL time.Duration) *Service {
	return &Service{bags: bags, dex: dex, cache: cache, cacheTTL: cacheTTL}
}

// ListTokens returns a deduplicated, kind-ordered token list. It never
// returns an error: upstream failures shrink the result, ultimately to
// an empty slice.
func (s *Service) ListTokens(ctx context.Context, q Query) []models.Token {
	q = q.normalized()

	if q.Search != "" {
		return s.searchTokens(ctx, q)
	}

	if s.cache != nil {
		var cached []models.Token
		if err := s.cache.GetJSON(ctx, q.cacheKey(), &cached); err == nil {
			metrics.ListCacheHits.WithLabelValues("hit").Inc()
			return cached
		}
		metrics.ListCacheHits.WithLabelValues("miss").Inc()
	}

	tokens := s.fetchList(ctx, q)
	tokens = Rank(tokens, q.Kind, q.Limit)

	if s.cache != nil && len(tokens) > 0 {
		if err := s.cache.SetJSON(ctx, q.cacheKey(), tokens, s.cacheTTL); err != nil {
			logger.Log.Debug("list cache write failed", zap.Error(err))
		}
	}
	return tokens
}

// Warm refetches the list for q and rewrites the cache entry no matter
// how fresh it is. Used by the cache warmer so interactive reads stay
// hot.
func (s *Service) Warm(ctx context.Context, q Query) error {
	if s.cache == nil {
		return errors.New("aggregator: no cache configured")
	}
	q = q.normalized()
	tokens := Rank(s.fetchList(ctx, q), q.Kind, q.Limit)
	if len(tokens) == 0 {
		return fmt.Errorf("aggregator: no tokens fetched for %s", q.Kind)
	}
	return s.cache.SetJSON(ctx, q.cacheKey(), tokens, s.cacheTTL)
}

// fetchList tries the primary upstream, then the fallback.
func (s *Service) fetchList(ctx context.Context, q Query) []models.Token {
	if s.bags != nil {
		tokens, err := s.fetchFromBags(ctx, q)
		if err == nil {
			return tokens
		}
		logger.Log.Warn("bags list fetch failed, falling back",
			zap.String("kind", string(q.Kind)), zap.Error(err))
		metrics.UpstreamFallbacks.Inc()
	}

	tokens, err := s.fetchFromDex(ctx, q)
	if err != nil {
		logger.Log.Warn("dexscreener list fetch failed, serving empty list",
			zap.String("kind", string(q.Kind)), zap.Error(err))
		return []models.Token{}
	}
	return tokens
}

func (s *Service) fetchFromBags(ctx context.Context, q Query) ([]models.Token, error) {
	switch q.Kind {
	case models.KindTrending:
		list, err := s.bags.Trending(ctx, q.Limit, "24h")
		if err != nil {
			return nil, err
		}
		return list.Tokens, nil
	default:
		list, err := s.bags.Tokens(ctx, bagsapi.TokensParams{Sort: bagsSort(q.Kind), Limit: q.Limit})
		if err != nil {
			return nil, err
		}
		return list.Tokens, nil
	}
}

func bagsSort(kind models.LeaderboardKind) string {
	switch kind {
	case models.KindVolume:
		return "volume"
	case models.KindGainers:
		return "gainers"
	case models.KindLosers:
		return "losers"
	case models.KindNew:
		return "newest"
	case models.KindHolders:
		return "holders"
	default:
		return "trending"
	}
}

func (s *Service) fetchFromDex(ctx context.Context, q Query) ([]models.Token, error) {
	switch q.Kind {
	case models.KindVolume:
		return s.dex.TopByVolume(ctx, q.Limit)
	case models.KindGainers:
		return s.dex.TopGainers(ctx, q.Limit)
	case models.KindLosers:
		return s.dex.TopLosers(ctx, q.Limit)
	case models.KindNew:
		pairs, err := s.dex.Latest(ctx, q.Limit)
		if err != nil {
			return nil, err
		}
		return pairsToTokens(pairs), nil
	default:
		// Trending; holders has no DexScreener equivalent, trending
		// order is the closest substitute.
		pairs, err := s.dex.Trending(ctx, q.Limit)
		if err != nil {
			return nil, err
		}
		return pairsToTokens(pairs), nil
	}
}

// searchTokens is never cached; queries are too diverse to warm.
func (s *Service) searchTokens(ctx context.Context, q Query) []models.Token {
	if s.bags != nil {
		list, err := s.bags.Tokens(ctx, bagsapi.TokensParams{Search: q.Search, Limit: q.Limit})
		if err == nil {
			return Rank(list.Tokens, q.Kind, q.Limit)
		}
		logger.Log.Warn("bags search failed, falling back", zap.Error(err))
		metrics.UpstreamFallbacks.Inc()
	}

	pairs, err := s.dex.Search(ctx, q.Search)
	if err != nil {
		logger.Log.Warn("dexscreener search failed, serving empty list", zap.Error(err))
		return []models.Token{}
	}
	return Rank(pairsToTokens(pairs), q.Kind, q.Limit)
}

// TokenDetails resolves the detail-page payload for one mint. Unlike
// list reads this does error: a detail page for an unknown mint is a
// real 404.
func (s *Service) TokenDetails(ctx context.Context, mint string) (*models.TokenDetails, error) {
	details := &models.TokenDetails{}

	var bagsToken *models.Token
	if s.bags != nil {
		t, err := s.bags.TokenByMint(ctx, mint)
		if err == nil {
			bagsToken = t
		} else {
			var apiErr *bagsapi.APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != 404 {
				logger.Log.Warn("bags token detail fetch failed", zap.String("mint", mint), zap.Error(err))
				metrics.UpstreamFallbacks.Inc()
			}
		}
	}

	pairs, err := s.dex.TokenPairs(ctx, mint)
	if err != nil {
		logger.Log.Warn("dexscreener pairs fetch failed", zap.String("mint", mint), zap.Error(err))
		pairs = nil
	}

	switch {
	case bagsToken != nil:
		details.Token = *bagsToken
	case len(pairs) > 0:
		details.Token = dexscreener.PairToToken(bestPair(pairs))
	default:
		return nil, ErrNotFound
	}

	for _, p := range pairs {
		liquidity := 0.0
		if p.Liquidity != nil {
			liquidity = p.Liquidity.USD
		}
		details.Pairs = append(details.Pairs, models.Pair{
			PairAddress: p.PairAddress,
			DexID:       p.DexID,
			Liquidity:   liquidity,
			Volume24h:   p.Volume.H24,
			URL:         p.URL,
		})
	}
	if len(pairs) > 0 {
		best := bestPair(pairs)
		details.Txns = models.Txns{
			M5:  models.TxnWindow{Buys: best.Txns.M5.Buys, Sells: best.Txns.M5.Sells},
			H1:  models.TxnWindow{Buys: best.Txns.H1.Buys, Sells: best.Txns.H1.Sells},
			H6:  models.TxnWindow{Buys: best.Txns.H6.Buys, Sells: best.Txns.H6.Sells},
			H24: models.TxnWindow{Buys: best.Txns.H24.Buys, Sells: best.Txns.H24.Sells},
		}
	}
	return details, nil
}

// bestPair picks the most liquid pair.
func bestPair(pairs []dexscreener.Pair) dexscreener.Pair {
	best := pairs[0]
	bestLiq := -1.0
	for _, p := range pairs {
		liq := 0.0
		if p.Liquidity != nil {
			liq = p.Liquidity.USD
		}
		if liq > bestLiq {
			best, bestLiq = p, liq
		}
	}
	return best
}

// Rank deduplicates by mint (keeping the higher-liquidity record),
// applies the kind's filter and ordering, and clips to limit. Ordering
// is enforced here so every upstream yields the same contract: gainers
// are non-negative 24h movers descending, losers negative ascending.
func Rank(tokens []models.Token, kind models.LeaderboardKind, limit int) []models.Token {
	tokens = dedupe(tokens)

	switch kind {
	case models.KindGainers:
		tokens = filter(tokens, func(t models.Token) bool { return t.PriceChange24h >= 0 })
		sort.SliceStable(tokens, func(i, j int) bool {
			return tokens[i].PriceChange24h > tokens[j].PriceChange24h
		})
	case models.KindLosers:
		tokens = filter(tokens, func(t models.Token) bool { return t.PriceChange24h < 0 })
		sort.SliceStable(tokens, func(i, j int) bool {
			return tokens[i].PriceChange24h < tokens[j].PriceChange24h
		})
	case models.KindVolume:
		sort.SliceStable(tokens, func(i, j int) bool {
			return tokens[i].Volume24h > tokens[j].Volume24h
		})
	case models.KindHolders:
		sort.SliceStable(tokens, func(i, j int) bool {
			return tokens[i].HolderCount > tokens[j].HolderCount
		})
	case models.KindNew:
		sort.SliceStable(tokens, func(i, j int) bool {
			return tokens[i].CreatedAt > tokens[j].CreatedAt
		})
	}
	// Trending keeps upstream order.

	if limit > 0 && len(tokens) > limit {
		tokens = tokens[:limit]
	}
	if tokens == nil {
		tokens = []models.Token{}
	}
	return tokens
}

// dedupe collapses duplicate mints, keeping the record with more
// liquidity and the first record's position.
func dedupe(tokens []models.Token) []models.Token {
	seen := make(map[string]int, len(tokens))
	out := make([]models.Token, 0, len(tokens))
	for _, t := range tokens {
		if i, ok := seen[t.Mint]; ok {
			metrics.TokensDeduplicated.Inc()
			if t.Liquidity > out[i].Liquidity {
				out[i] = t
			}
			continue
		}
		seen[t.Mint] = len(out)
		out = append(out, t)
	}
	return out
}

func filter(tokens []models.Token, keep func(models.Token) bool) []models.Token {
	out := tokens[:0:0]
	for _, t := range tokens {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// pairsToTokens normalizes and deduplicates raw pairs.
func pairsToTokens(pairs []dexscreener.Pair) []models.Token {
	pairs = dexscreener.DedupePairs(pairs)
	out := make([]models.Token, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, dexscreener.PairToToken(p))
	}
	return out
}

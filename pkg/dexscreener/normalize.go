package dexscreener

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bagshub/bagshub/pkg/metrics"
	"github.com/bagshub/bagshub/pkg/models"
)

// PairToToken converts a DexScreener pair into the local token shape.
// Fields DexScreener does not report (creator, supply, holders, 7d change)
// are left at their zero values.
func PairToToken(p Pair) models.Token {
	var twitter, telegram, website string
	if p.Info != nil {
		for _, s := range p.Info.Socials {
			switch s.Type {
			case "twitter":
				twitter = stripPrefixes(s.URL, "https://twitter.com/", "https://x.com/")
			case "telegram":
				telegram = stripPrefixes(s.URL, "https://t.me/")
			}
		}
		if len(p.Info.Websites) > 0 {
			website = p.Info.Websites[0].URL
		}
	}

	createdAt := models.NowRFC3339()
	if p.PairCreatedAt > 0 {
		createdAt = time.UnixMilli(p.PairCreatedAt).UTC().Format(time.RFC3339)
	}

	price, _ := strconv.ParseFloat(p.PriceUSD, 64)

	marketCap := p.MarketCap
	if marketCap == 0 {
		marketCap = p.FDV
	}
	var liquidity float64
	if p.Liquidity != nil {
		liquidity = p.Liquidity.USD
	}
	var imageURL string
	if p.Info != nil {
		imageURL = p.Info.ImageURL
	}

	return models.Token{
		Mint:           p.BaseToken.Address,
		Name:           p.BaseToken.Name,
		Symbol:         p.BaseToken.Symbol,
		ImageURL:       imageURL,
		CreatedAt:      createdAt,
		Supply:         "0",
		Decimals:       9,
		Price:          price,
		PriceChange1h:  p.PriceChange.H1,
		PriceChange24h: p.PriceChange.H24,
		Volume24h:      p.Volume.H24,
		MarketCap:      marketCap,
		Liquidity:      liquidity,
		Twitter:        twitter,
		Telegram:       telegram,
		Website:        website,
		Tags:           GuessTags(p.BaseToken.Name, p.BaseToken.Symbol),
	}
}

func stripPrefixes(s string, prefixes ...string) string {
	for _, p := range prefixes {
		s = strings.TrimPrefix(s, p)
	}
	return s
}

// GuessTags derives category tags from a token's name and symbol. Most
// Solana launches are memes, so that is the default.
func GuessTags(name, symbol string) []string {
	var tags []string
	combined := strings.ToLower(name + " " + symbol)

	if strings.Contains(combined, "ai") || strings.Contains(combined, "gpt") || strings.Contains(combined, "bot") {
		tags = append(tags, "ai")
	}
	if strings.Contains(combined, "game") || strings.Contains(combined, "play") {
		tags = append(tags, "gaming")
	}
	if strings.Contains(combined, "defi") || strings.Contains(combined, "swap") || strings.Contains(combined, "finance") {
		tags = append(tags, "defi")
	}
	for _, meme := range []string{"dog", "cat", "pepe", "doge", "shib", "inu"} {
		if strings.Contains(combined, meme) {
			tags = append(tags, "meme")
			break
		}
	}
	if strings.Contains(combined, "nft") {
		tags = append(tags, "nft")
	}
	if len(tags) == 0 {
		tags = append(tags, "meme")
	}
	return tags
}

// DedupePairs collapses multiple pairs of the same base token, keeping the
// record with the highest reported liquidity. Order of first appearance is
// preserved for the survivors.
func DedupePairs(pairs []Pair) []Pair {
	best := make(map[string]int, len(pairs))
	var order []string
	for i, p := range pairs {
		mint := p.BaseToken.Address
		prev, seen := best[mint]
		if !seen {
			best[mint] = i
			order = append(order, mint)
			continue
		}
		metrics.TokensDeduplicated.Inc()
		if pairLiquidity(p) > pairLiquidity(pairs[prev]) {
			best[mint] = i
		}
	}
	out := make([]Pair, 0, len(order))
	for _, mint := range order {
		out = append(out, pairs[best[mint]])
	}
	return out
}

func pairLiquidity(p Pair) float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.USD
}

// sortPairs sorts in place with a stable order for equal keys.
func sortPairs(pairs []Pair, less func(a, b Pair) bool) {
	sort.SliceStable(pairs, func(i, j int) bool { return less(pairs[i], pairs[j]) })
}

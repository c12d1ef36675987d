package models

import (
	"time"
)

// Token is the normalized token shape served by every list and detail
// endpoint, regardless of which upstream supplied the record. The mint
// address is the natural key.
type Token struct {
	Mint           string   `json:"mint" validate:"required,mint"`
	Name           string   `json:"name" validate:"required"`
	Symbol         string   `json:"symbol" validate:"required"`
	ImageURL       string   `json:"imageUrl,omitempty"`
	Description    string   `json:"description,omitempty"`
	CreatorAddress string   `json:"creatorAddress,omitempty"`
	CreatedAt      string   `json:"createdAt,omitempty"`
	Supply         string   `json:"supply,omitempty"`
	Decimals       int      `json:"decimals,omitempty"`
	Price          float64  `json:"price"`
	PriceChange1h  float64  `json:"priceChange1h"`
	PriceChange24h float64  `json:"priceChange24h"`
	PriceChange7d  float64  `json:"priceChange7d"`
	Volume24h      float64  `json:"volume24h"`
	MarketCap      float64  `json:"marketCap"`
	Liquidity      float64  `json:"liquidity"`
	HolderCount    int      `json:"holderCount"`
	Twitter        string   `json:"twitter,omitempty"`
	Telegram       string   `json:"telegram,omitempty"`
	Website        string   `json:"website,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// Pair is a trading venue listing for a token against a quote asset.
type Pair struct {
	PairAddress string  `json:"pairAddress"`
	DexID       string  `json:"dexId"`
	Liquidity   float64 `json:"liquidity"`
	Volume24h   float64 `json:"volume24h"`
	URL         string  `json:"url,omitempty"`
}

// TxnWindow counts buys and sells inside one time bucket.
type TxnWindow struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// Txns holds transaction counts bucketed by window.
type Txns struct {
	M5  TxnWindow `json:"m5"`
	H1  TxnWindow `json:"h1"`
	H6  TxnWindow `json:"h6"`
	H24 TxnWindow `json:"h24"`
}

// TokenDetails is the detail-page payload: the token plus every known
// trading pair and the transaction buckets of the most liquid pair.
type TokenDetails struct {
	Token Token  `json:"token"`
	Pairs []Pair `json:"pairs"`
	Txns  Txns   `json:"txns"`
}

// Holder is one entry of a token's holder distribution.
type Holder struct {
	Address    string  `json:"address"`
	Balance    string  `json:"balance"`
	Percentage float64 `json:"percentage"`
}

// Transaction is a single swap against a token's pair.
type Transaction struct {
	Signature string  `json:"signature"`
	Type      string  `json:"type"` // "buy" or "sell"
	Amount    string  `json:"amount"`
	Price     float64 `json:"price"`
	Timestamp string  `json:"timestamp"`
}

// PriceCandle is one OHLCV bucket of a token's price history.
type PriceCandle struct {
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// LeaderboardKind selects the ranking metric for a token list.
type LeaderboardKind string

const (
	KindTrending LeaderboardKind = "trending"
	KindVolume   LeaderboardKind = "volume"
	KindGainers  LeaderboardKind = "gainers"
	KindLosers   LeaderboardKind = "losers"
	KindNew      LeaderboardKind = "new"
	KindHolders  LeaderboardKind = "holders"
)

// ParseLeaderboardKind maps a query string value to a kind, defaulting to
// trending for unknown values the way the original route handler did.
func ParseLeaderboardKind(s string) LeaderboardKind {
	switch LeaderboardKind(s) {
	case KindVolume, KindGainers, KindLosers, KindNew, KindHolders:
		return LeaderboardKind(s)
	default:
		return KindTrending
	}
}

// NowRFC3339 is the timestamp format used for token creation times.
func NowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

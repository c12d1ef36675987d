package dexscreener

// Wire types for the DexScreener public API.
// Docs: https://docs.dexscreener.com/api/reference

// TokenRef identifies one side of a trading pair.
type TokenRef struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// TxnWindow counts buys and sells inside one time bucket.
type TxnWindow struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// PairTxns holds transaction counts bucketed by window.
type PairTxns struct {
	M5  TxnWindow `json:"m5"`
	H1  TxnWindow `json:"h1"`
	H6  TxnWindow `json:"h6"`
	H24 TxnWindow `json:"h24"`
}

// PairVolume holds USD volume per window.
type PairVolume struct {
	H24 float64 `json:"h24"`
	H6  float64 `json:"h6"`
	H1  float64 `json:"h1"`
	M5  float64 `json:"m5"`
}

// PairPriceChange holds percentage price change per window.
type PairPriceChange struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

// PairLiquidity holds pooled liquidity for a pair.
type PairLiquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// PairLink is a website or social entry attached to a pair's info block.
type PairLink struct {
	Label string `json:"label,omitempty"`
	Type  string `json:"type,omitempty"`
	URL   string `json:"url"`
}

// PairInfo is the optional metadata block on a pair.
type PairInfo struct {
	ImageURL string     `json:"imageUrl,omitempty"`
	Websites []PairLink `json:"websites,omitempty"`
	Socials  []PairLink `json:"socials,omitempty"`
}

// Pair is one trading venue listing as reported by DexScreener.
type Pair struct {
	ChainID       string          `json:"chainId"`
	DexID         string          `json:"dexId"`
	URL           string          `json:"url"`
	PairAddress   string          `json:"pairAddress"`
	BaseToken     TokenRef        `json:"baseToken"`
	QuoteToken    TokenRef        `json:"quoteToken"`
	PriceNative   string          `json:"priceNative"`
	PriceUSD      string          `json:"priceUsd"`
	Txns          PairTxns        `json:"txns"`
	Volume        PairVolume      `json:"volume"`
	PriceChange   PairPriceChange `json:"priceChange"`
	Liquidity     *PairLiquidity  `json:"liquidity,omitempty"`
	FDV           float64         `json:"fdv,omitempty"`
	MarketCap     float64         `json:"marketCap,omitempty"`
	PairCreatedAt int64           `json:"pairCreatedAt,omitempty"` // unix ms
	Info          *PairInfo       `json:"info,omitempty"`
}

// searchResponse is the envelope of the search and token-pairs endpoints.
type searchResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

// boost is one entry of the token-boosts endpoint.
type boost struct {
	ChainID      string `json:"chainId"`
	TokenAddress string `json:"tokenAddress"`
}

// profile is one entry of the latest token-profiles endpoint.
type profile struct {
	ChainID      string     `json:"chainId"`
	TokenAddress string     `json:"tokenAddress"`
	Icon         string     `json:"icon,omitempty"`
	Links        []PairLink `json:"links,omitempty"`
}

package dexscreener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bagshub/bagshub/pkg/metrics"
)

func testPair(mint string, liquidity, volume, change float64) Pair {
	return Pair{
		ChainID:     chainSolana,
		DexID:       "raydium",
		PairAddress: "pair-" + mint,
		BaseToken:   TokenRef{Address: mint, Name: "Token " + mint, Symbol: "TK"},
		QuoteToken:  TokenRef{Address: "So11111111111111111111111111111111111111112", Name: "Wrapped SOL", Symbol: "SOL"},
		PriceUSD:    "0.5",
		Volume:      PairVolume{H24: volume},
		PriceChange: PairPriceChange{H24: change},
		Liquidity:   &PairLiquidity{USD: liquidity},
	}
}

func TestDedupePairs_KeepsHighestLiquidity(t *testing.T) {
	pairs := []Pair{
		testPair("mintA", 100, 5000, 1),
		testPair("mintB", 50, 5000, 2),
		testPair("mintA", 900, 5000, 3),
		testPair("mintA", 300, 5000, 4),
	}

	got := DedupePairs(pairs)
	if len(got) != 2 {
		t.Fatalf("len = %d; want 2", len(got))
	}

	seen := map[string]Pair{}
	for _, p := range got {
		if _, dup := seen[p.BaseToken.Address]; dup {
			t.Fatalf("duplicate mint %s survived dedupe", p.BaseToken.Address)
		}
		seen[p.BaseToken.Address] = p
	}
	if seen["mintA"].Liquidity.USD != 900 {
		t.Errorf("mintA liquidity = %v; want the max (900)", seen["mintA"].Liquidity.USD)
	}
	// First-appearance order is preserved.
	if got[0].BaseToken.Address != "mintA" || got[1].BaseToken.Address != "mintB" {
		t.Errorf("order = [%s %s]; want [mintA mintB]", got[0].BaseToken.Address, got[1].BaseToken.Address)
	}
}

func TestPairToToken(t *testing.T) {
	p := testPair("mintX", 1234, 9999, -2.5)
	p.PairCreatedAt = 1717243200000
	p.MarketCap = 0
	p.FDV = 777
	p.Info = &PairInfo{
		ImageURL: "https://img.example/x.png",
		Websites: []PairLink{{Type: "website", URL: "https://x.example"}},
		Socials: []PairLink{
			{Type: "twitter", URL: "https://x.com/tokenx"},
			{Type: "telegram", URL: "https://t.me/tokenx"},
		},
	}

	tok := PairToToken(p)
	if tok.Mint != "mintX" {
		t.Errorf("Mint = %q", tok.Mint)
	}
	if tok.Price != 0.5 {
		t.Errorf("Price = %v; want 0.5", tok.Price)
	}
	if tok.PriceChange24h != -2.5 {
		t.Errorf("PriceChange24h = %v; want -2.5", tok.PriceChange24h)
	}
	if tok.MarketCap != 777 {
		t.Errorf("MarketCap = %v; want FDV fallback 777", tok.MarketCap)
	}
	if tok.Twitter != "tokenx" {
		t.Errorf("Twitter = %q; want handle without URL prefix", tok.Twitter)
	}
	if tok.Telegram != "tokenx" {
		t.Errorf("Telegram = %q; want handle without URL prefix", tok.Telegram)
	}
	if tok.Website != "https://x.example" {
		t.Errorf("Website = %q", tok.Website)
	}
	if tok.CreatedAt != "2024-06-01T12:00:00Z" {
		t.Errorf("CreatedAt = %q; want 2024-06-01T12:00:00Z", tok.CreatedAt)
	}
}

func TestGuessTags(t *testing.T) {
	cases := []struct {
		name, symbol string
		want         string
	}{
		{"Doge Killer", "LEASH", "meme"},
		{"AI Trader", "AIT", "ai"},
		{"SwapCoin", "SWP", "defi"},
		{"Plain Token", "PLN", "meme"}, // default
	}
	for _, c := range cases {
		tags := GuessTags(c.name, c.symbol)
		found := false
		for _, tag := range tags {
			if tag == c.want {
				found = true
			}
		}
		if !found {
			t.Errorf("GuessTags(%q, %q) = %v; want to include %q", c.name, c.symbol, tags, c.want)
		}
	}
}

func TestSearch_FiltersSolanaOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"schemaVersion":"1.0.0","pairs":[
			{"chainId":"solana","pairAddress":"p1","baseToken":{"address":"m1","name":"A","symbol":"A"}},
			{"chainId":"ethereum","pairAddress":"p2","baseToken":{"address":"m2","name":"B","symbol":"B"}}
		]}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	pairs, err := client.Search(context.Background(), "test")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(pairs) != 1 || pairs[0].ChainID != chainSolana {
		t.Errorf("pairs = %+v; want only solana pairs", pairs)
	}
}

func TestTopGainers_FilterAndOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[
			{"chainId":"solana","baseToken":{"address":"m1","name":"A","symbol":"A"},"priceUsd":"1","volume":{"h24":5000},"priceChange":{"h24":10},"liquidity":{"usd":1}},
			{"chainId":"solana","baseToken":{"address":"m2","name":"B","symbol":"B"},"priceUsd":"1","volume":{"h24":5000},"priceChange":{"h24":-4},"liquidity":{"usd":1}},
			{"chainId":"solana","baseToken":{"address":"m3","name":"C","symbol":"C"},"priceUsd":"1","volume":{"h24":5000},"priceChange":{"h24":25},"liquidity":{"usd":1}},
			{"chainId":"solana","baseToken":{"address":"m4","name":"D","symbol":"D"},"priceUsd":"1","volume":{"h24":10},"priceChange":{"h24":99},"liquidity":{"usd":1}}
		]}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	tokens, err := client.TopGainers(context.Background(), 10)
	if err != nil {
		t.Fatalf("TopGainers: %v", err)
	}
	// m2 is a loser, m4 is under the volume floor.
	if len(tokens) != 2 {
		t.Fatalf("len = %d; want 2", len(tokens))
	}
	if tokens[0].Mint != "m3" || tokens[1].Mint != "m1" {
		t.Errorf("order = [%s %s]; want [m3 m1]", tokens[0].Mint, tokens[1].Mint)
	}
}

func TestMetrics_OperationLabelsStayBounded(t *testing.T) {
	const mint = "DexLabeLmintxxxxxxxxxxxxxxxxxxxxxxxxxxxx"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[{"chainId":"solana","pairAddress":"p1","baseToken":{"address":"` + mint + `","name":"A","symbol":"A"}}]}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	if _, err := client.TokenPairs(context.Background(), mint); err != nil {
		t.Fatalf("TokenPairs: %v", err)
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	if !strings.Contains(body, `endpoint="token_pairs"`) {
		t.Error("expected a fixed token_pairs operation label in metrics output")
	}
	if strings.Contains(body, mint) {
		t.Error("token address leaked into a metric label")
	}
}

func TestTrending_FallsBackToSearchOnBoostFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token-boosts/top/v1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/latest/dex/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[{"chainId":"solana","baseToken":{"address":"m1","name":"A","symbol":"A"}}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := New(srv.URL)
	pairs, err := client.Trending(context.Background(), 5)
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if len(pairs) != 1 || pairs[0].BaseToken.Address != "m1" {
		t.Errorf("pairs = %+v; want search fallback result", pairs)
	}
}

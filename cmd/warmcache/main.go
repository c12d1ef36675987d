// Command warmcache keeps the shared token list cache hot: on a fixed
// interval it runs the aggregator's leaderboard queries and writes the
// results to Redis, so interactive reads rarely pay an upstream
// round-trip.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/bagshub/bagshub/pkg/aggregator"
	"github.com/bagshub/bagshub/pkg/bagsapi"
	"github.com/bagshub/bagshub/pkg/config"
	"github.com/bagshub/bagshub/pkg/dexscreener"
	"github.com/bagshub/bagshub/pkg/logger"
	"github.com/bagshub/bagshub/pkg/metrics"
	"github.com/bagshub/bagshub/pkg/models"
	"github.com/bagshub/bagshub/pkg/ratelimit"
	"github.com/bagshub/bagshub/pkg/redisclient"
)

// hotKinds are the leaderboards worth keeping warm.
var hotKinds = []models.LeaderboardKind{
	models.KindTrending,
	models.KindVolume,
	models.KindGainers,
	models.KindLosers,
	models.KindNew,
}

func main() {
	if err := logger.Init(); err != nil {
		panic("logger init: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal("config error", zap.Error(err))
	}
	if cfg.RedisURL == "" {
		logger.Log.Fatal("warmcache requires REDIS_URL")
	}

	rdb, err := redisclient.New(cfg.RedisURL)
	if err != nil {
		logger.Log.Fatal("redis connect failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter := ratelimit.New(cfg.RateLimitQuota, cfg.RateLimitThreshold)
	var bags aggregator.BagsSource
	if cfg.BagsAPIKey != "" {
		bags = bagsapi.New(cfg.BagsAPIURL, cfg.BagsAPIKey, limiter)
	} else {
		logger.Log.Warn("BAGS_API_KEY not set, warming from DexScreener only")
	}
	dex := dexscreener.New(cfg.DexScreenerURL)

	// Warmed entries must outlive the warm interval or readers would
	// see misses between passes.
	ttl := cfg.CacheTTL
	if min := 2 * cfg.WarmInterval; ttl < min {
		ttl = min
	}
	agg := aggregator.New(bags, dex, rdb, ttl)

	go startMetricsServer(cfg.MetricsPort)

	ctx, cancel := context.WithCancel(context.Background())
	go warmLoop(ctx, agg, cfg.WarmInterval)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Log.Info("shutdown signal received, exiting")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

// warmLoop refreshes every hot leaderboard once per interval. The first
// pass runs immediately so a fresh deployment starts warm.
func warmLoop(ctx context.Context, agg *aggregator.Service, interval time.Duration) {
	warmAll(ctx, agg)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			warmAll(ctx, agg)
		}
	}
}

func warmAll(ctx context.Context, agg *aggregator.Service) {
	for _, kind := range hotKinds {
		warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := agg.Warm(warmCtx, aggregator.Query{Kind: kind, Limit: aggregator.DefaultLimit})
		cancel()
		if err != nil {
			logger.Log.Warn("warm pass failed",
				zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		logger.Log.Debug("warmed leaderboard", zap.String("kind", string(kind)))
	}
}

func startMetricsServer(port int) {
	r := mux.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	addr := fmt.Sprintf(":%d", port)
	logger.Log.Info("metrics server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Log.Error("metrics server failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bagshub/bagshub/pkg/aggregator"
	"github.com/bagshub/bagshub/pkg/auth"
	"github.com/bagshub/bagshub/pkg/bagsapi"
	"github.com/bagshub/bagshub/pkg/config"
	"github.com/bagshub/bagshub/pkg/database"
	"github.com/bagshub/bagshub/pkg/dexscreener"
	"github.com/bagshub/bagshub/pkg/logger"
	"github.com/bagshub/bagshub/pkg/ratelimit"
	"github.com/bagshub/bagshub/pkg/redisclient"
)

func main() {
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log

	log.Info("starting bagshub API server")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	log.Info("configuration loaded", zap.String("environment", cfg.Environment))

	server := &Server{cfg: cfg}

	// Postgres is optional: without DB_HOST the API falls back to the
	// in-memory store (accounts do not survive a restart).
	if os.Getenv("DB_HOST") != "" {
		db, err := database.New(database.NewConfig())
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.RunMigrations(ctx); err != nil {
			cancel()
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
		cancel()
		log.Info("database migrations completed")

		server.db = db
		server.users = database.NewUserStore(db)
		server.bookmarks = database.NewBookmarkStore(db)
	} else {
		log.Warn("DB_HOST not set, using in-memory store")
		mem := database.NewMemoryStore()
		server.users = mem
		server.bookmarks = mem
	}

	// Redis is optional: without it every list read hits the upstreams.
	var cache aggregator.ListCache
	if cfg.RedisURL != "" {
		redisClient, err := redisclient.New(cfg.RedisURL)
		if err != nil {
			log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		server.redis = redisClient
		cache = redisClient
	} else {
		log.Warn("REDIS_URL not set, list cache disabled")
	}

	limiter := ratelimit.New(cfg.RateLimitQuota, cfg.RateLimitThreshold)
	server.bags = bagsapi.New(cfg.BagsAPIURL, cfg.BagsAPIKey, limiter)
	dex := dexscreener.New(cfg.DexScreenerURL)

	var bagsSource aggregator.BagsSource
	if cfg.BagsAPIKey != "" {
		bagsSource = server.bags
	} else {
		log.Warn("BAGS_API_KEY not set, serving token data from DexScreener only")
	}
	server.agg = aggregator.New(bagsSource, dex, cache, cfg.CacheTTL)

	server.auth = auth.New(cfg.JWTSecret, cfg.JWTExpiration, cfg.CookieName, cfg.IsProduction())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      withTimeout(server.Router(), 30*time.Second),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

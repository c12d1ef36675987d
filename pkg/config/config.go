package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-wide settings. Upstream secrets come from the
// environment; absence of a required secret is a startup error, never a
// runtime retry condition.
type Config struct {
	Environment string
	HTTPPort    int
	MetricsPort int // side metrics listener for non-API processes

	// Upstream token data sources
	BagsAPIURL     string
	BagsAPIKey     string // required only for token creation / uploads
	DexScreenerURL string

	// Sessions
	JWTSecret     string
	JWTExpiration time.Duration
	CookieName    string

	// Transient list cache (optional; empty RedisURL disables it)
	RedisURL     string
	CacheTTL     time.Duration
	WarmInterval time.Duration

	// Rate-limit guard defaults until the first upstream response arrives
	RateLimitQuota     int
	RateLimitThreshold int
}

// Load reads .env (if present), environment variables, and application
// flags via a local FlagSet, strips out any -test.* flags, and validates
// required fields.
func Load() (*Config, error) {
	// .env is a development convenience; missing file is not an error.
	_ = godotenv.Load()

	// Build a fresh FlagSet so we don't collide with `go test` flags
	fs := flag.NewFlagSet("config", flag.ContinueOnError)

	var httpPort int
	fs.IntVar(&httpPort, "port", 8080, "HTTP listen port")

	// Filter out any -test.* args before parsing
	var appArgs []string
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") {
			continue
		}
		appArgs = append(appArgs, arg)
	}
	if err := fs.Parse(appArgs); err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment:        getEnvOrDefault("ENVIRONMENT", "development"),
		HTTPPort:           httpPort,
		MetricsPort:        getIntEnvOrDefault("METRICS_PORT", 8082),
		BagsAPIURL:         getEnvOrDefault("BAGS_API_URL", "https://public-api-v2.bags.fm/api/v1"),
		BagsAPIKey:         os.Getenv("BAGS_API_KEY"),
		DexScreenerURL:     getEnvOrDefault("DEXSCREENER_API_URL", "https://api.dexscreener.com"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTExpiration:      getDurationEnvOrDefault("JWT_EXPIRATION", 7*24*time.Hour),
		CookieName:         getEnvOrDefault("AUTH_COOKIE_NAME", "bagshub_token"),
		RedisURL:           os.Getenv("REDIS_URL"),
		CacheTTL:           getDurationEnvOrDefault("CACHE_TTL", 30*time.Second),
		WarmInterval:       getDurationEnvOrDefault("WARM_INTERVAL", 60*time.Second),
		RateLimitQuota:     getIntEnvOrDefault("RATE_LIMIT_QUOTA", 1000),
		RateLimitThreshold: getIntEnvOrDefault("RATE_LIMIT_THRESHOLD", 10),
	}

	// PORT env overrides the flag when set (container platforms set PORT)
	if portEnv := os.Getenv("PORT"); portEnv != "" {
		portVal, err := strconv.Atoi(portEnv)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT env var: %v", err)
		}
		cfg.HTTPPort = portVal
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required config: JWT_SECRET")
	}
	if cfg.JWTExpiration <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRATION must be positive")
	}

	return cfg, nil
}

// IsProduction reports whether secure cookie flags should be set.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvOrDefault returns environment variable as int or default
func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnvOrDefault returns environment variable as duration or default
func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

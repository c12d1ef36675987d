package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Upstream API metrics
	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream API request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "endpoint", "status"},
	)
	UpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_errors_total",
			Help: "Total upstream API errors",
		},
		[]string{"source", "endpoint"},
	)
	UpstreamFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_fallbacks_total",
			Help: "Reads served by the secondary source after a primary failure",
		})
	RateLimitRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_ratelimit_rejections_total",
			Help: "Calls refused locally because the upstream quota was exhausted",
		})

	// Aggregation metrics
	TokensDeduplicated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregator_tokens_deduplicated_total",
			Help: "Duplicate token records discarded during aggregation",
		})
	ListCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_list_cache_total",
			Help: "Token list cache lookups",
		},
		[]string{"result"},
	)

	// API metrics
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)
	APIRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Authentication metrics
	AuthOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Total authentication operations",
		},
		[]string{"operation", "status"},
	)
	AuthErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_errors_total",
			Help: "Total authentication errors",
		},
		[]string{"operation"},
	)

	// Database metrics
	DatabaseOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_operation_duration_seconds",
			Help:    "Database operation duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)
	DatabaseErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_errors_total",
			Help: "Total database errors",
		},
		[]string{"operation"},
	)
	DatabaseHealthCheckDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "database_health_check_duration_seconds",
			Help:    "Database health check duration",
			Buckets: prometheus.DefBuckets,
		})
	DatabaseHealthCheckErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "database_health_check_errors_total",
			Help: "Total database health check errors",
		})

	// Redis metrics
	RedisOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)
	RedisErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_errors_total",
			Help: "Total Redis errors",
		},
		[]string{"operation"},
	)
)

func init() {
	// MustRegister panics if registration fails (e.g. duplicate)
	prometheus.MustRegister(
		UpstreamRequestDuration, UpstreamErrors, UpstreamFallbacks, RateLimitRejections,
		TokensDeduplicated, ListCacheHits,
		APIRequestDuration, APIRequestTotal,
		AuthOperations, AuthErrors,
		DatabaseOperationDuration, DatabaseErrors,
		DatabaseHealthCheckDuration, DatabaseHealthCheckErrors,
		RedisOperationDuration, RedisErrors,
	)
}

// Handler exposes the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

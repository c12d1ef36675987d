package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bagshub/bagshub/pkg/aggregator"
	"github.com/bagshub/bagshub/pkg/auth"
	"github.com/bagshub/bagshub/pkg/bagsapi"
	"github.com/bagshub/bagshub/pkg/config"
	"github.com/bagshub/bagshub/pkg/database"
	"github.com/bagshub/bagshub/pkg/metrics"
	"github.com/bagshub/bagshub/pkg/redisclient"
)

// Server holds the API's dependencies. db and redis may be nil when the
// process runs without postgres (memory store) or without a cache.
type Server struct {
	cfg       *config.Config
	agg       *aggregator.Service
	bags      *bagsapi.Client
	auth      *auth.Service
	users     database.UserStore
	bookmarks database.BookmarkStore
	db        *database.DB
	redis     *redisclient.Client
}

// Router wires every route behind the shared middleware chain.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)
	router.Use(metricsMiddleware)

	router.HandleFunc("/health", s.healthHandler).Methods("GET")
	router.HandleFunc("/ready", s.readyHandler).Methods("GET")
	router.Handle("/metrics", metrics.Handler())

	api := router.PathPrefix("/api").Subrouter()

	// Aggregated token reads (public)
	api.HandleFunc("/tokens", s.listTokensHandler).Methods("GET")
	api.HandleFunc("/tokens/{mint}", s.tokenDetailsHandler).Methods("GET")

	// Bags API pass-through (public reads)
	bags := api.PathPrefix("/bags").Subrouter()
	bags.HandleFunc("/tokens", s.bagsTokensHandler).Methods("GET")
	bags.HandleFunc("/trending", s.bagsTrendingHandler).Methods("GET")
	bags.HandleFunc("/leaderboard", s.bagsLeaderboardHandler).Methods("GET")
	bags.HandleFunc("/search", s.bagsSearchHandler).Methods("GET")
	bags.HandleFunc("/ratelimit", s.bagsRateLimitHandler).Methods("GET")
	bags.HandleFunc("/tokens/{mint}", s.bagsTokenHandler).Methods("GET")
	bags.HandleFunc("/tokens/{mint}/holders", s.bagsHoldersHandler).Methods("GET")
	bags.HandleFunc("/tokens/{mint}/transactions", s.bagsTransactionsHandler).Methods("GET")
	bags.HandleFunc("/tokens/{mint}/prices", s.bagsPricesHandler).Methods("GET")

	// Sessions
	api.HandleFunc("/auth/register", s.registerHandler).Methods("POST")
	api.HandleFunc("/auth/login", s.loginHandler).Methods("POST")
	api.HandleFunc("/auth/logout", s.logoutHandler).Methods("POST")

	// Authenticated routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(s.auth.Middleware)
	protected.HandleFunc("/auth/me", s.meHandler).Methods("GET")
	protected.HandleFunc("/tokens", s.createTokenHandler).Methods("POST")
	protected.HandleFunc("/upload", s.uploadHandler).Methods("POST")
	protected.HandleFunc("/bookmarks", s.listBookmarksHandler).Methods("GET")
	protected.HandleFunc("/bookmarks", s.createBookmarkHandler).Methods("POST")
	protected.HandleFunc("/bookmarks/{mint}", s.deleteBookmarkHandler).Methods("DELETE")

	return router
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]string{"status": "healthy"},
	})
}

// readyHandler checks the optional backing services. A deployment
// without postgres or redis is still ready.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			s.writeError(w, http.StatusServiceUnavailable, "database not ready")
			return
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			s.writeError(w, http.StatusServiceUnavailable, "cache not ready")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]string{"status": "ready"},
	})
}

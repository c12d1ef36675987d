package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/bagshub/bagshub/pkg/aggregator"
	"github.com/bagshub/bagshub/pkg/bagsapi"
	"github.com/bagshub/bagshub/pkg/logger"
	"github.com/bagshub/bagshub/pkg/models"
	"github.com/bagshub/bagshub/pkg/ratelimit"
	"github.com/bagshub/bagshub/pkg/validation"
)

// Response is the JSON envelope every endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.Error("JSON encoding error", zap.Error(err))
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, Response{
		Success: false,
		Error:   message,
	})
}

// writeUpstreamError maps upstream failures onto the API's taxonomy:
// 429 for the rate-limit guard, 404 passthrough, 502 for other upstream
// statuses, 503 when the API key is missing.
func (s *Server) writeUpstreamError(w http.ResponseWriter, err error) {
	var throttled *ratelimit.ThrottledError
	if errors.As(err, &throttled) {
		w.Header().Set("Retry-After", strconv.Itoa(int(throttled.RetryAfter.Seconds())+1))
		s.writeError(w, http.StatusTooManyRequests, "rate limit reached, please try again shortly")
		return
	}
	if errors.Is(err, bagsapi.ErrMissingAPIKey) {
		s.writeError(w, http.StatusServiceUnavailable, "bags api is not configured")
		return
	}
	var apiErr *bagsapi.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusNotFound {
			s.writeError(w, http.StatusNotFound, "token not found")
			return
		}
		logger.Log.Warn("upstream error", zap.Int("status", apiErr.StatusCode), zap.String("message", apiErr.Message))
		s.writeError(w, http.StatusBadGateway, "upstream request failed")
		return
	}
	logger.Log.Error("upstream request failed", zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, "internal server error")
}

func parseLimit(r *http.Request, def, max int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func parsePage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// listTokensHandler serves the aggregated leaderboard. Reads never
// fail: upstream trouble degrades to a shorter or empty list.
func (s *Server) listTokensHandler(w http.ResponseWriter, r *http.Request) {
	q := aggregator.Query{
		Kind:   models.ParseLeaderboardKind(r.URL.Query().Get("type")),
		Limit:  parseLimit(r, aggregator.DefaultLimit, 100),
		Search: validation.SanitizeString(r.URL.Query().Get("search")),
	}

	tokens := s.agg.ListTokens(r.Context(), q)
	s.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]interface{}{"tokens": tokens},
	})
}

func (s *Server) tokenDetailsHandler(w http.ResponseWriter, r *http.Request) {
	mint := mux.Vars(r)["mint"]
	if !validation.IsValidMint(mint) {
		s.writeError(w, http.StatusBadRequest, "invalid mint address")
		return
	}

	details, err := s.agg.TokenDetails(r.Context(), mint)
	if errors.Is(err, aggregator.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "token not found")
		return
	}
	if err != nil {
		logger.Log.Error("token details failed", zap.String("mint", mint), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"token": details.Token,
			"pairs": details.Pairs,
			"txns":  details.Txns,
		},
	})
}

// createTokenHandler launches a token through the Bags API on behalf of
// the logged-in user.
func (s *Server) createTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req bagsapi.CreateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "name and symbol are required")
		return
	}

	resp, err := s.bags.CreateToken(r.Context(), req)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, Response{Success: true, Data: resp})
}

const maxUploadBytes = 5 << 20

// uploadHandler forwards token artwork to the Bags API.
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "image must be a multipart upload under 5MB")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	resp, err := s.bags.UploadImage(r.Context(), data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, Response{Success: true, Data: resp})
}

// --- Bags API pass-through ---

func (s *Server) bagsTokensHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.bags.Tokens(r.Context(), bagsapi.TokensParams{
		Page:   parsePage(r),
		Limit:  parseLimit(r, 50, 100),
		Sort:   r.URL.Query().Get("sort"),
		Search: validation.SanitizeString(r.URL.Query().Get("search")),
	})
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: list})
}

func (s *Server) bagsTrendingHandler(w http.ResponseWriter, r *http.Request) {
	timeFrame := r.URL.Query().Get("timeFrame")
	list, err := s.bags.Trending(r.Context(), parseLimit(r, 50, 100), timeFrame)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: list})
}

// bagsLeaderboardHandler maps ?type= onto the upstream sort. The route
// accepts "newest" as an alias for "new".
func (s *Server) bagsLeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	kindParam := r.URL.Query().Get("type")
	if kindParam == "newest" {
		kindParam = string(models.KindNew)
	}
	kind := models.ParseLeaderboardKind(kindParam)
	limit := parseLimit(r, 50, 100)

	var (
		list *bagsapi.TokenList
		err  error
	)
	switch kind {
	case models.KindVolume:
		list, err = s.bags.ByVolume(r.Context(), limit)
	case models.KindGainers:
		list, err = s.bags.TopGainers(r.Context(), limit)
	case models.KindLosers:
		list, err = s.bags.TopLosers(r.Context(), limit)
	case models.KindNew:
		list, err = s.bags.Newest(r.Context(), limit)
	case models.KindHolders:
		list, err = s.bags.Tokens(r.Context(), bagsapi.TokensParams{Sort: "holders", Limit: limit})
	default:
		list, err = s.bags.Trending(r.Context(), limit, "24h")
	}
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: list})
}

func (s *Server) bagsSearchHandler(w http.ResponseWriter, r *http.Request) {
	query := validation.SanitizeString(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	list, err := s.bags.Search(r.Context(), query, parseLimit(r, 20, 100))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: list})
}

func (s *Server) bagsRateLimitHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: s.bags.RateLimit()})
}

func (s *Server) bagsTokenHandler(w http.ResponseWriter, r *http.Request) {
	mint := mux.Vars(r)["mint"]
	if !validation.IsValidMint(mint) {
		s.writeError(w, http.StatusBadRequest, "invalid mint address")
		return
	}
	token, err := s.bags.TokenByMint(r.Context(), mint)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{"token": token}})
}

func (s *Server) bagsHoldersHandler(w http.ResponseWriter, r *http.Request) {
	mint := mux.Vars(r)["mint"]
	if !validation.IsValidMint(mint) {
		s.writeError(w, http.StatusBadRequest, "invalid mint address")
		return
	}
	list, err := s.bags.Holders(r.Context(), mint, parsePage(r), parseLimit(r, 50, 200))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: list})
}

func (s *Server) bagsTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	mint := mux.Vars(r)["mint"]
	if !validation.IsValidMint(mint) {
		s.writeError(w, http.StatusBadRequest, "invalid mint address")
		return
	}
	list, err := s.bags.Transactions(r.Context(), mint, parsePage(r), parseLimit(r, 50, 200), r.URL.Query().Get("type"))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: list})
}

func (s *Server) bagsPricesHandler(w http.ResponseWriter, r *http.Request) {
	mint := mux.Vars(r)["mint"]
	if !validation.IsValidMint(mint) {
		s.writeError(w, http.StatusBadRequest, "invalid mint address")
		return
	}
	q := r.URL.Query()
	from, _ := strconv.ParseInt(q.Get("from"), 10, 64)
	to, _ := strconv.ParseInt(q.Get("to"), 10, 64)
	interval := q.Get("interval")
	if interval == "" {
		interval = "1h"
	}

	candles, err := s.bags.PriceHistory(r.Context(), mint, interval, from, to)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]interface{}{"prices": candles},
	})
}

// requestTimeout bounds every upstream-facing handler; mux has no
// per-route timeout so main wraps the router.
func withTimeout(h http.Handler, d time.Duration) http.Handler {
	return http.TimeoutHandler(h, d, fmt.Sprintf(`{"success":false,"error":"request timed out after %s"}`, d))
}

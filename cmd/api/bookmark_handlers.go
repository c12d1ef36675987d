package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/bagshub/bagshub/pkg/auth"
	"github.com/bagshub/bagshub/pkg/database"
	"github.com/bagshub/bagshub/pkg/logger"
	"github.com/bagshub/bagshub/pkg/models"
	"github.com/bagshub/bagshub/pkg/validation"
)

func (s *Server) listBookmarksHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	bookmarks, err := s.bookmarks.ListBookmarks(r.Context(), claims.UserID)
	if err != nil {
		logger.Log.Error("bookmark list failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if bookmarks == nil {
		bookmarks = []*models.Bookmark{}
	}
	s.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]interface{}{"bookmarks": bookmarks},
	})
}

func (s *Server) createBookmarkHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		TokenMint string `json:"tokenMint"`
		Notes     string `json:"notes,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if !validation.IsValidMint(req.TokenMint) {
		s.writeError(w, http.StatusBadRequest, "invalid mint address")
		return
	}

	bookmark, err := s.bookmarks.CreateBookmark(r.Context(), claims.UserID, req.TokenMint, validation.SanitizeString(req.Notes))
	if errors.Is(err, database.ErrDuplicate) {
		s.writeError(w, http.StatusConflict, "token already bookmarked")
		return
	}
	if err != nil {
		logger.Log.Error("bookmark creation failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    map[string]interface{}{"bookmark": bookmark},
	})
}

func (s *Server) deleteBookmarkHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	mint := mux.Vars(r)["mint"]
	if !validation.IsValidMint(mint) {
		s.writeError(w, http.StatusBadRequest, "invalid mint address")
		return
	}

	err := s.bookmarks.DeleteBookmark(r.Context(), claims.UserID, mint)
	if errors.Is(err, database.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "bookmark not found")
		return
	}
	if err != nil {
		logger.Log.Error("bookmark deletion failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, Response{Success: true})
}

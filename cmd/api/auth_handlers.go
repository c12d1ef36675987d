package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/bagshub/bagshub/pkg/auth"
	"github.com/bagshub/bagshub/pkg/database"
	"github.com/bagshub/bagshub/pkg/logger"
	"github.com/bagshub/bagshub/pkg/metrics"
	"github.com/bagshub/bagshub/pkg/models"
	"github.com/bagshub/bagshub/pkg/validation"
)

// invalidCredentials is deliberately identical for unknown usernames
// and wrong passwords so login probes cannot enumerate accounts.
const invalidCredentials = "invalid credentials"

const minPasswordLength = 8

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if !validation.IsValidUsername(req.Username) {
		s.writeError(w, http.StatusBadRequest, "username must be 3-20 letters, digits, or underscores")
		return
	}
	if len(req.Password) < minPasswordLength {
		s.writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Log.Error("password hash failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := s.users.CreateUser(r.Context(), &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if errors.Is(err, database.ErrDuplicate) {
		metrics.AuthErrors.WithLabelValues("register").Inc()
		s.writeError(w, http.StatusConflict, "username or email already taken")
		return
	}
	if err != nil {
		logger.Log.Error("user creation failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	metrics.AuthOperations.WithLabelValues("register", "success").Inc()

	s.startSession(w, user)
	s.writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    map[string]interface{}{"user": user.Public()},
	})
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	user, err := s.users.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			logger.Log.Error("user lookup failed", zap.Error(err))
		}
		metrics.AuthErrors.WithLabelValues("login").Inc()
		s.writeError(w, http.StatusUnauthorized, invalidCredentials)
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		metrics.AuthErrors.WithLabelValues("login").Inc()
		s.writeError(w, http.StatusUnauthorized, invalidCredentials)
		return
	}
	metrics.AuthOperations.WithLabelValues("login", "success").Inc()

	s.startSession(w, user)
	s.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]interface{}{"user": user.Public()},
	})
}

func (s *Server) startSession(w http.ResponseWriter, user *models.User) {
	token, err := s.auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		logger.Log.Error("token generation failed", zap.Error(err))
		return
	}
	s.auth.SetCookie(w, token)
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	s.auth.ClearCookie(w)
	metrics.AuthOperations.WithLabelValues("logout", "success").Inc()
	s.writeJSON(w, http.StatusOK, Response{Success: true})
}

func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := s.users.GetUserByID(r.Context(), claims.UserID)
	if errors.Is(err, database.ErrNotFound) {
		// Valid token for a deleted account.
		s.auth.ClearCookie(w)
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err != nil {
		logger.Log.Error("user lookup failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]interface{}{"user": user.Public()},
	})
}

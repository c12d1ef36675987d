// Package auth manages credential verification and session issuance:
// bcrypt password hashing, HS256 session tokens, and the cookie they
// travel in.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/bagshub/bagshub/pkg/metrics"
)

// ErrNoSession is returned for absent, expired, or tampered tokens. The
// caller treats all three the same: there is no session.
var ErrNoSession = errors.New("auth: no valid session")

const bcryptCost = 12

// Claims are the session token payload.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service issues and verifies session tokens and manages the session
// cookie. Construct once with New and share across handlers.
type Service struct {
	secret     []byte
	expiration time.Duration
	cookieName string
	secure     bool
}

// New builds a Service. secure controls the cookie Secure flag and should
// be true in production.
func New(secret string, expiration time.Duration, cookieName string, secure bool) *Service {
	return &Service{
		secret:     []byte(secret),
		expiration: expiration,
		cookieName: cookieName,
		secure:     secure,
	}
}

// HashPassword hashes a password with bcrypt at a fixed cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken signs a session token for the user.
func (s *Service) GenerateToken(userID, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		metrics.AuthErrors.WithLabelValues("generate_token").Inc()
		return "", fmt.Errorf("sign token: %w", err)
	}
	metrics.AuthOperations.WithLabelValues("generate_token", "success").Inc()
	return signed, nil
}

// ParseToken verifies a token string. Expired or tampered tokens yield
// ErrNoSession rather than a panic or a typed parse error; sessions are
// stateless and there is no server-side revocation list.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		metrics.AuthErrors.WithLabelValues("parse_token").Inc()
		return nil, ErrNoSession
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		metrics.AuthErrors.WithLabelValues("parse_token").Inc()
		return nil, ErrNoSession
	}
	metrics.AuthOperations.WithLabelValues("parse_token", "success").Inc()
	return claims, nil
}

// Expiration returns the configured session lifetime.
func (s *Service) Expiration() time.Duration {
	return s.expiration
}

// SetCookie writes the session cookie: httpOnly, SameSite=Lax, secure in
// production, path-scoped to the whole app, lifetime matching the token.
func (s *Service) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.expiration.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie immediately.
func (s *Service) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type contextKey string

const claimsKey contextKey = "authClaims"

// SessionFromRequest extracts and verifies the session cookie.
func (s *Service) SessionFromRequest(r *http.Request) (*Claims, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}
	return s.ParseToken(cookie.Value)
}

// Middleware rejects requests without a valid session cookie and stores
// the claims in the request context for handlers downstream.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.SessionFromRequest(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"error":"authentication required"}`))
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext extracts session claims stored by Middleware.
func UserFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

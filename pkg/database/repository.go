package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/bagshub/bagshub/pkg/metrics"
	"github.com/bagshub/bagshub/pkg/models"
)

// UserStore defines the interface for account persistence. Usernames keep
// the casing the user typed; uniqueness and lookup are case-insensitive.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// BookmarkStore defines the interface for watchlist persistence. Only the
// owning user can create or delete a bookmark.
type BookmarkStore interface {
	CreateBookmark(ctx context.Context, userID, tokenMint, notes string) (*models.Bookmark, error)
	DeleteBookmark(ctx context.Context, userID, tokenMint string) error
	ListBookmarks(ctx context.Context, userID string) ([]*models.Bookmark, error)
}

const uniqueViolation = "23505"

// userStore implements UserStore on PostgreSQL.
type userStore struct {
	db *DB
}

// NewUserStore creates a new user store
func NewUserStore(db *DB) UserStore {
	return &userStore{db: db}
}

// CreateUser persists a new account. Unique violations on username or
// email surface as ErrDuplicate.
func (s *userStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	start := time.Now()
	defer func() {
		metrics.DatabaseOperationDuration.WithLabelValues("create_user", "done").Observe(time.Since(start).Seconds())
	}()

	query := `
		INSERT INTO users (username, email, password_hash, display_name, avatar_url)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)
		RETURNING id, created_at
	`
	// Username keeps its display casing; the unique index on
	// LOWER(username) still rejects case-insensitive duplicates.
	created := *user
	created.Email = strings.ToLower(user.Email)

	err := s.db.QueryRowContext(ctx, query,
		created.Username, created.Email, created.PasswordHash, created.DisplayName, created.AvatarURL,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicate
		}
		metrics.DatabaseErrors.WithLabelValues("create_user").Inc()
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &created, nil
}

// GetUserByUsername looks up an account by case-folded username.
func (s *userStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	start := time.Now()
	defer func() {
		metrics.DatabaseOperationDuration.WithLabelValues("get_user_by_username", "done").Observe(time.Since(start).Seconds())
	}()

	query := `
		SELECT id, username, COALESCE(email, ''), password_hash, COALESCE(display_name, ''), COALESCE(avatar_url, ''), created_at
		FROM users
		WHERE LOWER(username) = LOWER($1)
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username), "get_user_by_username")
}

// GetUserByID looks up an account by id.
func (s *userStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	start := time.Now()
	defer func() {
		metrics.DatabaseOperationDuration.WithLabelValues("get_user_by_id", "done").Observe(time.Since(start).Seconds())
	}()

	query := `
		SELECT id, username, COALESCE(email, ''), password_hash, COALESCE(display_name, ''), COALESCE(avatar_url, ''), created_at
		FROM users
		WHERE id = $1
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id), "get_user_by_id")
}

func (s *userStore) scanUser(row *sql.Row, operation string) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.DisplayName, &user.AvatarURL, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.DatabaseErrors.WithLabelValues(operation).Inc()
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// bookmarkStore implements BookmarkStore on PostgreSQL.
type bookmarkStore struct {
	db *DB
}

// NewBookmarkStore creates a new bookmark store
func NewBookmarkStore(db *DB) BookmarkStore {
	return &bookmarkStore{db: db}
}

// CreateBookmark adds a token to the user's watchlist. Bookmarking the
// same mint twice surfaces as ErrDuplicate.
func (s *bookmarkStore) CreateBookmark(ctx context.Context, userID, tokenMint, notes string) (*models.Bookmark, error) {
	start := time.Now()
	defer func() {
		metrics.DatabaseOperationDuration.WithLabelValues("create_bookmark", "done").Observe(time.Since(start).Seconds())
	}()

	query := `
		INSERT INTO bookmarks (user_id, token_mint, notes)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id, created_at
	`
	bookmark := models.Bookmark{UserID: userID, TokenMint: tokenMint, Notes: notes}
	err := s.db.QueryRowContext(ctx, query, userID, tokenMint, notes).Scan(&bookmark.ID, &bookmark.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicate
		}
		metrics.DatabaseErrors.WithLabelValues("create_bookmark").Inc()
		return nil, fmt.Errorf("failed to create bookmark: %w", err)
	}
	return &bookmark, nil
}

// DeleteBookmark removes a token from the user's watchlist.
func (s *bookmarkStore) DeleteBookmark(ctx context.Context, userID, tokenMint string) error {
	start := time.Now()
	defer func() {
		metrics.DatabaseOperationDuration.WithLabelValues("delete_bookmark", "done").Observe(time.Since(start).Seconds())
	}()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE user_id = $1 AND token_mint = $2`, userID, tokenMint)
	if err != nil {
		metrics.DatabaseErrors.WithLabelValues("delete_bookmark").Inc()
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBookmarks returns the user's watchlist, newest first.
func (s *bookmarkStore) ListBookmarks(ctx context.Context, userID string) ([]*models.Bookmark, error) {
	start := time.Now()
	defer func() {
		metrics.DatabaseOperationDuration.WithLabelValues("list_bookmarks", "done").Observe(time.Since(start).Seconds())
	}()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, token_mint, COALESCE(notes, ''), created_at
		FROM bookmarks
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		metrics.DatabaseErrors.WithLabelValues("list_bookmarks").Inc()
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []*models.Bookmark
	for rows.Next() {
		var b models.Bookmark
		if err := rows.Scan(&b.ID, &b.UserID, &b.TokenMint, &b.Notes, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookmarks: %w", err)
	}
	return bookmarks, nil
}

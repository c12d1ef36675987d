package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bagshub/bagshub/pkg/models"
)

// MemoryStore is an in-memory implementation of UserStore and
// BookmarkStore. It enforces the same uniqueness rules as the
// PostgreSQL stores and is safe for concurrent use. Intended for
// tests and for running the API without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*models.User     // keyed by id
	usernames map[string]string           // lower(username) -> id
	emails    map[string]string           // lower(email) -> id
	bookmarks map[string]*models.Bookmark // keyed by id
	seq       int
}

var (
	_ UserStore     = (*MemoryStore)(nil)
	_ BookmarkStore = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*models.User),
		usernames: make(map[string]string),
		emails:    make(map[string]string),
		bookmarks: make(map[string]*models.Bookmark),
	}
}

func (s *MemoryStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// CreateUser stores a new account, rejecting case-insensitive
// duplicates of username or email with ErrDuplicate.
func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil || user.Username == "" || user.PasswordHash == "" {
		return nil, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(user.Username)
	email := strings.ToLower(user.Email)

	if _, exists := s.usernames[username]; exists {
		return nil, ErrDuplicate
	}
	if email != "" {
		if _, exists := s.emails[email]; exists {
			return nil, ErrDuplicate
		}
	}

	// The folded forms key the uniqueness maps; the record keeps the
	// casing the user typed.
	created := *user
	created.ID = s.nextID("user")
	created.Email = email
	created.CreatedAt = time.Now().UTC()

	s.users[created.ID] = &created
	s.usernames[username] = created.ID
	if email != "" {
		s.emails[email] = created.ID
	}

	out := created
	return &out, nil
}

// GetUserByUsername looks up an account by case-folded username.
func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[strings.ToLower(username)]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s.users[id]
	return &out, nil
}

// GetUserByID looks up an account by id.
func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *user
	return &out, nil
}

// CreateBookmark adds a mint to the user's watchlist, rejecting
// repeats of the same (user, mint) pair with ErrDuplicate.
func (s *MemoryStore) CreateBookmark(ctx context.Context, userID, tokenMint, notes string) (*models.Bookmark, error) {
	if userID == "" || tokenMint == "" {
		return nil, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, ErrNotFound
	}
	for _, b := range s.bookmarks {
		if b.UserID == userID && b.TokenMint == tokenMint {
			return nil, ErrDuplicate
		}
	}

	bookmark := &models.Bookmark{
		ID:        s.nextID("bookmark"),
		UserID:    userID,
		TokenMint: tokenMint,
		Notes:     notes,
		CreatedAt: time.Now().UTC(),
	}
	s.bookmarks[bookmark.ID] = bookmark

	out := *bookmark
	return &out, nil
}

// DeleteBookmark removes a mint from the user's watchlist.
func (s *MemoryStore) DeleteBookmark(ctx context.Context, userID, tokenMint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, b := range s.bookmarks {
		if b.UserID == userID && b.TokenMint == tokenMint {
			delete(s.bookmarks, id)
			return nil
		}
	}
	return ErrNotFound
}

// ListBookmarks returns the user's watchlist, newest first.
func (s *MemoryStore) ListBookmarks(ctx context.Context, userID string) ([]*models.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Bookmark
	for _, b := range s.bookmarks {
		if b.UserID == userID {
			copied := *b
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

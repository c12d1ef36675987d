package client

import (
	"context"
	"sync"
)

// MutationState describes where a bookmark mutation sits in its
// lifecycle.
type MutationState int

const (
	// StateAbsent means the mint is not bookmarked and nothing is in flight.
	StateAbsent MutationState = iota
	// StateConfirmed means the server has acknowledged the bookmark.
	StateConfirmed
	// StatePending means the mutation was applied locally and the server
	// round-trip has not finished.
	StatePending
)

// BookmarkSet tracks the user's bookmarked mints with optimistic
// mutations: a toggle shows up in Has immediately, is confirmed when
// the server acknowledges it, and is rolled back if the server refuses.
type BookmarkSet struct {
	mu        sync.Mutex
	confirmed map[string]bool
	pending   map[string]bool // mint -> desired state
}

// NewBookmarkSet creates an empty set.
func NewBookmarkSet() *BookmarkSet {
	return &BookmarkSet{
		confirmed: make(map[string]bool),
		pending:   make(map[string]bool),
	}
}

// Load replaces the confirmed state, typically from GET /api/bookmarks.
// Pending mutations survive a reload.
func (s *BookmarkSet) Load(mints []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = make(map[string]bool, len(mints))
	for _, m := range mints {
		s.confirmed[m] = true
	}
}

// Has reports whether the mint is bookmarked from the user's point of
// view. Pending mutations win over confirmed state.
func (s *BookmarkSet) Has(mint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if desired, ok := s.pending[mint]; ok {
		return desired
	}
	return s.confirmed[mint]
}

// State reports the mutation lifecycle for a mint.
func (s *BookmarkSet) State(mint string) MutationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[mint]; ok {
		return StatePending
	}
	if s.confirmed[mint] {
		return StateConfirmed
	}
	return StateAbsent
}

// Add bookmarks a mint optimistically. commit performs the server
// round-trip; on failure the local state is compensated and the error
// returned.
func (s *BookmarkSet) Add(ctx context.Context, mint string, commit func(ctx context.Context) error) error {
	return s.apply(ctx, mint, true, commit)
}

// Remove un-bookmarks a mint optimistically, with the same
// confirm-or-compensate contract as Add.
func (s *BookmarkSet) Remove(ctx context.Context, mint string, commit func(ctx context.Context) error) error {
	return s.apply(ctx, mint, false, commit)
}

func (s *BookmarkSet) apply(ctx context.Context, mint string, desired bool, commit func(ctx context.Context) error) error {
	s.mu.Lock()
	s.pending[mint] = desired
	s.mu.Unlock()

	err := commit(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Only settle if no newer mutation replaced ours.
	if current, ok := s.pending[mint]; ok && current == desired {
		delete(s.pending, mint)
		if err == nil {
			if desired {
				s.confirmed[mint] = true
			} else {
				delete(s.confirmed, mint)
			}
		}
	}
	return err
}

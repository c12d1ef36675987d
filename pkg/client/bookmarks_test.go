package client

import (
	"context"
	"errors"
	"testing"
)

const testMint = "So11111111111111111111111111111111111111112"

func TestBookmarkSet_AddConfirmed(t *testing.T) {
	set := NewBookmarkSet()

	var sawPending bool
	err := set.Add(context.Background(), testMint, func(ctx context.Context) error {
		// During the round-trip the mint already reads as bookmarked.
		sawPending = set.Has(testMint) && set.State(testMint) == StatePending
		return nil
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !sawPending {
		t.Error("bookmark was not visible while the commit was in flight")
	}
	if set.State(testMint) != StateConfirmed {
		t.Errorf("state = %v; want StateConfirmed", set.State(testMint))
	}
	if !set.Has(testMint) {
		t.Error("confirmed bookmark missing")
	}
}

func TestBookmarkSet_AddRollsBackOnFailure(t *testing.T) {
	set := NewBookmarkSet()

	var sawOptimistic bool
	err := set.Add(context.Background(), testMint, func(ctx context.Context) error {
		sawOptimistic = set.Has(testMint)
		return errors.New("server refused")
	})
	if err == nil {
		t.Fatal("expected commit error to propagate")
	}
	if !sawOptimistic {
		t.Error("bookmark was not applied optimistically")
	}
	if set.Has(testMint) {
		t.Error("failed bookmark must be rolled back")
	}
	if set.State(testMint) != StateAbsent {
		t.Errorf("state = %v; want StateAbsent after rollback", set.State(testMint))
	}
}

func TestBookmarkSet_RemoveRollsBackOnFailure(t *testing.T) {
	set := NewBookmarkSet()
	set.Load([]string{testMint})

	err := set.Remove(context.Background(), testMint, func(ctx context.Context) error {
		if set.Has(testMint) {
			t.Error("removal was not applied optimistically")
		}
		return errors.New("server refused")
	})
	if err == nil {
		t.Fatal("expected commit error to propagate")
	}
	if !set.Has(testMint) {
		t.Error("failed removal must be compensated back to bookmarked")
	}
	if set.State(testMint) != StateConfirmed {
		t.Errorf("state = %v; want StateConfirmed after rollback", set.State(testMint))
	}
}

func TestBookmarkSet_LoadKeepsPending(t *testing.T) {
	set := NewBookmarkSet()

	_ = set.Add(context.Background(), testMint, func(ctx context.Context) error {
		// A reload arriving mid-flight must not hide the pending add.
		set.Load(nil)
		if !set.Has(testMint) {
			t.Error("pending bookmark hidden by Load")
		}
		return nil
	})
	if !set.Has(testMint) {
		t.Error("bookmark lost after confirm")
	}
}

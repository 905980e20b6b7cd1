package session

import (
	"context"
	"testing"
	"time"
)

func newTestStore(ttl time.Duration) (*MemoryStore, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(ttl)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestGetReturnsFreshIdleWhenAbsent(t *testing.T) {
	m, _ := newTestStore(30 * time.Minute)
	s := m.Get(context.Background(), 1)
	if s.State != StateIdle {
		t.Fatalf("state = %q, want idle", s.State)
	}
	if s.Food != nil || s.Profile != nil || s.Activity != nil {
		t.Fatal("fresh session must carry no drafts")
	}
}

func TestPutThenGetRoundTrip(t *testing.T) {
	m, _ := newTestStore(30 * time.Minute)
	ctx := context.Background()

	s := NewIdle()
	s.State = StateCollectingQuantity
	s.Food = &FoodDraft{Label: "banana", KcalPer100: 89}
	if err := m.Put(ctx, 7, s); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got := m.Get(ctx, 7)
	if got.State != StateCollectingQuantity {
		t.Fatalf("state = %q, want %q", got.State, StateCollectingQuantity)
	}
	if got.Food == nil || got.Food.Label != "banana" {
		t.Fatalf("draft lost: %+v", got.Food)
	}
	if !m.InProgress(ctx, 7) {
		t.Fatal("InProgress should report true for a non-idle session")
	}
}

func TestGetReturnsCopyNotAlias(t *testing.T) {
	m, _ := newTestStore(30 * time.Minute)
	ctx := context.Background()

	s := NewIdle()
	s.State = StateCollectingQuantity
	s.Food = &FoodDraft{Label: "banana"}
	if err := m.Put(ctx, 7, s); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got := m.Get(ctx, 7)
	got.Food.Label = "mutated"

	again := m.Get(ctx, 7)
	if again.Food.Label != "banana" {
		t.Fatalf("mutation leaked into the store: %q", again.Food.Label)
	}
}

func TestExpiryObservableAsIdle(t *testing.T) {
	m, now := newTestStore(30 * time.Minute)
	ctx := context.Background()

	s := NewIdle()
	s.State = StateConfirmingEntry
	s.Food = &FoodDraft{Label: "soup"}
	if err := m.Put(ctx, 3, s); err != nil {
		t.Fatalf("Put: %v", err)
	}

	*now = now.Add(31 * time.Minute)

	got := m.Get(ctx, 3)
	if got.State != StateIdle {
		t.Fatalf("expired session should read as idle, got %q", got.State)
	}
	if got.Food != nil {
		t.Fatal("expired accumulator must be discarded")
	}
	if m.InProgress(ctx, 3) {
		t.Fatal("expired session must not count as in progress")
	}
}

func TestJustUnderTimeoutSurvives(t *testing.T) {
	m, now := newTestStore(30 * time.Minute)
	ctx := context.Background()

	s := NewIdle()
	s.State = StateAwaitingRangeQuery
	if err := m.Put(ctx, 4, s); err != nil {
		t.Fatalf("Put: %v", err)
	}

	*now = now.Add(30 * time.Minute)

	if got := m.Get(ctx, 4); got.State != StateAwaitingRangeQuery {
		t.Fatalf("session at exactly the timeout should survive, got %q", got.State)
	}
}

func TestClearRemovesSession(t *testing.T) {
	m, _ := newTestStore(30 * time.Minute)
	ctx := context.Background()

	s := NewIdle()
	s.State = StateCollectingFoodName
	if err := m.Put(ctx, 9, s); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := m.Clear(ctx, 9); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := m.Get(ctx, 9); got.State != StateIdle {
		t.Fatalf("cleared session should read idle, got %q", got.State)
	}
}

func TestSweepDropsExpiredOnly(t *testing.T) {
	m, now := newTestStore(30 * time.Minute)
	ctx := context.Background()

	old := NewIdle()
	old.State = StateCollectingMacros
	if err := m.Put(ctx, 1, old); err != nil {
		t.Fatalf("Put: %v", err)
	}

	*now = now.Add(20 * time.Minute)
	fresh := NewIdle()
	fresh.State = StateCollectingQuantity
	if err := m.Put(ctx, 2, fresh); err != nil {
		t.Fatalf("Put: %v", err)
	}

	*now = now.Add(15 * time.Minute) // user 1 is 35 min idle, user 2 only 15

	if removed := m.sweep(); removed != 1 {
		t.Fatalf("sweep removed %d, want 1", removed)
	}
	if m.Get(ctx, 2).State != StateCollectingQuantity {
		t.Fatal("sweep must not touch live sessions")
	}
	if got := m.ActiveCount(ctx); got != 1 {
		t.Fatalf("ActiveCount = %d, want 1", got)
	}
}

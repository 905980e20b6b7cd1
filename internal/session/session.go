// Package session holds per-user conversation state: which flow step the
// user is on and whatever fields the flow has collected so far. Exactly
// one session exists per user; it is created lazily, replaced atomically
// on Put and reset on completion, cancellation or idle timeout. Unlike a
// raw key-to-anything map, the accumulator is typed per flow so a state
// always knows which draft it is allowed to touch.
package session

import (
	"context"
	"time"

	"github.com/m3rciful/nutrobot/internal/domain"
)

// State identifies a conversation step.
type State string

// Conversation states. Idle means no active flow.
const (
	StateIdle State = "idle"

	StateCollectingFoodName State = "food_name"
	StateCollectingMacros   State = "food_macros"
	StateCollectingQuantity State = "food_quantity"
	StateCollectingServing  State = "food_serving"
	StateConfirmingEntry    State = "food_confirm"

	StateConfirmingUndo State = "undo_confirm"

	StateEditingProfileField State = "profile_field"

	StateAwaitingRangeQuery State = "range_query"

	StateCollectingActivityKind    State = "activity_kind"
	StateCollectingActivityMinutes State = "activity_minutes"
)

// FoodDraft accumulates one food entry across turns.
type FoodDraft struct {
	Label         string  `json:"label"`
	Key           string  `json:"key"`
	KcalPer100    float64 `json:"kcal_per_100"`
	ProteinPer100 float64 `json:"protein_per_100"`
	FatPer100     float64 `json:"fat_per_100"`
	CarbPer100    float64 `json:"carb_per_100"`
	ServingGrams  float64 `json:"serving_grams,omitempty"`
	Pieces        float64 `json:"pieces,omitempty"`
	Grams         float64 `json:"grams,omitempty"`
	FromCatalog   bool    `json:"from_catalog,omitempty"`
}

// ProfileDraft chains profile-field edits. Field is the one currently
// being collected, Pending queues the rest of the wizard, and Update
// gathers the merged result committed at the end of the chain.
type ProfileDraft struct {
	Field   string               `json:"field"`
	Pending []string             `json:"pending,omitempty"`
	Update  domain.ProfileUpdate `json:"update"`
}

// ActivityDraft accumulates a workout entry.
type ActivityDraft struct {
	Kind string `json:"kind"`
}

// Session is one user's conversation state plus the typed accumulator for
// the active flow. Only the draft matching the state is ever non-nil.
type Session struct {
	State        State          `json:"state"`
	Food         *FoodDraft     `json:"food,omitempty"`
	Profile      *ProfileDraft  `json:"profile,omitempty"`
	Activity     *ActivityDraft `json:"activity,omitempty"`
	LastActivity time.Time      `json:"last_activity"`
}

// NewIdle returns a fresh idle session.
func NewIdle() *Session {
	return &Session{State: StateIdle}
}

// InProgress reports whether a flow is active.
func (s *Session) InProgress() bool {
	return s != nil && s.State != StateIdle
}

// Reset drops the accumulator and returns the session to idle.
func (s *Session) Reset() {
	s.State = StateIdle
	s.Food = nil
	s.Profile = nil
	s.Activity = nil
}

// Clone returns a deep copy so callers can mutate drafts without leaking
// changes into the store before Put.
func (s *Session) Clone() *Session {
	if s == nil {
		return NewIdle()
	}
	cp := *s
	if s.Food != nil {
		f := *s.Food
		cp.Food = &f
	}
	if s.Profile != nil {
		p := *s.Profile
		p.Pending = append([]string(nil), s.Profile.Pending...)
		cp.Profile = &p
	}
	if s.Activity != nil {
		a := *s.Activity
		cp.Activity = &a
	}
	return &cp
}

// Store keeps one session per user. Get never fails: expired or missing
// sessions come back as fresh idle ones, which is how a timed-out flow
// becomes observable to the next turn. Put replaces the stored session
// atomically and refreshes its last-activity stamp; Clear drops it.
type Store interface {
	Get(ctx context.Context, userID int64) *Session
	Put(ctx context.Context, userID int64, s *Session) error
	Clear(ctx context.Context, userID int64) error
	InProgress(ctx context.Context, userID int64) bool
	ActiveCount(ctx context.Context) int
}

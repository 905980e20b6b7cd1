package engine

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/nutrobot/internal/domain"
	"github.com/m3rciful/nutrobot/internal/ledger"
	"github.com/m3rciful/nutrobot/internal/session"
	"github.com/m3rciful/nutrobot/internal/storage"
	"github.com/m3rciful/nutrobot/internal/storage/jsonfile"
)

var testAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	store, err := jsonfile.Open(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc := ledger.New(store)
	if err := svc.SeedBuiltinCatalog(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return New(svc, session.NewMemory(30*time.Minute), []int64{99})
}

// drive sends messages in order and returns the replies to the last one.
func drive(t *testing.T, e *Engine, uid int64, msgs ...string) []string {
	t.Helper()
	var last []string
	for _, m := range msgs {
		replies, err := e.HandleMessage(context.Background(), uid, m, testAt)
		if err != nil {
			t.Fatalf("HandleMessage(%q): %v", m, err)
		}
		last = replies
	}
	return last
}

func joined(replies []string) string { return strings.Join(replies, "\n") }

func sessionState(e *Engine, uid int64) session.State {
	return e.sessions.Get(context.Background(), uid).State
}

func dayTotals(t *testing.T, e *Engine, uid int64) domain.DailyAggregate {
	t.Helper()
	agg, err := e.ledger.DailyTotals(context.Background(), uid, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	return agg
}

func TestStartCreatesProfile(t *testing.T) {
	e := newTestEngine(t)
	out := drive(t, e, 1, "/start")
	if !strings.Contains(joined(out), "2000 kcal/day") {
		t.Fatalf("greeting should mention the default goal: %q", joined(out))
	}
	p, err := e.ledger.Profile(context.Background(), 1)
	if err != nil || p.CalorieGoal != 2000 {
		t.Fatalf("profile after /start: %+v, %v", p, err)
	}
}

func TestFoodFlowCatalogFood(t *testing.T) {
	e := newTestEngine(t)

	out := drive(t, e, 2, "/food")
	if !strings.Contains(joined(out), "What did you eat") {
		t.Fatalf("expected the name prompt, got %q", joined(out))
	}
	out = drive(t, e, 2, "banana")
	if !strings.Contains(joined(out), "How much") {
		t.Fatalf("expected the quantity prompt, got %q", joined(out))
	}
	out = drive(t, e, 2, "150 g")
	if !strings.Contains(joined(out), "Banana") || !strings.Contains(joined(out), "133.5") {
		t.Fatalf("expected the 150 g banana preview, got %q", joined(out))
	}
	if got := sessionState(e, 2); got != session.StateConfirmingEntry {
		t.Fatalf("state before confirm = %q", got)
	}

	out = drive(t, e, 2, "yes")
	if !strings.Contains(joined(out), "Logged Banana") || !strings.Contains(joined(out), "Today") {
		t.Fatalf("expected log confirmation plus summary, got %q", joined(out))
	}
	if got := sessionState(e, 2); got != session.StateIdle {
		t.Fatalf("state after confirm = %q", got)
	}
	agg := dayTotals(t, e, 2)
	if agg.Calories != 133.5 || agg.Entries != 1 {
		t.Fatalf("ledger after flow: %+v", agg)
	}
}

func TestFoodFlowUnknownFoodCollectsMacros(t *testing.T) {
	e := newTestEngine(t)

	out := drive(t, e, 3, "/food mystery soup 250 g")
	if !strings.Contains(joined(out), "kcal per 100 g") {
		t.Fatalf("expected the macros prompt, got %q", joined(out))
	}
	// Amount was given up front, so macros lead straight to confirmation.
	out = drive(t, e, 3, "80 3 4 8")
	if !strings.Contains(joined(out), "Log it?") || !strings.Contains(joined(out), "200") {
		t.Fatalf("expected a 200 kcal preview, got %q", joined(out))
	}
	drive(t, e, 3, "yes")

	agg := dayTotals(t, e, 3)
	if agg.Calories != 200 || agg.ProteinG != 7.5 {
		t.Fatalf("ledger after flow: %+v", agg)
	}
	// The food is remembered for next time.
	m, err := e.ledger.LookupFood(context.Background(), 3, "mystery soup")
	if err != nil || m == nil || !m.Exact {
		t.Fatalf("food was not remembered: %+v, %v", m, err)
	}
}

func TestFoodFlowPiecesWithKnownServing(t *testing.T) {
	e := newTestEngine(t)

	drive(t, e, 4, "/food egg")
	out := drive(t, e, 4, "2")
	// Two eggs at 55 g each, 155 kcal per 100 g.
	if !strings.Contains(joined(out), "110") || !strings.Contains(joined(out), "170.5") {
		t.Fatalf("expected a 110 g / 170.5 kcal preview, got %q", joined(out))
	}
	drive(t, e, 4, "yes")
	if agg := dayTotals(t, e, 4); agg.Calories != 170.5 {
		t.Fatalf("ledger after flow: %+v", agg)
	}
}

func TestFoodFlowLearnsServing(t *testing.T) {
	e := newTestEngine(t)

	drive(t, e, 5, "/food pelmeni")
	drive(t, e, 5, "275 11 12 29")
	out := drive(t, e, 5, "4")
	if !strings.Contains(joined(out), "grams is one piece") {
		t.Fatalf("expected the serving question, got %q", joined(out))
	}
	out = drive(t, e, 5, "12")
	if !strings.Contains(joined(out), "132") {
		t.Fatalf("expected a 48 g / 132 kcal preview, got %q", joined(out))
	}
	drive(t, e, 5, "yes")

	// Next time the piece count resolves without the serving question.
	out = drive(t, e, 5, "/food pelmeni 4")
	if !strings.Contains(joined(out), "Log it?") || !strings.Contains(joined(out), "132") {
		t.Fatalf("serving size was not remembered: %q", joined(out))
	}
}

func TestCancelFromEveryFlowState(t *testing.T) {
	cases := []struct {
		state session.State
		msgs  []string
	}{
		{session.StateCollectingFoodName, []string{"/food"}},
		{session.StateCollectingMacros, []string{"/food gremlin stew"}},
		{session.StateCollectingQuantity, []string{"/food banana"}},
		{session.StateCollectingServing, []string{"/food gremlin stew", "100", "2"}},
		{session.StateConfirmingEntry, []string{"/food banana", "150 g"}},
		{session.StateConfirmingUndo, []string{"/food banana 100 g", "yes", "/undo"}},
		{session.StateEditingProfileField, []string{"/profile goal"}},
		{session.StateAwaitingRangeQuery, []string{"/trend"}},
		{session.StateCollectingActivityKind, []string{"/workout"}},
		{session.StateCollectingActivityMinutes, []string{"/workout run"}},
	}
	for i, tc := range cases {
		t.Run(string(tc.state), func(t *testing.T) {
			e := newTestEngine(t)
			uid := int64(100 + i)
			drive(t, e, uid, tc.msgs...)
			if got := sessionState(e, uid); got != tc.state {
				t.Fatalf("setup landed in %q, want %q", got, tc.state)
			}
			out := drive(t, e, uid, "/cancel")
			if !strings.Contains(joined(out), "Cancelled") {
				t.Fatalf("cancel reply: %q", joined(out))
			}
			if got := sessionState(e, uid); got != session.StateIdle {
				t.Fatalf("state after cancel = %q", got)
			}
			// A new flow starts clean.
			out = drive(t, e, uid, "/food")
			if !strings.Contains(joined(out), "What did you eat") {
				t.Fatalf("flow after cancel: %q", joined(out))
			}
		})
	}
}

func TestNonNumericQuantityKeepsState(t *testing.T) {
	e := newTestEngine(t)
	drive(t, e, 6, "/food banana")
	out := drive(t, e, 6, "soon")
	if !strings.Contains(joined(out), "I need a number") {
		t.Fatalf("expected a retry prompt, got %q", joined(out))
	}
	if got := sessionState(e, 6); got != session.StateCollectingQuantity {
		t.Fatalf("state drifted to %q", got)
	}
	if agg := dayTotals(t, e, 6); agg.Entries != 0 {
		t.Fatalf("bad input created entries: %+v", agg)
	}
}

func TestDuplicateConfirmIsNoOp(t *testing.T) {
	e := newTestEngine(t)
	drive(t, e, 7, "/food banana", "150 g", "yes")

	out := drive(t, e, 7, "yes")
	if len(out) != 0 {
		t.Fatalf("replayed confirm answered %q", joined(out))
	}
	if agg := dayTotals(t, e, 7); agg.Entries != 1 {
		t.Fatalf("replayed confirm duplicated the entry: %+v", agg)
	}
}

func TestUndoFlow(t *testing.T) {
	e := newTestEngine(t)
	drive(t, e, 8, "/food egg 2", "yes")
	drive(t, e, 8, "/food banana 150 g", "yes")

	out := drive(t, e, 8, "/undo")
	if !strings.Contains(joined(out), "Banana") || !strings.Contains(joined(out), "yes/no") {
		t.Fatalf("undo prompt: %q", joined(out))
	}
	out = drive(t, e, 8, "yes")
	if !strings.Contains(joined(out), "Removed Banana") {
		t.Fatalf("undo result: %q", joined(out))
	}
	if agg := dayTotals(t, e, 8); agg.Entries != 1 {
		t.Fatalf("expected the egg entry to survive the undo: %+v", agg)
	}

	// A replayed confirmation lands on an idle session and must not
	// reach the ledger.
	out = drive(t, e, 8, "yes")
	if len(out) != 0 {
		t.Fatalf("replayed undo confirm answered %q", joined(out))
	}
	if agg := dayTotals(t, e, 8); agg.Entries != 1 {
		t.Fatalf("replayed undo confirm removed another entry: %+v", agg)
	}

	drive(t, e, 8, "/undo", "yes")
	out = drive(t, e, 8, "/undo")
	if !strings.Contains(joined(out), "Nothing to undo") {
		t.Fatalf("undo on empty ledger: %q", joined(out))
	}
}

func TestExpiredSessionStartsFresh(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	drive(t, e, 9, "/food banana")

	// The store evicting the session is observable as idle on the next
	// turn, identical to what a 30 minute gap produces.
	if err := e.sessions.Clear(ctx, 9); err != nil {
		t.Fatalf("clear: %v", err)
	}
	out := drive(t, e, 9, "150")
	if len(out) != 0 {
		t.Fatalf("orphaned flow input answered %q", joined(out))
	}
	if agg := dayTotals(t, e, 9); agg.Entries != 0 {
		t.Fatalf("orphaned input created entries: %+v", agg)
	}
	out = drive(t, e, 9, "/food banana", "150 g", "yes")
	if !strings.Contains(joined(out), "Logged Banana") {
		t.Fatalf("fresh flow after expiry failed: %q", joined(out))
	}
}

type appendFailStore struct {
	storage.Store
}

func (s *appendFailStore) AppendFood(context.Context, *domain.FoodEntry) (int64, error) {
	return 0, errors.New("disk full")
}

func TestStorageErrorResetsSession(t *testing.T) {
	inner, err := jsonfile.Open(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc := ledger.New(&appendFailStore{inner})
	if err := svc.SeedBuiltinCatalog(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	e := New(svc, session.NewMemory(30*time.Minute), nil)

	drive(t, e, 10, "/food banana", "150 g")
	out, err := e.HandleMessage(context.Background(), 10, "yes", testAt)
	if err == nil {
		t.Fatal("storage failure was swallowed")
	}
	if !strings.Contains(joined(out), "Something went wrong") {
		t.Fatalf("expected the generic failure reply, got %q", joined(out))
	}
	if got := sessionState(e, 10); got != session.StateIdle {
		t.Fatalf("session not reset after storage failure: %q", got)
	}
}

func TestProfileWizard(t *testing.T) {
	e := newTestEngine(t)

	out := drive(t, e, 11, "/profile edit")
	if !strings.Contains(joined(out), "weight") {
		t.Fatalf("wizard should open with the weight question: %q", joined(out))
	}
	drive(t, e, 11, "70", "175", "30")
	out = drive(t, e, 11, "45")
	if !strings.Contains(joined(out), "suggested 1944") {
		t.Fatalf("goal prompt should carry the suggestion: %q", joined(out))
	}
	out = drive(t, e, 11, "0")
	if !strings.Contains(joined(out), "Profile saved") {
		t.Fatalf("wizard end: %q", joined(out))
	}

	p, err := e.ledger.Profile(context.Background(), 11)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.WeightKg != 70 || p.HeightCm != 175 || p.Age != 30 || p.ActivityMin != 45 {
		t.Fatalf("body stats not saved: %+v", p)
	}
	if p.CalorieGoal != 1944 {
		t.Fatalf("suggested goal not applied: %+v", p)
	}
}

func TestProfileWizardSkipsEverything(t *testing.T) {
	e := newTestEngine(t)
	out := drive(t, e, 12, "/profile edit", "skip", "skip", "skip", "skip", "skip")
	if !strings.Contains(joined(out), "Nothing changed") {
		t.Fatalf("all-skip wizard: %q", joined(out))
	}
	p, err := e.ledger.Profile(context.Background(), 12)
	if err != nil || p.CalorieGoal != 2000 {
		t.Fatalf("profile modified by skips: %+v, %v", p, err)
	}
}

func TestProfileFastPath(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	drive(t, e, 13, "/profile goal 1800")
	drive(t, e, 13, "/profile tz +3")
	p, err := e.ledger.Profile(ctx, 13)
	if err != nil || p.CalorieGoal != 1800 || p.TZOffsetMin != 180 {
		t.Fatalf("fast-path edits not applied: %+v, %v", p, err)
	}

	out := drive(t, e, 13, "/profile shoesize 42")
	if !strings.Contains(joined(out), "don't know the field") {
		t.Fatalf("unknown field: %q", joined(out))
	}
}

func TestProfileFieldRetryKeepsState(t *testing.T) {
	e := newTestEngine(t)
	drive(t, e, 14, "/profile goal")
	out := drive(t, e, 14, "a lot")
	if !strings.Contains(joined(out), "kcal") {
		t.Fatalf("expected a retry prompt, got %q", joined(out))
	}
	if got := sessionState(e, 14); got != session.StateEditingProfileField {
		t.Fatalf("state drifted to %q", got)
	}
	drive(t, e, 14, "1900")
	p, err := e.ledger.Profile(context.Background(), 14)
	if err != nil || p.CalorieGoal != 1900 {
		t.Fatalf("edit after retry failed: %+v, %v", p, err)
	}
}

func TestTrendCommand(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.HandleMessage(ctx, 15, "/food banana 100 g", testAt); err != nil {
		t.Fatal(err)
	}
	if _, err := e.HandleMessage(ctx, 15, "yes", testAt); err != nil {
		t.Fatal(err)
	}
	at3 := testAt.AddDate(0, 0, 2)
	if _, err := e.HandleMessage(ctx, 15, "/food banana 200 g", at3); err != nil {
		t.Fatal(err)
	}
	if _, err := e.HandleMessage(ctx, 15, "yes", at3); err != nil {
		t.Fatal(err)
	}

	out, err := e.HandleMessage(ctx, 15, "/trend 3", at3)
	if err != nil {
		t.Fatal(err)
	}
	text := joined(out)
	if !strings.Contains(text, "Trend, 3 days") || !strings.Contains(text, "Jun 01") || !strings.Contains(text, "Average") {
		t.Fatalf("trend output: %q", text)
	}
}

func TestTrendFlowPrompt(t *testing.T) {
	e := newTestEngine(t)
	drive(t, e, 16, "/trend")
	out := drive(t, e, 16, "nonsense")
	if !strings.Contains(joined(out), "number of days") {
		t.Fatalf("expected a retry prompt, got %q", joined(out))
	}
	out = drive(t, e, 16, "week")
	if !strings.Contains(joined(out), "Trend, 7 days") {
		t.Fatalf("trend flow result: %q", joined(out))
	}
	if got := sessionState(e, 16); got != session.StateIdle {
		t.Fatalf("state after trend = %q", got)
	}
}

func TestWaterAndWorkout(t *testing.T) {
	e := newTestEngine(t)
	drive(t, e, 17, "/profile weight 70")

	out := drive(t, e, 17, "/water 300")
	text := joined(out)
	if !strings.Contains(text, "+300 ml") || !strings.Contains(text, "Water 300/2100") {
		t.Fatalf("water reply: %q", text)
	}

	out = drive(t, e, 17, "/workout run 30")
	text = joined(out)
	if !strings.Contains(text, "360 kcal burned") {
		t.Fatalf("workout reply: %q", text)
	}
	if !strings.Contains(text, "200 ml") {
		t.Fatalf("workout water bonus missing: %q", text)
	}
}

func TestWaterValidation(t *testing.T) {
	e := newTestEngine(t)
	out := drive(t, e, 18, "/water 9000")
	if !strings.Contains(joined(out), "1..5000") {
		t.Fatalf("water bounds reply: %q", joined(out))
	}
	out = drive(t, e, 18, "/water lots")
	if !strings.Contains(joined(out), "Milliliters as a number") {
		t.Fatalf("water parse reply: %q", joined(out))
	}
}

func TestAddFoodCommand(t *testing.T) {
	e := newTestEngine(t)

	out := drive(t, e, 19, "/addfood borscht 49 1.6 2.2 5.5")
	if !strings.Contains(joined(out), "Saved borscht") {
		t.Fatalf("addfood reply: %q", joined(out))
	}
	out = drive(t, e, 19, "/food borscht 300 g")
	if !strings.Contains(joined(out), "147") {
		t.Fatalf("expected a 147 kcal preview, got %q", joined(out))
	}

	out = drive(t, e, 19, "/addfood")
	if !strings.Contains(joined(out), "per 100 g") {
		t.Fatalf("addfood usage: %q", joined(out))
	}
}

func TestUnknownCommand(t *testing.T) {
	e := newTestEngine(t)
	out := drive(t, e, 20, "/frobnicate")
	if !strings.Contains(joined(out), "Try /help") {
		t.Fatalf("unknown command reply: %q", joined(out))
	}
}

func TestIdleTextIsIgnored(t *testing.T) {
	e := newTestEngine(t)
	out := drive(t, e, 21, "hello there")
	if len(out) != 0 {
		t.Fatalf("idle chatter answered %q", joined(out))
	}
}

func TestCommandSupersedesActiveFlow(t *testing.T) {
	e := newTestEngine(t)
	drive(t, e, 22, "/food banana")
	drive(t, e, 22, "/profile weight 70")

	out := drive(t, e, 22, "/workout run 30")
	if !strings.Contains(joined(out), "Logged run") {
		t.Fatalf("workout during food flow: %q", joined(out))
	}
	if got := sessionState(e, 22); got != session.StateIdle {
		t.Fatalf("state after superseding command = %q", got)
	}
	// The abandoned quantity answer now lands in idle and is dropped.
	out = drive(t, e, 22, "150 g")
	if len(out) != 0 {
		t.Fatalf("stale flow input answered %q", joined(out))
	}
}

func TestStatsIsAdminOnly(t *testing.T) {
	e := newTestEngine(t)
	drive(t, e, 23, "/start")

	out := drive(t, e, 23, "/stats")
	if len(out) != 0 {
		t.Fatalf("non-admin got stats: %q", joined(out))
	}
	out = drive(t, e, 99, "/stats")
	if !strings.Contains(joined(out), "1 users, 0 food entries") {
		t.Fatalf("admin stats: %q", joined(out))
	}
}

func TestTodayAdviceWhenOverGoal(t *testing.T) {
	e := newTestEngine(t)
	drive(t, e, 24, "/profile weight 70")
	drive(t, e, 24, "/food pasta cooked 2000 g", "yes")

	out := drive(t, e, 24, "/today")
	if !strings.Contains(joined(out), "To burn the extra") {
		t.Fatalf("expected burn advice when over goal: %q", joined(out))
	}
}

package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/m3rciful/nutrobot/internal/domain"
	"github.com/m3rciful/nutrobot/internal/storage/jsonfile"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := jsonfile.Open(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc := New(store)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func mustRecord(t *testing.T, svc *Service, userID int64, label string, kcal float64, at time.Time) string {
	t.Helper()
	id, err := svc.RecordEntry(context.Background(), userID, domain.FoodEntry{
		Label:    label,
		Calories: kcal,
		Grams:    100,
		LoggedAt: at,
	})
	if err != nil {
		t.Fatalf("RecordEntry(%s): %v", label, err)
	}
	return id
}

func TestRecordEntryValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		entry domain.FoodEntry
	}{
		{"empty label", domain.FoodEntry{Calories: 100, Grams: 100}},
		{"negative calories", domain.FoodEntry{Label: "soup", Calories: -1, Grams: 100}},
		{"negative protein", domain.FoodEntry{Label: "soup", Calories: 10, ProteinG: -2, Grams: 100}},
		{"negative fat", domain.FoodEntry{Label: "soup", Calories: 10, FatG: -2, Grams: 100}},
		{"negative carbs", domain.FoodEntry{Label: "soup", Calories: 10, CarbG: -2, Grams: 100}},
		{"zero grams", domain.FoodEntry{Label: "soup", Calories: 10}},
		{"oversized grams", domain.FoodEntry{Label: "soup", Calories: 10, Grams: 5001}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.RecordEntry(ctx, 1, tc.entry); !domain.IsValidation(err) {
				t.Fatalf("want ValidationError, got %v", err)
			}
		})
	}

	// Nothing should have been persisted by the rejected entries.
	agg, err := svc.DailyTotals(ctx, 1, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	if agg.Entries != 0 {
		t.Fatalf("rejected entries leaked into the ledger: %+v", agg)
	}
}

func TestDailyTotalsGoalScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, kcal := range []float64{500, 700, 300} {
		mustRecord(t, svc, 42, "meal", kcal, time.Time{})
	}

	agg, err := svc.DailyTotals(ctx, 42, day)
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	if agg.Calories != 1500 || agg.Delta != -500 {
		t.Fatalf("calories=%v delta=%v, want 1500/-500", agg.Calories, agg.Delta)
	}
	if agg.Entries != 3 {
		t.Fatalf("entries=%d, want 3", agg.Entries)
	}

	mustRecord(t, svc, 42, "dessert", 600, time.Time{})
	agg, err = svc.DailyTotals(ctx, 42, day)
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	if agg.Calories != 2100 || agg.Delta != 100 {
		t.Fatalf("calories=%v delta=%v, want 2100/+100", agg.Calories, agg.Delta)
	}
}

func TestDailyTotalsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mustRecord(t, svc, 7, "breakfast", 350, time.Time{})
	mustRecord(t, svc, 7, "lunch", 650, time.Time{})

	first, err := svc.DailyTotals(ctx, 7, day)
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	second, err := svc.DailyTotals(ctx, 7, day)
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	if first != second {
		t.Fatalf("recomputation drifted: %+v vs %+v", first, second)
	}
}

func TestRangeTotalsDense(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	mustRecord(t, svc, 9, "day one", 100, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	mustRecord(t, svc, 9, "day three", 200, time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC))

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	aggs, err := svc.RangeTotals(ctx, 9, start, end)
	if err != nil {
		t.Fatalf("RangeTotals: %v", err)
	}
	if len(aggs) != 5 {
		t.Fatalf("got %d aggregates, want 5", len(aggs))
	}
	for i, agg := range aggs {
		wantDay := start.AddDate(0, 0, i)
		if !agg.Day.Equal(wantDay) {
			t.Fatalf("aggs[%d].Day = %s, want %s", i, agg.Day, wantDay)
		}
	}
	if aggs[0].Calories != 100 || aggs[2].Calories != 200 {
		t.Fatalf("wrong day attribution: %+v", aggs)
	}
	// Empty days are present with zero sums but still carry the goal.
	if aggs[1].Calories != 0 || aggs[1].Entries != 0 || aggs[1].CalorieGoal != 2000 {
		t.Fatalf("empty day malformed: %+v", aggs[1])
	}
	if aggs[1].Delta != -2000 {
		t.Fatalf("empty day delta = %v, want -2000", aggs[1].Delta)
	}
}

func TestRangeTotalsValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	start := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.RangeTotals(ctx, 1, start, end); !domain.IsValidation(err) {
		t.Fatalf("inverted range: want ValidationError, got %v", err)
	}
	if _, err := svc.RangeTotals(ctx, 1, end, end.AddDate(0, 0, 400)); !domain.IsValidation(err) {
		t.Fatalf("oversized range: want ValidationError, got %v", err)
	}
}

func TestTimezoneDayAttribution(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	offset := 180 // UTC+3
	if _, err := svc.UpdateProfile(ctx, 5, domain.ProfileUpdate{TZOffsetMin: &offset}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	// 22:30 UTC is already past midnight at UTC+3.
	mustRecord(t, svc, 5, "late snack", 250, time.Date(2025, 6, 1, 22, 30, 0, 0, time.UTC))

	before, err := svc.DailyTotals(ctx, 5, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	after, err := svc.DailyTotals(ctx, 5, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	if before.Entries != 0 {
		t.Fatalf("entry leaked onto the UTC day: %+v", before)
	}
	if after.Entries != 1 || after.Calories != 250 {
		t.Fatalf("entry missing from the local day: %+v", after)
	}
}

func TestRetroactiveOffsetChangeKeepsOldEntries(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	plus3 := 180
	if _, err := svc.UpdateProfile(ctx, 6, domain.ProfileUpdate{TZOffsetMin: &plus3}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	at := time.Date(2025, 6, 1, 22, 30, 0, 0, time.UTC) // June 2nd at UTC+3
	mustRecord(t, svc, 6, "old entry", 300, at)

	minus5 := -300
	if _, err := svc.UpdateProfile(ctx, 6, domain.ProfileUpdate{TZOffsetMin: &minus5}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	mustRecord(t, svc, 6, "new entry", 400, at) // June 1st at UTC-5

	day1, err := svc.DailyTotals(ctx, 6, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	day2, err := svc.DailyTotals(ctx, 6, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	if day2.Entries != 1 || day2.Calories != 300 {
		t.Fatalf("old entry moved off its captured day: %+v", day2)
	}
	if day1.Entries != 1 || day1.Calories != 400 {
		t.Fatalf("new entry not on the new local day: %+v", day1)
	}
}

func TestUndoLastRemovesOnlyNewest(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mustRecord(t, svc, 11, "first", 500, time.Time{})
	mustRecord(t, svc, 11, "second", 700, time.Time{})

	removed, err := svc.UndoLast(ctx, 11)
	if err != nil {
		t.Fatalf("UndoLast: %v", err)
	}
	if removed.Label != "second" || removed.Calories != 700 {
		t.Fatalf("removed wrong entry: %+v", removed)
	}

	agg, err := svc.DailyTotals(ctx, 11, day)
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	if agg.Entries != 1 || agg.Calories != 500 {
		t.Fatalf("prior entry disturbed: %+v", agg)
	}
}

func TestUndoLastOnEmptyLedger(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.EnsureProfile(ctx, 12); err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	_, err := svc.UndoLast(ctx, 12)
	if !errors.Is(err, domain.ErrNoEntries) {
		t.Fatalf("want ErrNoEntries, got %v", err)
	}
	if !domain.IsNotFound(err) {
		t.Fatalf("undo on empty ledger should classify as not found, got %v", err)
	}
}

func TestUpdateProfileMergesOnlyProvidedFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	goal := 1800
	p, err := svc.UpdateProfile(ctx, 13, domain.ProfileUpdate{CalorieGoal: &goal})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if p.CalorieGoal != 1800 || p.Units != domain.UnitsMetric {
		t.Fatalf("merge result wrong: %+v", p)
	}

	protein := 120.0
	p, err = svc.UpdateProfile(ctx, 13, domain.ProfileUpdate{ProteinGoalG: &protein})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if p.CalorieGoal != 1800 {
		t.Fatalf("partial update clobbered calorie goal: %+v", p)
	}
	if p.ProteinGoalG != 120 {
		t.Fatalf("protein goal not applied: %+v", p)
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	bad := -5
	if _, err := svc.UpdateProfile(ctx, 14, domain.ProfileUpdate{CalorieGoal: &bad}); !domain.IsValidation(err) {
		t.Fatalf("negative goal: want ValidationError, got %v", err)
	}
	units := "stone"
	if _, err := svc.UpdateProfile(ctx, 14, domain.ProfileUpdate{Units: &units}); !domain.IsValidation(err) {
		t.Fatalf("bad units: want ValidationError, got %v", err)
	}
	weight := 500.0
	if _, err := svc.UpdateProfile(ctx, 14, domain.ProfileUpdate{WeightKg: &weight}); !domain.IsValidation(err) {
		t.Fatalf("oversized weight: want ValidationError, got %v", err)
	}
	tz := 900
	if _, err := svc.UpdateProfile(ctx, 14, domain.ProfileUpdate{TZOffsetMin: &tz}); !domain.IsValidation(err) {
		t.Fatalf("offset past UTC+14: want ValidationError, got %v", err)
	}
}

func TestActivityAndWaterInAggregates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	weight, activity := 70.0, 45
	if _, err := svc.UpdateProfile(ctx, 15, domain.ProfileUpdate{WeightKg: &weight, ActivityMin: &activity}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	mustRecord(t, svc, 15, "lunch", 800, time.Time{})
	act, err := svc.RecordActivity(ctx, 15, "run", 45, time.Time{})
	if err != nil {
		t.Fatalf("RecordActivity: %v", err)
	}
	if act.BurnedKcal != 540 {
		t.Fatalf("burned = %v, want 540", act.BurnedKcal)
	}
	if _, err := svc.RecordWater(ctx, 15, 500, time.Time{}); err != nil {
		t.Fatalf("RecordWater: %v", err)
	}

	agg, err := svc.DailyTotals(ctx, 15, day)
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	if agg.BurnedKcal != 540 || agg.NetKcal != 260 {
		t.Fatalf("burn math wrong: %+v", agg)
	}
	if agg.WaterML != 500 {
		t.Fatalf("water sum wrong: %+v", agg)
	}
	// Base 70*30 + one activity block (500) plus the workout bonus (200).
	if agg.WaterGoalML != 2800 {
		t.Fatalf("water goal = %d, want 2800", agg.WaterGoalML)
	}
	// Burn shows up in net calories but never in the goal delta.
	if agg.Delta != -1200 {
		t.Fatalf("delta = %v, want -1200", agg.Delta)
	}

	next, err := svc.DailyTotals(ctx, 15, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("DailyTotals: %v", err)
	}
	if next.WaterGoalML != 2600 {
		t.Fatalf("workout water bonus leaked to the next day: %+v", next)
	}
}

func TestRecordActivityValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.RecordActivity(ctx, 16, "x", 30, time.Time{}); !domain.IsValidation(err) {
		t.Fatalf("short kind: want ValidationError, got %v", err)
	}
	if _, err := svc.RecordActivity(ctx, 16, "run", 0, time.Time{}); !domain.IsValidation(err) {
		t.Fatalf("zero minutes: want ValidationError, got %v", err)
	}
	if _, err := svc.RecordActivity(ctx, 16, "run", 1001, time.Time{}); !domain.IsValidation(err) {
		t.Fatalf("oversized minutes: want ValidationError, got %v", err)
	}
}

func TestRecordWaterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.RecordWater(ctx, 17, 0, time.Time{}); !domain.IsValidation(err) {
		t.Fatalf("zero ml: want ValidationError, got %v", err)
	}
	if _, err := svc.RecordWater(ctx, 17, 5001, time.Time{}); !domain.IsValidation(err) {
		t.Fatalf("oversized ml: want ValidationError, got %v", err)
	}
}

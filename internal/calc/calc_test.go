package calc

import (
	"math"
	"testing"
)

func TestSuggestCalorieGoal(t *testing.T) {
	cases := []struct {
		name     string
		weight   float64
		height   float64
		age      int
		activity int
		want     int
	}{
		// BMR for 70 kg / 175 cm / 30 y is 1643.75; bonus rounds the total.
		{"sedentary", 70, 175, 30, 0, 1844},
		{"moderate", 70, 175, 30, 45, 1944},
		{"active", 70, 175, 30, 90, 2044},
		{"boundary 30min keeps low bonus", 70, 175, 30, 30, 1844},
		{"boundary 60min keeps mid bonus", 70, 175, 30, 60, 1944},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SuggestCalorieGoal(tc.weight, tc.height, tc.age, tc.activity)
			if got != tc.want {
				t.Fatalf("SuggestCalorieGoal = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSuggestCalorieGoalIncompleteStats(t *testing.T) {
	if got := SuggestCalorieGoal(0, 175, 30, 0); got != 0 {
		t.Fatalf("missing weight: got %d, want 0", got)
	}
	if got := SuggestCalorieGoal(70, 175, 0, 0); got != 0 {
		t.Fatalf("missing age: got %d, want 0", got)
	}
}

func TestBurnedCalories(t *testing.T) {
	// 30 min run at 70 kg: 9.8 * 3.5 * 70 / 200 * 30 = 360.15 -> 360.
	if got := BurnedCalories("morning run", 30, 70); got != 360 {
		t.Fatalf("run: got %v, want 360", got)
	}
	// Unknown kind falls back to MET 6.0: 6 * 3.5 * 70 / 200 * 30 = 220.5 -> 221.
	if got := BurnedCalories("boxing", 30, 70); got != 221 {
		t.Fatalf("default MET: got %v, want 221", got)
	}
	if got := BurnedCalories("walk", 0, 70); got != 0 {
		t.Fatalf("zero minutes: got %v, want 0", got)
	}
}

func TestWaterGoalML(t *testing.T) {
	// 70 kg, 45 min activity: 2100 + one full 30-min block = 2600.
	if got := WaterGoalML(70, 45); got != 2600 {
		t.Fatalf("got %d, want 2600", got)
	}
	// 29 minutes is not a full block.
	if got := WaterGoalML(70, 29); got != 2100 {
		t.Fatalf("got %d, want 2100", got)
	}
}

func TestWorkoutExtraWaterML(t *testing.T) {
	for _, tc := range []struct{ min, want int }{{0, 0}, {29, 0}, {30, 200}, {45, 200}, {60, 400}} {
		if got := WorkoutExtraWaterML(tc.min); got != tc.want {
			t.Fatalf("minutes=%d: got %d, want %d", tc.min, got, tc.want)
		}
	}
}

func TestMinutesToBurnRoundTrips(t *testing.T) {
	burned := BurnedCalories("bike", 40, 80)
	min := MinutesToBurn(burned, "bike", 80)
	if diff := math.Abs(float64(min - 40)); diff > 1 {
		t.Fatalf("round trip drifted: burned %v -> %d min", burned, min)
	}
}

func TestFoodIdeasRespectBudget(t *testing.T) {
	ideas := FoodIdeas(150)
	if len(ideas) == 0 {
		t.Fatal("expected at least one idea for 150 kcal")
	}
	for _, idea := range ideas {
		if idea.Kcal > 150*1.1 {
			t.Fatalf("idea %q exceeds budget: %v kcal", idea.Name, idea.Kcal)
		}
		if idea.Grams < 50 || idea.Grams > 300 {
			t.Fatalf("idea %q portion out of bounds: %d g", idea.Name, idea.Grams)
		}
	}
	if got := FoodIdeas(0); got != nil {
		t.Fatalf("zero budget should yield nothing, got %v", got)
	}
}

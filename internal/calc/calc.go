// Package calc holds the nutrition math: calorie-goal suggestion, workout
// energy burn and daily water targets. Everything here is a pure function
// of profile numbers, so the formulas are unit-testable in isolation.
package calc

import (
	"math"
	"strings"
)

// metDefault covers workout kinds the table does not recognize.
const metDefault = 6.0

// metTable maps workout keywords to MET values, coarse on purpose.
var metTable = []struct {
	keys []string
	met  float64
}{
	{[]string{"walk", "hik"}, 3.5},
	{[]string{"run", "jog"}, 9.8},
	{[]string{"bike", "cycl"}, 7.5},
	{[]string{"gym", "weight", "strength"}, 6.0},
	{[]string{"yoga", "stretch"}, 2.5},
}

func metFor(kind string) float64 {
	t := strings.ToLower(strings.TrimSpace(kind))
	for _, row := range metTable {
		for _, k := range row.keys {
			if strings.Contains(t, k) {
				return row.met
			}
		}
	}
	return metDefault
}

// SuggestCalorieGoal estimates a daily calorie goal from body stats:
// basal rate 10*weight + 6.25*height - 5*age plus an activity bonus of
// 200/300/400 kcal for <=30, <=60 and >60 minutes of typical activity.
// Returns 0 when the stats are incomplete.
func SuggestCalorieGoal(weightKg, heightCm float64, age, activityMin int) int {
	if weightKg <= 0 || heightCm <= 0 || age <= 0 {
		return 0
	}
	bmr := 10.0*weightKg + 6.25*heightCm - 5.0*float64(age)
	bonus := 200.0
	switch {
	case activityMin > 60:
		bonus = 400.0
	case activityMin > 30:
		bonus = 300.0
	}
	return int(math.Round(bmr + bonus))
}

// BurnedCalories estimates workout energy burn with the standard MET
// formula kcal = MET * 3.5 * weight / 200 * minutes.
func BurnedCalories(kind string, minutes int, weightKg float64) float64 {
	if minutes <= 0 || weightKg <= 0 {
		return 0
	}
	return math.Round(metFor(kind) * 3.5 * weightKg / 200.0 * float64(minutes))
}

// MinutesToBurn estimates how many minutes of the given workout burn the
// requested calories. Returns 0 when the inputs make no estimate possible.
func MinutesToBurn(calories float64, kind string, weightKg float64) int {
	if calories <= 0 || weightKg <= 0 {
		return 0
	}
	perMin := metFor(kind) * 3.5 * weightKg / 200.0
	if perMin <= 0 {
		return 0
	}
	return int(math.Round(calories / perMin))
}

// WaterGoalML computes the daily water target: weight * 30 ml plus 500 ml
// per full 30 minutes of typical daily activity. Workout bonuses from
// entries logged on the day are added separately via WorkoutExtraWaterML.
func WaterGoalML(weightKg float64, activityMin int) int {
	if weightKg <= 0 {
		return 0
	}
	base := weightKg * 30.0
	extra := float64(activityMin/30) * 500.0
	return int(math.Round(base + extra))
}

// WorkoutExtraWaterML adds 200 ml per full 30 minutes of a logged workout.
func WorkoutExtraWaterML(minutes int) int {
	if minutes <= 0 {
		return 0
	}
	return (minutes / 30) * 200
}

// BurnOption is one workout suggestion for compensating surplus calories.
type BurnOption struct {
	Kind    string
	Minutes int
}

// BurnOptions suggests quick ways to burn the given surplus, skipping
// estimates that collapse to zero.
func BurnOptions(surplusKcal, weightKg float64) []BurnOption {
	kinds := []string{"brisk walk", "bike", "run"}
	var out []BurnOption
	for _, k := range kinds {
		if m := MinutesToBurn(surplusKcal, k, weightKg); m > 0 {
			out = append(out, BurnOption{Kind: k, Minutes: m})
		}
	}
	return out
}

// FoodIdea is a low-calorie portion suggestion that fits remaining budget.
type FoodIdea struct {
	Name  string
	Grams int
	Kcal  float64
}

var lowCalorieFoods = []struct {
	name    string
	kcal100 float64
}{
	{"cucumber or tomato", 20},
	{"apple", 52},
	{"greek yogurt 2%", 80},
	{"cottage cheese 2%", 103},
	{"chicken breast", 165},
}

// FoodIdeas builds up to four low-calorie portion ideas that fit the
// remaining calorie budget, with portions clamped to 50..300 g.
func FoodIdeas(remainingKcal float64) []FoodIdea {
	if remainingKcal <= 0 {
		return nil
	}
	var out []FoodIdea
	for _, f := range lowCalorieFoods {
		grams := remainingKcal / f.kcal100 * 100
		grams = math.Min(300, math.Max(50, grams))
		g := int(math.Round(grams))
		kcal := f.kcal100 * float64(g) / 100
		if kcal <= remainingKcal*1.1 {
			out = append(out, FoodIdea{Name: f.name, Grams: g, Kcal: kcal})
		}
		if len(out) == 4 {
			break
		}
	}
	return out
}

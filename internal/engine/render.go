package engine

import (
	"fmt"
	"strings"

	"github.com/m3rciful/nutrobot/internal/calc"
	"github.com/m3rciful/nutrobot/internal/domain"
)

const (
	kgPerPound  = 0.45359237
	cmPerInch   = 2.54
	poundsPerKg = 1 / kgPerPound
	inchesPerCm = 1 / cmPerInch
)

// fmtNum prints a float without a trailing ".0" for whole values.
func fmtNum(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	return strings.TrimSuffix(s, ".0")
}

func offsetLabel(min int) string {
	if min == 0 {
		return "UTC"
	}
	sign := "+"
	if min < 0 {
		sign = "-"
		min = -min
	}
	if min%60 == 0 {
		return fmt.Sprintf("UTC%s%d", sign, min/60)
	}
	return fmt.Sprintf("UTC%s%d:%02d", sign, min/60, min%60)
}

// renderDaySummary formats one day's totals. The label is "Today" or a
// date, depending on what the caller asked about.
func renderDaySummary(label string, agg domain.DailyAggregate, p *domain.UserProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s kcal of %d (%+.0f)", label, fmtNum(agg.Calories), agg.CalorieGoal, agg.Delta)
	fmt.Fprintf(&b, "\nProtein %s", fmtNum(agg.ProteinG))
	if p.ProteinGoalG > 0 {
		fmt.Fprintf(&b, "/%s", fmtNum(p.ProteinGoalG))
	}
	fmt.Fprintf(&b, " g, fat %s", fmtNum(agg.FatG))
	if p.FatGoalG > 0 {
		fmt.Fprintf(&b, "/%s", fmtNum(p.FatGoalG))
	}
	fmt.Fprintf(&b, " g, carbs %s", fmtNum(agg.CarbG))
	if p.CarbGoalG > 0 {
		fmt.Fprintf(&b, "/%s", fmtNum(p.CarbGoalG))
	}
	b.WriteString(" g")
	switch agg.Entries {
	case 1:
		b.WriteString("\n1 entry logged")
	default:
		fmt.Fprintf(&b, "\n%d entries logged", agg.Entries)
	}
	if agg.BurnedKcal > 0 {
		fmt.Fprintf(&b, "\nBurned %s kcal, net %s kcal", fmtNum(agg.BurnedKcal), fmtNum(agg.NetKcal))
	}
	if agg.WaterML > 0 || agg.WaterGoalML > 0 {
		fmt.Fprintf(&b, "\nWater %d", agg.WaterML)
		if agg.WaterGoalML > 0 {
			fmt.Fprintf(&b, "/%d", agg.WaterGoalML)
		}
		b.WriteString(" ml")
	}
	return b.String()
}

// renderAdvice suggests what to do with today's surplus or remaining
// budget. Empty when there is nothing useful to say.
func renderAdvice(agg domain.DailyAggregate, p *domain.UserProfile) string {
	if agg.Delta > 0 {
		opts := calc.BurnOptions(agg.Delta, p.WeightKg)
		if len(opts) == 0 {
			return ""
		}
		parts := make([]string, 0, len(opts))
		for _, o := range opts {
			parts = append(parts, fmt.Sprintf("%s %d min", o.Kind, o.Minutes))
		}
		return fmt.Sprintf("To burn the extra %s kcal: %s.", fmtNum(agg.Delta), strings.Join(parts, ", "))
	}
	if agg.Delta < 0 && agg.Entries > 0 {
		ideas := calc.FoodIdeas(-agg.Delta)
		if len(ideas) == 0 {
			return ""
		}
		parts := make([]string, 0, len(ideas))
		for _, f := range ideas {
			parts = append(parts, fmt.Sprintf("%s %d g (%s kcal)", f.Name, f.Grams, fmtNum(f.Kcal)))
		}
		return fmt.Sprintf("%s kcal left today. Ideas: %s.", fmtNum(-agg.Delta), strings.Join(parts, "; "))
	}
	return ""
}

// renderTrend formats a day-per-line table with an average footer.
func renderTrend(aggs []domain.DailyAggregate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trend, %d days:", len(aggs))
	var sum float64
	for _, agg := range aggs {
		fmt.Fprintf(&b, "\n%s  %s/%d kcal (%+.0f)",
			agg.Day.Format("Jan 02"), fmtNum(agg.Calories), agg.CalorieGoal, agg.Delta)
		sum += agg.Calories
	}
	if len(aggs) > 1 {
		fmt.Fprintf(&b, "\nAverage %s kcal per day", fmtNum(sum/float64(len(aggs))))
	}
	return b.String()
}

// renderProfile prints the profile the way the edit flow names fields, so
// users see what /profile <field> expects.
func renderProfile(p *domain.UserProfile) string {
	var b strings.Builder
	b.WriteString("Your profile:")
	fmt.Fprintf(&b, "\ngoal: %d kcal/day", p.CalorieGoal)
	if p.ProteinGoalG > 0 || p.FatGoalG > 0 || p.CarbGoalG > 0 {
		fmt.Fprintf(&b, "\nmacros: protein %s g, fat %s g, carbs %s g",
			fmtNum(p.ProteinGoalG), fmtNum(p.FatGoalG), fmtNum(p.CarbGoalG))
	}
	fmt.Fprintf(&b, "\ntimezone: %s", offsetLabel(p.TZOffsetMin))
	fmt.Fprintf(&b, "\nunits: %s", p.Units)
	if p.WeightKg > 0 {
		fmt.Fprintf(&b, "\nweight: %s", renderWeight(p.WeightKg, p.Units))
	}
	if p.HeightCm > 0 {
		fmt.Fprintf(&b, "\nheight: %s", renderHeight(p.HeightCm, p.Units))
	}
	if p.Age > 0 {
		fmt.Fprintf(&b, "\nage: %d", p.Age)
	}
	if p.ActivityMin > 0 {
		fmt.Fprintf(&b, "\nactivity: %d min/day", p.ActivityMin)
	}
	return b.String()
}

func renderWeight(kg float64, units string) string {
	if units == domain.UnitsImperial {
		return fmt.Sprintf("%s lb", fmtNum(kg*poundsPerKg))
	}
	return fmt.Sprintf("%s kg", fmtNum(kg))
}

func renderHeight(cm float64, units string) string {
	if units == domain.UnitsImperial {
		return fmt.Sprintf("%s in", fmtNum(cm*inchesPerCm))
	}
	return fmt.Sprintf("%s cm", fmtNum(cm))
}

// renderEntryPreview is the confirmation question for a drafted entry.
func renderEntryPreview(label string, grams, kcal, protein, fat, carb float64) string {
	return fmt.Sprintf("%s, %s g: %s kcal (protein %s, fat %s, carbs %s). Log it? (yes/no)",
		label, fmtNum(grams), fmtNum(kcal), fmtNum(protein), fmtNum(fat), fmtNum(carb))
}

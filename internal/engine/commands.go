package engine

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/m3rciful/nutrobot/core/logger"
	"github.com/m3rciful/nutrobot/internal/domain"
	"github.com/m3rciful/nutrobot/internal/ledger"
	"github.com/m3rciful/nutrobot/internal/session"
)

const helpText = `What I understand:
/food [name [amount]] - log food; I ask for anything missing
/addfood <name> <kcal> [protein fat carbs [serving]] - teach me a food, numbers per 100 g
/water <ml> - log water
/workout [kind minutes] - log a workout
/today - today's totals and advice
/trend [days | from to] - day-by-day history
/undo - remove the last food entry
/profile [edit | <field> [value]] - goals, timezone, body stats
/cancel - abort the current flow`

func (e *Engine) cmdStart(ctx context.Context, t *turn, _ string) error {
	t.sess.Reset()
	p, err := e.profileFor(ctx, t)
	if err != nil {
		return err
	}
	t.say("Hi! I keep your nutrition ledger: log food, water and workouts, and I add them up day by day.")
	t.say("Your calorie goal is %d kcal/day. Set up the rest with /profile edit, log your first food with /food. Full list: /help.", p.CalorieGoal)
	return nil
}

func (e *Engine) cmdHelp(_ context.Context, t *turn, _ string) error {
	t.say(helpText)
	return nil
}

func (e *Engine) cmdFood(ctx context.Context, t *turn, args string) error {
	t.sess.Reset()
	if args != "" {
		name, amt, hasAmt := splitFoodAndAmount(args)
		if ledger.NormalizeKey(name) != "" {
			return e.resolveFood(ctx, t, name, amt, hasAmt)
		}
	}
	t.sess.State = session.StateCollectingFoodName
	t.say(promptFoodName)
	return nil
}

const addFoodUsage = "Teach me a food with numbers per 100 g: /addfood <name> <kcal> [protein fat carbs [serving grams]]. E.g. \"/addfood borscht 49 1.6 2.2 5.5\" or \"/addfood egg 155 13 11 1.1 55\"."

func (e *Engine) cmdAddFood(ctx context.Context, t *turn, args string) error {
	if args == "" {
		t.say(addFoodUsage)
		return nil
	}
	tokens := strings.Fields(args)
	split := len(tokens)
	for split > 0 {
		if _, ok := parseNumber(tokens[split-1]); !ok {
			break
		}
		split--
	}
	name := strings.Join(tokens[:split], " ")
	nums := tokens[split:]
	if name == "" || (len(nums) != 1 && len(nums) != 4 && len(nums) != 5) {
		t.say(addFoodUsage)
		return nil
	}
	vals := make([]float64, len(nums))
	for i, n := range nums {
		vals[i], _ = parseNumber(n)
	}
	item := domain.CatalogItem{Name: name, KcalPer100: vals[0]}
	if len(vals) >= 4 {
		item.ProteinPer100, item.FatPer100, item.CarbPer100 = vals[1], vals[2], vals[3]
	}
	if len(vals) == 5 {
		s := vals[4]
		item.ServingGrams = &s
	}
	saved, err := e.ledger.SaveCatalogItem(ctx, t.userID, item)
	if err != nil {
		if domain.IsValidation(err) {
			t.say("Could not save it (%v).", err)
			return nil
		}
		return err
	}
	t.say("Saved %s, %s kcal/100 g. Log it anytime: /food %s.", saved.Name, fmtNum(saved.KcalPer100), saved.Key)
	return nil
}

func (e *Engine) cmdWater(ctx context.Context, t *turn, args string) error {
	if args == "" {
		t.say("How much water, in milliliters? E.g. /water 300.")
		return nil
	}
	amt, ok := parseAmount(args)
	if !ok || (amt.kind != amountAuto && amt.kind != amountGrams) {
		t.say("Milliliters as a number, e.g. /water 300.")
		return nil
	}
	ml := int(math.Round(amt.value))
	if _, err := e.ledger.RecordWater(ctx, t.userID, ml, t.at); err != nil {
		if domain.IsValidation(err) {
			t.say("Water goes in 1..5000 ml at a time.")
			return nil
		}
		return err
	}
	t.say("+%d ml.", ml)
	return e.sayDaySummary(ctx, t, "Today")
}

func (e *Engine) cmdWorkout(ctx context.Context, t *turn, args string) error {
	t.sess.Reset()
	if args != "" {
		tokens := strings.Fields(args)
		if len(tokens) >= 2 {
			if minutes, err := strconv.Atoi(tokens[len(tokens)-1]); err == nil {
				kind := strings.Join(tokens[:len(tokens)-1], " ")
				if minutes >= 1 && minutes <= ledger.MaxWorkoutMin && len([]rune(kind)) >= 2 {
					return e.logActivity(ctx, t, kind, minutes)
				}
			}
		}
		if kind := strings.TrimSpace(args); len([]rune(kind)) >= 2 {
			t.sess.Activity = &session.ActivityDraft{Kind: kind}
			t.sess.State = session.StateCollectingActivityMinutes
			t.say("How many minutes?")
			return nil
		}
	}
	t.sess.State = session.StateCollectingActivityKind
	t.say("What workout was it? E.g. run, bike, yoga.")
	return nil
}

func (e *Engine) cmdToday(ctx context.Context, t *turn, _ string) error {
	p, err := e.profileFor(ctx, t)
	if err != nil {
		return err
	}
	agg, err := e.ledger.DailyTotals(ctx, t.userID, localDay(t, p))
	if err != nil {
		return err
	}
	t.say(renderDaySummary("Today", agg, p))
	if advice := renderAdvice(agg, p); advice != "" {
		t.say(advice)
	}
	return nil
}

func (e *Engine) cmdTrend(ctx context.Context, t *turn, args string) error {
	p, err := e.profileFor(ctx, t)
	if err != nil {
		return err
	}
	if args == "" {
		t.sess.Reset()
		t.sess.State = session.StateAwaitingRangeQuery
		t.say("How far back? A number of days, \"week\", \"month\", or two dates like \"2025-06-01 2025-06-07\".")
		return nil
	}
	start, end, ok := parseRange(args, localDay(t, p))
	if !ok {
		t.say("I could not read that range. A number of days (1..365), \"week\", \"month\", or two dates.")
		return nil
	}
	aggs, err := e.ledger.RangeTotals(ctx, t.userID, start, end)
	if err != nil {
		return err
	}
	t.say(renderTrend(aggs))
	return nil
}

func (e *Engine) cmdUndo(ctx context.Context, t *turn, _ string) error {
	t.sess.Reset()
	last, err := e.ledger.LastEntry(ctx, t.userID)
	if err != nil {
		if domain.IsNotFound(err) {
			t.say("Nothing to undo.")
			return nil
		}
		return err
	}
	t.sess.State = session.StateConfirmingUndo
	t.say("Remove %s (%s kcal)? (yes/no)", last.Label, fmtNum(last.Calories))
	return nil
}

func (e *Engine) cmdStats(ctx context.Context, t *turn, _ string) error {
	if _, ok := e.admins[t.userID]; !ok {
		logger.Debug(ctx, component, "engine.stats_denied", slog.Int64("user_id", t.userID))
		return nil
	}
	st, err := e.ledger.Stats(ctx)
	if err != nil {
		return err
	}
	t.say("%d users, %d food entries.", st.Users, st.FoodEntries)
	return nil
}

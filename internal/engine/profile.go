package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/nutrobot/internal/calc"
	"github.com/m3rciful/nutrobot/internal/domain"
	"github.com/m3rciful/nutrobot/internal/ledger"
	"github.com/m3rciful/nutrobot/internal/session"
)

// profileWizard mirrors the onboarding order: body stats first so the
// goal question can come with a suggestion.
var profileWizard = []string{"weight", "height", "age", "activity", "goal"}

var profileFieldAliases = map[string]string{
	"goal": "goal", "calories": "goal", "kcal": "goal",
	"protein": "protein",
	"fat":     "fat",
	"carbs":   "carbs", "carb": "carbs",
	"timezone": "timezone", "tz": "timezone",
	"units":    "units",
	"weight":   "weight",
	"height":   "height",
	"age":      "age",
	"activity": "activity",
}

const profileFieldsHint = "Fields: goal, protein, fat, carbs, timezone, units, weight, height, age, activity."

func (e *Engine) cmdProfile(ctx context.Context, t *turn, args string) error {
	if args == "" {
		p, err := e.profileFor(ctx, t)
		if err != nil {
			return err
		}
		t.say(renderProfile(p))
		t.say("Edit everything with /profile edit, or one field like \"/profile goal 1800\".")
		return nil
	}

	field, value, _ := strings.Cut(args, " ")
	field = strings.ToLower(strings.TrimSpace(field))
	value = strings.TrimSpace(value)

	p, err := e.profileFor(ctx, t)
	if err != nil {
		return err
	}

	if field == "edit" {
		t.sess.Reset()
		d := &session.ProfileDraft{
			Field:   profileWizard[0],
			Pending: append([]string(nil), profileWizard[1:]...),
		}
		t.sess.Profile = d
		t.sess.State = session.StateEditingProfileField
		t.say("Let's set up your profile. \"skip\" skips a question, /cancel aborts.")
		t.say(e.fieldPrompt(d, p))
		return nil
	}

	canonical, known := profileFieldAliases[field]
	if !known {
		t.say("I don't know the field %q. %s", field, profileFieldsHint)
		return nil
	}
	t.sess.Reset()
	d := &session.ProfileDraft{Field: canonical}
	t.sess.Profile = d
	t.sess.State = session.StateEditingProfileField
	if value == "" {
		t.say(e.fieldPrompt(d, p))
		return nil
	}
	// Value given right on the command line.
	if !e.parseProfileField(t, d, p, value) {
		return nil
	}
	return e.commitProfile(ctx, t, d)
}

func (e *Engine) stepProfileField(ctx context.Context, t *turn) error {
	d := t.sess.Profile
	if d == nil {
		lostTrack(t)
		return nil
	}
	p, err := e.profileFor(ctx, t)
	if err != nil {
		return err
	}

	input := strings.TrimSpace(t.text)
	if !strings.EqualFold(input, "skip") {
		if !e.parseProfileField(t, d, p, input) {
			return nil
		}
	}
	if len(d.Pending) > 0 {
		d.Field = d.Pending[0]
		d.Pending = d.Pending[1:]
		t.say(e.fieldPrompt(d, p))
		return nil
	}
	return e.commitProfile(ctx, t, d)
}

func (e *Engine) commitProfile(ctx context.Context, t *turn, d *session.ProfileDraft) error {
	if d.Update.IsEmpty() {
		t.sess.Reset()
		t.say("Nothing changed.")
		return nil
	}
	p, err := e.ledger.UpdateProfile(ctx, t.userID, d.Update)
	if err != nil {
		if domain.IsValidation(err) {
			t.sess.Reset()
			t.say("Could not save the profile (%v).", err)
			return nil
		}
		return err
	}
	t.profile = p
	t.sess.Reset()
	t.say("Profile saved.")
	t.say(renderProfile(p))
	return nil
}

func (e *Engine) fieldPrompt(d *session.ProfileDraft, p *domain.UserProfile) string {
	switch d.Field {
	case "weight":
		if p.Units == domain.UnitsImperial {
			return "Your weight, lb?"
		}
		return "Your weight, kg?"
	case "height":
		if p.Units == domain.UnitsImperial {
			return "Your height, inches?"
		}
		return "Your height, cm?"
	case "age":
		return "Your age, years?"
	case "activity":
		return "Typical activity, minutes per day? 0 if mostly sitting."
	case "goal":
		if sug := e.suggestedGoal(p, d); sug > 0 {
			return fmt.Sprintf("Daily calorie goal, kcal? Send 0 to take the suggested %d.", sug)
		}
		return "Daily calorie goal, kcal?"
	case "protein":
		return "Daily protein goal, grams? 0 clears it."
	case "fat":
		return "Daily fat goal, grams? 0 clears it."
	case "carbs":
		return "Daily carb goal, grams? 0 clears it."
	case "timezone":
		return "Your timezone as a UTC offset, e.g. +3 or -5:30?"
	case "units":
		return "metric or imperial?"
	}
	return profileFieldsHint
}

// suggestedGoal computes the calorie suggestion from the profile merged
// with whatever the wizard has collected so far.
func (e *Engine) suggestedGoal(p *domain.UserProfile, d *session.ProfileDraft) int {
	w, h, a, act := p.WeightKg, p.HeightCm, p.Age, p.ActivityMin
	if d.Update.WeightKg != nil {
		w = *d.Update.WeightKg
	}
	if d.Update.HeightCm != nil {
		h = *d.Update.HeightCm
	}
	if d.Update.Age != nil {
		a = *d.Update.Age
	}
	if d.Update.ActivityMin != nil {
		act = *d.Update.ActivityMin
	}
	return calc.SuggestCalorieGoal(w, h, a, act)
}

// parseProfileField reads one field value into the draft's update. On bad
// input it phrases the retry prompt and reports false, leaving the state
// unchanged.
func (e *Engine) parseProfileField(t *turn, d *session.ProfileDraft, p *domain.UserProfile, input string) bool {
	switch d.Field {
	case "weight":
		v, ok := parseNumber(input)
		if ok && p.Units == domain.UnitsImperial {
			v *= kgPerPound
		}
		if !ok || v <= 0 || v > ledger.MaxWeightKg {
			t.say("Weight as a number, e.g. %s.", weightExample(p.Units))
			return false
		}
		d.Update.WeightKg = &v
	case "height":
		v, ok := parseNumber(input)
		if ok && p.Units == domain.UnitsImperial {
			v *= cmPerInch
		}
		if !ok || v <= 0 || v > ledger.MaxHeightCm {
			t.say("Height as a number, e.g. %s.", heightExample(p.Units))
			return false
		}
		d.Update.HeightCm = &v
	case "age":
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > ledger.MaxAge {
			t.say("Age in years, 1..120.")
			return false
		}
		d.Update.Age = &n
	case "activity":
		n, err := strconv.Atoi(input)
		if err != nil || n < 0 || n > ledger.MaxActivityMin {
			t.say("Activity in minutes per day, 0..1440.")
			return false
		}
		d.Update.ActivityMin = &n
	case "goal":
		n, err := strconv.Atoi(input)
		if err != nil || n < 0 || n > ledger.MaxCalorieGoal {
			t.say("The goal in kcal, 1..10000.")
			return false
		}
		if n == 0 {
			sug := e.suggestedGoal(p, d)
			if sug <= 0 {
				t.say("I can only suggest a goal once weight, height and age are set. Send the goal itself.")
				return false
			}
			n = sug
		}
		d.Update.CalorieGoal = &n
	case "protein", "fat", "carbs":
		v, ok := parseNumber(input)
		if !ok || v < 0 || v > ledger.MaxMacroGoalG {
			t.say("Grams per day, 0..2000.")
			return false
		}
		switch d.Field {
		case "protein":
			d.Update.ProteinGoalG = &v
		case "fat":
			d.Update.FatGoalG = &v
		case "carbs":
			d.Update.CarbGoalG = &v
		}
	case "timezone":
		min, ok := parseTZOffset(input)
		if !ok || min < domain.MinTZOffsetMin || min > domain.MaxTZOffsetMin {
			t.say("A UTC offset between -12 and +14, e.g. +3 or -5:30.")
			return false
		}
		d.Update.TZOffsetMin = &min
	case "units":
		u := strings.ToLower(input)
		if u != domain.UnitsMetric && u != domain.UnitsImperial {
			t.say("Either \"metric\" or \"imperial\".")
			return false
		}
		d.Update.Units = &u
	default:
		lostTrack(t)
		return false
	}
	return true
}

func weightExample(units string) string {
	if units == domain.UnitsImperial {
		return "155 (lb)"
	}
	return "70 (kg)"
}

func heightExample(units string) string {
	if units == domain.UnitsImperial {
		return "69 (inches)"
	}
	return "175 (cm)"
}

package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/m3rciful/nutrobot/core/logger"
	"github.com/m3rciful/nutrobot/internal/calc"
	"github.com/m3rciful/nutrobot/internal/domain"
	"github.com/m3rciful/nutrobot/internal/ledger"
	"github.com/m3rciful/nutrobot/internal/session"
)

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// draftTotals scales the draft's per-100 g numbers to the chosen amount.
func draftTotals(d *session.FoodDraft) (kcal, protein, fat, carb float64) {
	f := d.Grams / 100
	return d.KcalPer100 * f, d.ProteinPer100 * f, d.FatPer100 * f, d.CarbPer100 * f
}

// lostTrack recovers from a session whose draft went missing, which only
// happens if stored state and accumulator get out of sync.
func lostTrack(t *turn) {
	t.sess.Reset()
	t.say("I lost track of that flow, sorry. Start over with /food or /help.")
}

const (
	promptFoodName = "What did you eat? Name the food, optionally with the amount: \"banana\" or \"cottage cheese 150 g\"."
	promptQuantity = "How much? Grams (\"150 g\") or pieces (\"2\")."
)

func (e *Engine) stepFoodName(ctx context.Context, t *turn) error {
	name, amt, hasAmt := splitFoodAndAmount(t.text)
	if ledger.NormalizeKey(name) == "" {
		t.say(promptFoodName)
		return nil
	}
	return e.resolveFood(ctx, t, name, amt, hasAmt)
}

// resolveFood starts the food flow proper once a name is known: catalog
// lookup decides whether macros must be collected, the amount decides
// whether quantity can be skipped.
func (e *Engine) resolveFood(ctx context.Context, t *turn, name string, amt amount, hasAmt bool) error {
	m, err := e.ledger.LookupFood(ctx, t.userID, name)
	if err != nil {
		return err
	}

	t.sess.Reset()
	d := &session.FoodDraft{Label: strings.TrimSpace(name), Key: ledger.NormalizeKey(name)}
	t.sess.Food = d

	switch {
	case m == nil:
		if hasAmt {
			stashAmount(d, amt)
		}
		t.sess.State = session.StateCollectingMacros
		t.say("I don't know %q yet. Send kcal per 100 g, or four numbers: kcal protein fat carbs.", d.Label)
		return nil
	case m.Exact || m.Score >= ledger.AutoAcceptScore:
		fillDraftFromItem(d, m.Item)
	default:
		fillDraftFromItem(d, m.Item)
		t.say("Taking that as %s (%s kcal/100 g).", m.Item.Name, fmtNum(m.Item.KcalPer100))
	}

	if hasAmt {
		return e.applyAmount(ctx, t, amt)
	}
	t.sess.State = session.StateCollectingQuantity
	t.say(promptQuantity)
	return nil
}

// stashAmount keeps an up-front amount on the draft while the flow
// detours to collect macros, so the quantity question can be skipped.
// Out-of-range values are dropped and asked for again later.
func stashAmount(d *session.FoodDraft, amt amount) {
	switch amt.kind {
	case amountGrams:
		if amt.value <= ledger.MaxGrams {
			d.Grams = amt.value
		}
	case amountPieces, amountServings:
		d.Pieces = amt.value
	case amountAuto:
		if amt.value <= autoPieceLimit {
			d.Pieces = amt.value
		} else if amt.value <= ledger.MaxGrams {
			d.Grams = amt.value
		}
	}
}

func fillDraftFromItem(d *session.FoodDraft, item domain.CatalogItem) {
	d.Label = item.Name
	d.Key = item.Key
	d.KcalPer100 = item.KcalPer100
	d.ProteinPer100 = item.ProteinPer100
	d.FatPer100 = item.FatPer100
	d.CarbPer100 = item.CarbPer100
	if item.ServingGrams != nil {
		d.ServingGrams = *item.ServingGrams
	}
	d.FromCatalog = true
}

func (e *Engine) stepMacros(ctx context.Context, t *turn) error {
	d := t.sess.Food
	if d == nil {
		lostTrack(t)
		return nil
	}
	kcal, protein, fat, carb, ok := parseMacros(t.text)
	if !ok || kcal <= 0 || kcal > ledger.MaxKcalPer100 || protein > 100 || fat > 100 || carb > 100 {
		t.say("Numbers, please: kcal per 100 g, or \"kcal protein fat carbs\". E.g. \"165 31 3.6 0\".")
		return nil
	}
	d.KcalPer100, d.ProteinPer100, d.FatPer100, d.CarbPer100 = kcal, protein, fat, carb
	switch {
	case d.Grams > 0:
		askConfirm(t)
	case d.Pieces > 0:
		t.sess.State = session.StateCollectingServing
		t.say("How many grams is one piece of %s?", d.Label)
	default:
		t.sess.State = session.StateCollectingQuantity
		t.say(promptQuantity)
	}
	return nil
}

func (e *Engine) stepQuantity(ctx context.Context, t *turn) error {
	if t.sess.Food == nil {
		lostTrack(t)
		return nil
	}
	amt, ok := parseAmount(t.text)
	if !ok {
		t.say("I need a number: grams like \"150 g\", or pieces like \"2\".")
		return nil
	}
	return e.applyAmount(ctx, t, amt)
}

// applyAmount resolves a parsed amount against the draft. Piece counts
// need grams per piece; when the catalog does not know the serving the
// flow detours to ask for it once.
func (e *Engine) applyAmount(_ context.Context, t *turn, amt amount) error {
	d := t.sess.Food
	var grams, pieces float64
	switch amt.kind {
	case amountGrams:
		grams = amt.value
	case amountPieces, amountServings:
		pieces = amt.value
	case amountAuto:
		if amt.value <= autoPieceLimit {
			pieces = amt.value
		} else {
			grams = amt.value
		}
	}

	if pieces > 0 {
		if d.ServingGrams <= 0 {
			d.Pieces = pieces
			t.sess.State = session.StateCollectingServing
			t.say("How many grams is one piece of %s?", d.Label)
			return nil
		}
		grams = pieces * d.ServingGrams
	}

	if grams <= 0 || grams > ledger.MaxGrams {
		t.sess.State = session.StateCollectingQuantity
		t.say("That amount does not look right. Grams up to 5000, or a piece count.")
		return nil
	}
	d.Grams = grams
	askConfirm(t)
	return nil
}

func (e *Engine) stepServing(ctx context.Context, t *turn) error {
	d := t.sess.Food
	if d == nil {
		lostTrack(t)
		return nil
	}
	v, ok := parseNumber(t.text)
	if !ok || v <= 0 || v > ledger.MaxServingGrams {
		t.say("Grams per piece, 1..2000. E.g. \"55\" for an egg.")
		return nil
	}
	d.ServingGrams = v
	grams := d.Pieces * v
	if grams > ledger.MaxGrams {
		t.sess.State = session.StateCollectingQuantity
		t.say("That totals over 5000 g. How much is it really?")
		return nil
	}
	d.Grams = grams
	askConfirm(t)
	return nil
}

func askConfirm(t *turn) {
	d := t.sess.Food
	kcal, protein, fat, carb := draftTotals(d)
	t.sess.State = session.StateConfirmingEntry
	t.say(renderEntryPreview(d.Label, d.Grams, kcal, protein, fat, carb))
}

func (e *Engine) stepConfirmEntry(ctx context.Context, t *turn) error {
	d := t.sess.Food
	if d == nil {
		lostTrack(t)
		return nil
	}
	switch {
	case isAffirmative(t.text):
		return e.recordDraft(ctx, t, d)
	case isNegative(t.text):
		t.sess.Reset()
		t.say("Discarded.")
		return nil
	default:
		t.say("Please answer yes or no, or /cancel.")
		return nil
	}
}

func (e *Engine) recordDraft(ctx context.Context, t *turn, d *session.FoodDraft) error {
	kcal, protein, fat, carb := draftTotals(d)
	entry := domain.FoodEntry{
		Label:    d.Label,
		Calories: round1(kcal),
		ProteinG: round1(protein),
		FatG:     round1(fat),
		CarbG:    round1(carb),
		Grams:    d.Grams,
		LoggedAt: t.at,
	}
	if _, err := e.ledger.RecordEntry(ctx, t.userID, entry); err != nil {
		if domain.IsValidation(err) {
			t.sess.Reset()
			t.say("That entry did not pass validation (%v). Start over with /food.", err)
			return nil
		}
		return err
	}
	e.rememberFood(ctx, t, d)
	t.sess.Reset()
	t.say("Logged %s, %s kcal.", d.Label, fmtNum(round1(kcal)))
	return e.sayDaySummary(ctx, t, "Today")
}

// rememberFood teaches the catalog as a side effect of logging: brand-new
// foods are saved whole, and a serving size learned mid-flow is kept on a
// personal copy of the catalog item. Failures only cost the memo, never
// the logged entry.
func (e *Engine) rememberFood(ctx context.Context, t *turn, d *session.FoodDraft) {
	learnedServing := d.FromCatalog && d.Pieces > 0 && d.ServingGrams > 0
	if d.FromCatalog && !learnedServing {
		return
	}
	item := domain.CatalogItem{
		Key:           d.Key,
		Name:          d.Label,
		KcalPer100:    d.KcalPer100,
		ProteinPer100: d.ProteinPer100,
		FatPer100:     d.FatPer100,
		CarbPer100:    d.CarbPer100,
	}
	if d.ServingGrams > 0 {
		s := d.ServingGrams
		item.ServingGrams = &s
	}
	if _, err := e.ledger.SaveCatalogItem(ctx, t.userID, item); err != nil {
		logger.Warn(ctx, component, "engine.catalog_memo_failed",
			slog.Int64("user_id", t.userID),
			slog.String("key", item.Key),
			slog.String("err", err.Error()),
		)
	}
}

func (e *Engine) stepConfirmUndo(ctx context.Context, t *turn) error {
	switch {
	case isAffirmative(t.text):
		removed, err := e.ledger.UndoLast(ctx, t.userID)
		if err != nil {
			if errors.Is(err, domain.ErrNoEntries) {
				t.sess.Reset()
				t.say("Nothing to undo.")
				return nil
			}
			return err
		}
		t.sess.Reset()
		t.say("Removed %s (%s kcal).", removed.Label, fmtNum(removed.Calories))
		return e.sayDaySummary(ctx, t, "Today")
	case isNegative(t.text):
		t.sess.Reset()
		t.say("Kept it.")
		return nil
	default:
		t.say("Please answer yes or no, or /cancel.")
		return nil
	}
}

func (e *Engine) stepRangeQuery(ctx context.Context, t *turn) error {
	p, err := e.profileFor(ctx, t)
	if err != nil {
		return err
	}
	start, end, ok := parseRange(t.text, localDay(t, p))
	if !ok {
		t.say("Send a number of days (1..365), \"week\", \"month\", or two dates like \"2025-06-01 2025-06-07\".")
		return nil
	}
	aggs, err := e.ledger.RangeTotals(ctx, t.userID, start, end)
	if err != nil {
		return err
	}
	t.sess.Reset()
	t.say(renderTrend(aggs))
	return nil
}

func (e *Engine) stepActivityKind(ctx context.Context, t *turn) error {
	kind := strings.TrimSpace(t.text)
	if len([]rune(kind)) < 2 {
		t.say("What workout was it? E.g. run, bike, yoga.")
		return nil
	}
	t.sess.Activity = &session.ActivityDraft{Kind: kind}
	t.sess.State = session.StateCollectingActivityMinutes
	t.say("How many minutes?")
	return nil
}

func (e *Engine) stepActivityMinutes(ctx context.Context, t *turn) error {
	d := t.sess.Activity
	if d == nil {
		lostTrack(t)
		return nil
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(t.text))
	if err != nil || minutes < 1 || minutes > ledger.MaxWorkoutMin {
		t.say("Minutes as a whole number, 1..1000.")
		return nil
	}
	return e.logActivity(ctx, t, d.Kind, minutes)
}

// logActivity is shared by the flow and the /workout fast path.
func (e *Engine) logActivity(ctx context.Context, t *turn, kind string, minutes int) error {
	entry, err := e.ledger.RecordActivity(ctx, t.userID, kind, minutes, t.at)
	if err != nil {
		if domain.IsValidation(err) {
			t.sess.Reset()
			t.say("Could not log that workout (%v).", err)
			return nil
		}
		return err
	}
	t.sess.Reset()
	if entry.BurnedKcal > 0 {
		t.say("Logged %s, %d min, ~%s kcal burned.", entry.Kind, entry.Minutes, fmtNum(entry.BurnedKcal))
	} else {
		t.say("Logged %s, %d min. Set your weight (/profile weight) and I will estimate the burn.", entry.Kind, entry.Minutes)
	}
	if extra := calc.WorkoutExtraWaterML(minutes); extra > 0 {
		t.say("That adds %d ml to today's water goal.", extra)
	}
	return e.sayDaySummary(ctx, t, "Today")
}

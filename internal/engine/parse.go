package engine

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/m3rciful/nutrobot/internal/domain"
)

// amountKind tells how a parsed food amount is meant. Auto is a bare
// number whose meaning depends on context: small counts read as pieces,
// anything larger as grams.
type amountKind int

const (
	amountAuto amountKind = iota
	amountGrams
	amountPieces
	amountServings
)

// autoPieceLimit is the largest bare number still read as a piece count.
const autoPieceLimit = 10

type amount struct {
	kind  amountKind
	value float64
}

// Milliliters count as grams, close enough for logged food and exact for
// water.
var unitWords = map[string]amountKind{
	"g": amountGrams, "gr": amountGrams, "gram": amountGrams, "grams": amountGrams,
	"ml": amountGrams, "milliliter": amountGrams, "milliliters": amountGrams,
	"pc": amountPieces, "pcs": amountPieces, "piece": amountPieces, "pieces": amountPieces,
	"serving": amountServings, "servings": amountServings, "portion": amountServings, "portions": amountServings,
}

// parseNumber accepts both dot and comma decimals.
func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseAmount understands "150g", "150 g", "2 pcs", "1.5 servings" and
// bare numbers.
func parseAmount(s string) (amount, bool) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	switch len(fields) {
	case 1:
		tok := fields[0]
		if v, ok := parseNumber(tok); ok {
			if v <= 0 {
				return amount{}, false
			}
			return amount{kind: amountAuto, value: v}, true
		}
		// Glued form like "150g": split the trailing unit off the number.
		runes := []rune(tok)
		cut := len(runes)
		for cut > 0 && unicode.IsLetter(runes[cut-1]) {
			cut--
		}
		if cut == 0 || cut == len(runes) {
			return amount{}, false
		}
		kind, ok := unitWords[string(runes[cut:])]
		if !ok {
			return amount{}, false
		}
		v, ok := parseNumber(string(runes[:cut]))
		if !ok || v <= 0 {
			return amount{}, false
		}
		return amount{kind: kind, value: v}, true
	case 2:
		kind, ok := unitWords[fields[1]]
		if !ok {
			return amount{}, false
		}
		v, ok := parseNumber(fields[0])
		if !ok || v <= 0 {
			return amount{}, false
		}
		return amount{kind: kind, value: v}, true
	}
	return amount{}, false
}

// splitFoodAndAmount takes the amount off the end of a free-text food
// line, trying the last two tokens ("150 g") before the last one ("150g",
// bare number). Whatever remains is the food name.
func splitFoodAndAmount(text string) (string, amount, bool) {
	tokens := strings.Fields(strings.TrimSpace(text))
	if len(tokens) >= 3 {
		if a, ok := parseAmount(strings.Join(tokens[len(tokens)-2:], " ")); ok {
			return strings.Join(tokens[:len(tokens)-2], " "), a, true
		}
	}
	if len(tokens) >= 2 {
		if a, ok := parseAmount(tokens[len(tokens)-1]); ok {
			return strings.Join(tokens[:len(tokens)-1], " "), a, true
		}
	}
	return strings.Join(tokens, " "), amount{}, false
}

// parseMacros reads "250" or "250 10 5 30" as kcal and optional
// protein/fat/carb grams per 100 g.
func parseMacros(s string) (kcal, protein, fat, carb float64, ok bool) {
	parts := strings.Fields(s)
	if len(parts) != 1 && len(parts) != 4 {
		return 0, 0, 0, 0, false
	}
	nums := make([]float64, 0, 4)
	for _, p := range parts {
		v, good := parseNumber(p)
		if !good || v < 0 {
			return 0, 0, 0, 0, false
		}
		nums = append(nums, v)
	}
	kcal = nums[0]
	if len(nums) == 4 {
		protein, fat, carb = nums[1], nums[2], nums[3]
	}
	return kcal, protein, fat, carb, true
}

// parseTZOffset reads "+3", "-5:30", "utc+2" or a plain hour number into
// an offset in minutes. Range checking is the profile validator's job.
func parseTZOffset(s string) (int, bool) {
	t := strings.ToLower(strings.TrimSpace(s))
	t = strings.TrimPrefix(t, "utc")
	t = strings.TrimPrefix(t, "gmt")
	t = strings.TrimSpace(t)
	if t == "" {
		return 0, false
	}
	sign := 1
	switch t[0] {
	case '+':
		t = t[1:]
	case '-':
		sign = -1
		t = t[1:]
	}
	if t == "" {
		return 0, false
	}
	if h, m, found := strings.Cut(t, ":"); found {
		hh, err1 := strconv.Atoi(h)
		mm, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil || hh < 0 || mm < 0 || mm > 59 {
			return 0, false
		}
		return sign * (hh*60 + mm), true
	}
	v, ok := parseNumber(t)
	if !ok || v < 0 {
		return 0, false
	}
	return sign * int(math.Round(v*60)), true
}

// dayLayouts are the date formats users actually type in chats.
var dayLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2/1/2006",
}

// parseDayText reads one calendar date and pins it to a civil day.
func parseDayText(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dayLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return domain.DayOf(t, 0), true
		}
	}
	return time.Time{}, false
}

// rangeWords are shortcuts for common trend windows.
var rangeWords = map[string]int{
	"week":  7,
	"month": 30,
}

// parseRange turns trend arguments into an inclusive day range: a day
// count ("7" = the last seven days ending today), a shortcut word, one
// date, or two dates.
func parseRange(text string, today time.Time) (start, end time.Time, ok bool) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	switch len(fields) {
	case 1:
		n := rangeWords[fields[0]]
		if n == 0 {
			if v, err := strconv.Atoi(fields[0]); err == nil {
				n = v
			}
		}
		if n != 0 {
			if n < 1 || n > maxTrendDays {
				return time.Time{}, time.Time{}, false
			}
			return today.AddDate(0, 0, -(n - 1)), today, true
		}
		if d, good := parseDayText(fields[0]); good {
			return d, d, true
		}
	case 2:
		d1, ok1 := parseDayText(fields[0])
		d2, ok2 := parseDayText(fields[1])
		if ok1 && ok2 && !d2.Before(d1) {
			return d1, d2, true
		}
	}
	return time.Time{}, time.Time{}, false
}

var yesWords = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true,
	"ok": true, "sure": true, "confirm": true, "+": true,
}

var noWords = map[string]bool{
	"no": true, "n": true, "nope": true, "-": true,
}

func isAffirmative(s string) bool { return yesWords[strings.ToLower(strings.TrimSpace(s))] }

func isNegative(s string) bool { return noWords[strings.ToLower(strings.TrimSpace(s))] }

// isCancelText matches the cancel command and its bare-word form. Checked
// before any state parsing so a stuck flow is always escapable.
func isCancelText(s string) bool {
	t := strings.ToLower(strings.TrimSpace(s))
	return t == "/cancel" || t == "cancel"
}

// splitCommand separates "/food banana 150g" into the command name and
// its argument tail, dropping an @botname suffix from group chats.
func splitCommand(text string) (name, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, tail, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	head = strings.ToLower(strings.TrimSpace(head))
	if head == "" {
		return "", "", false
	}
	return head, strings.TrimSpace(tail), true
}

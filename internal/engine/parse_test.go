package engine

import (
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in    string
		kind  amountKind
		value float64
		ok    bool
	}{
		{"150g", amountGrams, 150, true},
		{"150 g", amountGrams, 150, true},
		{"330ml", amountGrams, 330, true},
		{"2", amountAuto, 2, true},
		{"2 pcs", amountPieces, 2, true},
		{"3 pieces", amountPieces, 3, true},
		{"1,5 servings", amountServings, 1.5, true},
		{"0.5 portion", amountServings, 0.5, true},
		{"abc", 0, 0, false},
		{"-5", 0, 0, false},
		{"0", 0, 0, false},
		{"150 bananas", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tc := range cases {
		a, ok := parseAmount(tc.in)
		if ok != tc.ok {
			t.Errorf("parseAmount(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && (a.kind != tc.kind || a.value != tc.value) {
			t.Errorf("parseAmount(%q) = %v/%v, want %v/%v", tc.in, a.kind, a.value, tc.kind, tc.value)
		}
	}
}

func TestSplitFoodAndAmount(t *testing.T) {
	cases := []struct {
		in      string
		name    string
		kind    amountKind
		value   float64
		hasAmt  bool
	}{
		{"cottage cheese 150 g", "cottage cheese", amountGrams, 150, true},
		{"banana 150g", "banana", amountGrams, 150, true},
		{"eggs 2", "eggs", amountAuto, 2, true},
		{"banana", "banana", 0, 0, false},
		{"mystery soup", "mystery soup", 0, 0, false},
		{"rice 2 servings", "rice", amountServings, 2, true},
	}
	for _, tc := range cases {
		name, a, ok := splitFoodAndAmount(tc.in)
		if name != tc.name || ok != tc.hasAmt {
			t.Errorf("splitFoodAndAmount(%q) = %q/%v, want %q/%v", tc.in, name, ok, tc.name, tc.hasAmt)
			continue
		}
		if ok && (a.kind != tc.kind || a.value != tc.value) {
			t.Errorf("splitFoodAndAmount(%q) amount = %v/%v, want %v/%v", tc.in, a.kind, a.value, tc.kind, tc.value)
		}
	}
}

func TestParseMacros(t *testing.T) {
	if kcal, _, _, _, ok := parseMacros("250"); !ok || kcal != 250 {
		t.Errorf("single number: kcal=%v ok=%v", kcal, ok)
	}
	kcal, p, f, c, ok := parseMacros("165 31 3,6 0")
	if !ok || kcal != 165 || p != 31 || f != 3.6 || c != 0 {
		t.Errorf("four numbers: %v %v %v %v ok=%v", kcal, p, f, c, ok)
	}
	for _, bad := range []string{"250 10", "a b c d", "", "-10"} {
		if _, _, _, _, ok := parseMacros(bad); ok {
			t.Errorf("parseMacros(%q) unexpectedly ok", bad)
		}
	}
}

func TestParseTZOffset(t *testing.T) {
	cases := []struct {
		in  string
		min int
		ok  bool
	}{
		{"+3", 180, true},
		{"-5:30", -330, true},
		{"utc+2", 120, true},
		{"UTC-4", -240, true},
		{"0", 0, true},
		{"2.5", 150, true},
		{"x", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		min, ok := parseTZOffset(tc.in)
		if ok != tc.ok || (ok && min != tc.min) {
			t.Errorf("parseTZOffset(%q) = %d/%v, want %d/%v", tc.in, min, ok, tc.min, tc.ok)
		}
	}
}

func TestParseRange(t *testing.T) {
	today := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	start, end, ok := parseRange("7", today)
	if !ok || !end.Equal(today) || !start.Equal(today.AddDate(0, 0, -6)) {
		t.Errorf("days: %v..%v ok=%v", start, end, ok)
	}
	start, end, ok = parseRange("week", today)
	if !ok || !start.Equal(today.AddDate(0, 0, -6)) {
		t.Errorf("week: %v..%v ok=%v", start, end, ok)
	}
	start, end, ok = parseRange("2025-06-01 2025-06-07", today)
	if !ok || !start.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) ||
		!end.Equal(time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("dates: %v..%v ok=%v", start, end, ok)
	}
	start, end, ok = parseRange("01.06.2025", today)
	if !ok || !start.Equal(end) || !start.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("single date: %v..%v ok=%v", start, end, ok)
	}
	for _, bad := range []string{"400", "0", "2025-06-07 2025-06-01", "soon", ""} {
		if _, _, ok := parseRange(bad, today); ok {
			t.Errorf("parseRange(%q) unexpectedly ok", bad)
		}
	}
}

func TestSplitCommand(t *testing.T) {
	name, args, ok := splitCommand("/food banana 150g")
	if !ok || name != "food" || args != "banana 150g" {
		t.Errorf("got %q/%q/%v", name, args, ok)
	}
	name, _, ok = splitCommand("/start@nutrobot")
	if !ok || name != "start" {
		t.Errorf("mention strip: %q/%v", name, ok)
	}
	if _, _, ok := splitCommand("hello"); ok {
		t.Error("plain text misread as a command")
	}
}

func TestKeywords(t *testing.T) {
	for _, yes := range []string{"yes", "Yes", " y ", "ok", "+"} {
		if !isAffirmative(yes) {
			t.Errorf("isAffirmative(%q) = false", yes)
		}
	}
	for _, no := range []string{"no", "N", "nope", "-"} {
		if !isNegative(no) {
			t.Errorf("isNegative(%q) = false", no)
		}
	}
	if isAffirmative("yesterday") || isNegative("none") {
		t.Error("prefix words must not count as answers")
	}
	if !isCancelText("/cancel") || !isCancelText("Cancel") || isCancelText("cancellation") {
		t.Error("cancel keyword matching wrong")
	}
}

package domain

import "time"

// Real-world UTC offsets span -12:00 to +14:00. Query windows are widened
// by these bounds before the precise per-entry day filter runs.
const (
	MinTZOffsetMin = -12 * 60
	MaxTZOffsetMin = 14 * 60
)

const dayLayout = "2006-01-02"

// DayOf maps an instant to the civil day it belongs to under the given
// offset. Days are normalized to midnight UTC so they compare with Equal
// and iterate with AddDate. The offset is the one captured on the entry,
// which is what keeps historical entries on their original day after a
// profile timezone edit.
func DayOf(t time.Time, offsetMin int) time.Time {
	local := t.UTC().Add(time.Duration(offsetMin) * time.Minute)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDay renders a civil day as YYYY-MM-DD.
func FormatDay(d time.Time) string { return d.Format(dayLayout) }

// ParseDay parses a YYYY-MM-DD civil day into its midnight-UTC form.
func ParseDay(s string) (time.Time, error) {
	d, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return d.UTC(), nil
}

// DaysBetween counts civil days from start to end inclusive. Both
// arguments must be DayOf-normalized; midnight UTC days are exactly 24h
// apart, so the division is exact.
func DaysBetween(start, end time.Time) int {
	return int(end.Sub(start)/(24*time.Hour)) + 1
}

package timecalc

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the day-granularity format used by the remote API.
const DateLayout = "2006-01-02"

// HourStep is the rounding step for durations: five minutes.
const HourStep = 1.0 / 12

// FormatHours formats fractional hours as "2h 30m". Minutes are zero padded.
func FormatHours(hours float64) string {
	total := int64(math.Round(hours * 60))
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%dh %02dm", total/60, total%60)
}

// RoundToStep rounds hours to the nearest HourStep, floored at zero.
// The result is trimmed to four decimals so 1/12 multiples print cleanly.
func RoundToStep(hours float64) float64 {
	rounded := math.Round(hours/HourStep) * HourStep
	if rounded < 0 {
		rounded = 0
	}
	return math.Round(rounded*1e4) / 1e4
}

// ParseDate parses a YYYY-MM-DD string as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", value, err)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ShiftDate moves a YYYY-MM-DD date by the given number of days.
func ShiftDate(value string, days int) (string, error) {
	t, err := ParseDate(value, time.UTC)
	if err != nil {
		return "", err
	}
	return FormatDate(t.AddDate(0, 0, days)), nil
}

// WeekRange returns the Monday and Sunday of the ISO week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	// Go's weekday: Sunday=0, Monday=1, …, Saturday=6
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // treat Sunday as 7 (ISO)
	}
	monday := t.AddDate(0, 0, -(wd - 1))
	monday = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
	sunday := monday.AddDate(0, 0, 6)
	sunday = time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 23, 59, 59, 0, t.Location())
	return monday, sunday
}

// ISOWeekLabel returns a label like "2026-W09".
func ISOWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable millisecond of the same day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

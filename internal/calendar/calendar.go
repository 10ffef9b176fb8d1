// Package calendar turns calendar events of one day into suggested time
// entries. Events come from a Source: an iCalendar feed, a CalDAV server or
// Outlook (see package msgraph).
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Tiliavir/tick-tracker/internal/model"
	"github.com/Tiliavir/tick-tracker/internal/timecalc"
)

const (
	// FallbackTitle names events without a usable title.
	FallbackTitle = "Calendar Event"
	// NotePrefix starts every suggested note.
	NotePrefix = "Meeting: "
	// SubtitlePrefix starts every suggestion subtitle.
	SubtitlePrefix = "Suggested from calendar • "
)

// Event is a single calendar occurrence. Zero Start or End means the source
// did not provide it.
type Event struct {
	ID     string
	Title  string
	Start  time.Time
	End    time.Time
	AllDay bool
}

// Source provides calendar events.
type Source interface {
	// Authorize reports whether events may be read. It must never start an
	// interactive flow.
	Authorize(ctx context.Context) (bool, error)
	// Events returns the occurrences overlapping [from, to].
	Events(ctx context.Context, from, to time.Time) ([]Event, error)
}

// None is the source used when no calendar is configured.
type None struct{}

// Authorize always denies access.
func (None) Authorize(context.Context) (bool, error) { return false, nil }

// Events returns nothing.
func (None) Events(context.Context, time.Time, time.Time) ([]Event, error) { return nil, nil }

// Suggestions reads the events of date (YYYY-MM-DD, local to loc) from src
// and turns them into suggestions. Without calendar access the result is
// empty and no error is returned.
func Suggestions(ctx context.Context, src Source, date string, loc *time.Location, log *slog.Logger) ([]model.Suggestion, error) {
	if log == nil {
		log = slog.Default()
	}
	ok, err := src.Authorize(ctx)
	if err != nil {
		log.Warn("calendar authorization failed", "error", err)
		return []model.Suggestion{}, nil
	}
	if !ok {
		log.Debug("calendar access not granted")
		return []model.Suggestion{}, nil
	}

	day, err := timecalc.ParseDate(date, loc)
	if err != nil {
		return nil, err
	}
	events, err := src.Events(ctx, timecalc.StartOfDay(day), timecalc.EndOfDay(day))
	if err != nil {
		return nil, fmt.Errorf("reading calendar events: %w", err)
	}
	log.Debug("calendar events loaded", "date", date, "count", len(events))
	return BuildSuggestions(events, date), nil
}

// BuildSuggestions filters events and maps them to suggestions for date,
// sorted by title.
func BuildSuggestions(events []Event, date string) []model.Suggestion {
	out := make([]model.Suggestion, 0, len(events))
	for _, ev := range events {
		if ev.Start.IsZero() || ev.End.IsZero() || ev.AllDay {
			continue
		}
		if strings.Contains(strings.ToLower(ev.Title), "birthday") {
			continue
		}

		raw := ev.End.Sub(ev.Start).Hours()
		if raw <= 0 {
			raw = 1
		}
		hours := timecalc.RoundToStep(raw)
		if hours == 0 {
			hours = timecalc.RoundToStep(timecalc.HourStep)
		}

		title := strings.TrimSpace(ev.Title)
		if title == "" {
			title = FallbackTitle
		}
		out = append(out, model.Suggestion{
			ID:       ev.ID + "-" + ev.Start.UTC().Format("2006-01-02T15:04:05.000Z"),
			Title:    title,
			Subtitle: SubtitlePrefix + timecalc.FormatHours(hours),
			Note:     NotePrefix + title,
			Hours:    hours,
			Date:     date,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// FilterExisting drops suggestions already booked: an entry on the same date
// carries the same note, compared trimmed and case-insensitively.
func FilterExisting(suggestions []model.Suggestion, entries []model.Entry) []model.Suggestion {
	booked := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if n := normalize(e.Notes); n != "" {
			booked[e.Date+"\x00"+n] = struct{}{}
		}
	}
	out := make([]model.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if _, ok := booked[s.Date+"\x00"+normalize(s.Note)]; ok {
			continue
		}
		out = append(out, s)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

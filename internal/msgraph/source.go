package msgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tiliavir/tick-tracker/internal/calendar"
)

// Source is the Outlook calendar as a calendar.Source.
type Source struct {
	Auth *Auth
	// Timezone is the IANA zone Graph reports times in. Empty means UTC.
	Timezone string
	Log      *slog.Logger

	// client overrides the authenticated client in tests.
	client *Client
}

// Authorize reports whether a token is stored. It never starts the device
// flow; a missing token is not an error.
func (s *Source) Authorize(context.Context) (bool, error) {
	if s.client != nil {
		return true, nil
	}
	_, err := s.Auth.LoadToken()
	if errors.Is(err, ErrNotLoggedIn) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Events returns the non-cancelled events overlapping [from, to].
func (s *Source) Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	client := s.client
	if client == nil {
		hc, err := s.Auth.HTTPClient(ctx)
		if err != nil {
			return nil, err
		}
		client = NewClient(hc)
	}

	raw, err := client.CalendarView(ctx, from, to, s.Timezone)
	if err != nil {
		return nil, err
	}
	log := s.Log
	if log == nil {
		log = slog.Default()
	}

	out := make([]calendar.Event, 0, len(raw))
	for _, ev := range raw {
		if ev.IsCancelled {
			continue
		}
		mapped, err := ToEvent(ev, s.Timezone)
		if err != nil {
			log.Debug("skipping outlook event", "subject", ev.Subject, "error", err)
			continue
		}
		out = append(out, mapped)
	}
	return out, nil
}

// ToEvent converts a Graph event. Missing times stay zero.
func ToEvent(ev CalendarEvent, timezone string) (calendar.Event, error) {
	out := calendar.Event{ID: ev.ID, Title: ev.Subject, AllDay: ev.IsAllDay}
	if ev.Start.DateTime != "" {
		t, err := parseGraphTime(ev.Start.DateTime, zoneOf(ev.Start, timezone))
		if err != nil {
			return calendar.Event{}, fmt.Errorf("parsing start time: %w", err)
		}
		out.Start = t
	}
	if ev.End.DateTime != "" {
		t, err := parseGraphTime(ev.End.DateTime, zoneOf(ev.End, timezone))
		if err != nil {
			return calendar.Event{}, fmt.Errorf("parsing end time: %w", err)
		}
		out.End = t
	}
	return out, nil
}

func zoneOf(v DateTimeZone, fallback string) string {
	if v.TimeZone != "" {
		return v.TimeZone
	}
	return fallback
}

// parseGraphTime parses a Graph API dateTime string in the given timezone.
// Graph returns times like "2026-02-27T09:00:00.0000000" without a zone suffix
// when a Prefer: outlook.timezone header is set.
func parseGraphTime(dt, tz string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, dt); err == nil {
		return t, nil
	}

	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.0000000",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, dt, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse graph time %q", dt)
}

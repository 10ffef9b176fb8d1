package calendar_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/tick-tracker/internal/calendar"
	"github.com/Tiliavir/tick-tracker/internal/logging"
)

const feed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//tick//test//EN
BEGIN:VEVENT
UID:standup
DTSTAMP:20240101T000000Z
DTSTART:20240108T090000Z
DTEND:20240108T091500Z
RRULE:FREQ=DAILY;BYDAY=MO,TU,WE,TH,FR
EXDATE:20240111T090000Z
SUMMARY:Standup
END:VEVENT
BEGIN:VEVENT
UID:standup
DTSTAMP:20240101T000000Z
RECURRENCE-ID:20240112T090000Z
DTSTART:20240112T100000Z
DTEND:20240112T103000Z
SUMMARY:Standup (moved)
END:VEVENT
BEGIN:VEVENT
UID:review
DTSTAMP:20240101T000000Z
DTSTART:20240110T130000Z
DTEND:20240110T143000Z
SUMMARY:Review
END:VEVENT
BEGIN:VEVENT
UID:holiday
DTSTAMP:20240101T000000Z
DTSTART;VALUE=DATE:20240110
DTEND;VALUE=DATE:20240111
SUMMARY:Holiday
END:VEVENT
BEGIN:VEVENT
UID:cancelled
DTSTAMP:20240101T000000Z
DTSTART:20240110T160000Z
DTEND:20240110T170000Z
STATUS:CANCELLED
SUMMARY:Dropped
END:VEVENT
END:VCALENDAR
`

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func day(d int) (time.Time, time.Time) {
	start := time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Millisecond)
}

func titles(t *testing.T, events []calendar.Event, date string) []string {
	t.Helper()
	var out []string
	for _, s := range calendar.BuildSuggestions(events, date) {
		out = append(out, s.Title)
	}
	return out
}

func TestParseICSExpandsRecurrence(t *testing.T) {
	from, to := day(10)
	events, err := calendar.ParseICS(crlf(feed), from, to, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, []string{"Review", "Standup"}, titles(t, events, "2024-01-10"))

	for _, ev := range events {
		if ev.Title == "Standup" {
			assert.True(t, ev.Start.Equal(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)))
			assert.Equal(t, 15*time.Minute, ev.End.Sub(ev.Start))
		}
	}
}

func TestParseICSHonoursExdate(t *testing.T) {
	from, to := day(11)
	events, err := calendar.ParseICS(crlf(feed), from, to, logging.Discard())
	require.NoError(t, err)
	assert.Empty(t, titles(t, events, "2024-01-11"))
}

func TestParseICSAppliesOverride(t *testing.T) {
	from, to := day(12)
	events, err := calendar.ParseICS(crlf(feed), from, to, logging.Discard())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Standup (moved)", events[0].Title)
	assert.True(t, events[0].Start.Equal(time.Date(2024, 1, 12, 10, 0, 0, 0, time.UTC)))
}

func TestParseICSEmpty(t *testing.T) {
	from, to := day(10)
	_, err := calendar.ParseICS(nil, from, to, logging.Discard())
	assert.Error(t, err)
}

func TestICSFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "work.ics")
	require.NoError(t, os.WriteFile(path, crlf(feed), 0o600))

	src := &calendar.ICS{Path: path, Log: logging.Discard()}
	ok, err := src.Authorize(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	got, err := calendar.Suggestions(context.Background(), src, "2024-01-10", time.UTC, logging.Discard())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Review", got[0].Title)
	assert.Equal(t, 1.5, got[0].Hours)
}

func TestICSMissingFileIsUnauthorized(t *testing.T) {
	src := &calendar.ICS{Path: filepath.Join(t.TempDir(), "missing.ics")}
	ok, err := src.Authorize(context.Background())
	assert.False(t, ok)
	assert.Error(t, err)

	got, err := calendar.Suggestions(context.Background(), src, "2024-01-10", time.UTC, logging.Discard())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestICSURLSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = io.WriteString(w, string(crlf(feed)))
	}))
	defer srv.Close()

	src := &calendar.ICS{URL: srv.URL, HTTPClient: srv.Client(), Log: logging.Discard()}
	from, to := day(10)
	events, err := src.Events(context.Background(), from, to)
	require.NoError(t, err)
	assert.Len(t, calendar.BuildSuggestions(events, "2024-01-10"), 2)
}

func TestICSURLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	src := &calendar.ICS{URL: srv.URL, HTTPClient: srv.Client()}
	from, to := day(10)
	_, err := src.Events(context.Background(), from, to)
	assert.ErrorContains(t, err, "410")
}

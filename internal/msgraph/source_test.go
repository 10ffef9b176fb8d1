package msgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Tiliavir/tick-tracker/internal/calendar"
	"github.com/Tiliavir/tick-tracker/internal/logging"
)

func makeEvent(id, subject, start, end string) CalendarEvent {
	return CalendarEvent{
		ID:      id,
		Subject: subject,
		Start:   DateTimeZone{DateTime: start, TimeZone: "UTC"},
		End:     DateTimeZone{DateTime: end, TimeZone: "UTC"},
	}
}

func TestToEvent(t *testing.T) {
	ev, err := ToEvent(makeEvent("ext-1", "Sprint Planning", "2026-02-27T09:00:00.0000000", "2026-02-27T10:30:00.0000000"), "")
	require.NoError(t, err)
	assert.Equal(t, "ext-1", ev.ID)
	assert.Equal(t, "Sprint Planning", ev.Title)
	assert.Equal(t, 90*time.Minute, ev.End.Sub(ev.Start))
	assert.True(t, ev.Start.Equal(time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)))
}

func TestCalendarEventDecodesGraphPayload(t *testing.T) {
	raw := `{"value":[{"id":"a","subject":"Standup","isAllDay":false,"showAs":"free",
		"start":{"dateTime":"2026-02-27T09:00:00.0000000","timeZone":"UTC"},
		"end":{"dateTime":"2026-02-27T09:15:00.0000000","timeZone":"UTC"}}]}`
	var page calendarViewResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &page))
	require.Len(t, page.Value, 1)

	ev, err := ToEvent(page.Value[0], "")
	require.NoError(t, err)
	assert.Equal(t, "Standup", ev.Title)
	assert.Equal(t, 15*time.Minute, ev.End.Sub(ev.Start))
}

func TestToEventUsesZone(t *testing.T) {
	e := makeEvent("x", "Zoned", "2026-02-27T09:00:00", "2026-02-27T10:00:00")
	e.Start.TimeZone = ""
	e.End.TimeZone = ""
	ev, err := ToEvent(e, "Europe/Berlin")
	require.NoError(t, err)
	assert.Equal(t, 8, ev.Start.UTC().Hour())
}

func TestToEventBadTime(t *testing.T) {
	_, err := ToEvent(makeEvent("x", "Bad", "yesterday", "2026-02-27T10:00:00"), "UTC")
	assert.Error(t, err)
}

func TestParseGraphTime(t *testing.T) {
	tests := []struct {
		in   string
		tz   string
		want time.Time
	}{
		{"2026-02-27T09:00:00Z", "", time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)},
		{"2026-02-27T09:00:00+01:00", "", time.Date(2026, 2, 27, 8, 0, 0, 0, time.UTC)},
		{"2026-02-27T09:00:00.0000000", "UTC", time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)},
		{"2026-02-27T09:00:00", "Not/AZone", time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseGraphTime(tt.in, tt.tz)
		if err != nil {
			t.Fatalf("parseGraphTime(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseGraphTime(%q, %q) = %v, want %v", tt.in, tt.tz, got, tt.want)
		}
	}
}

func graphServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/calendarView", r.URL.Path)
		assert.Equal(t, `outlook.timezone="UTC"`, r.Header.Get("Prefer"))
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Query().Get("page") == "2" {
			allDay := makeEvent("e3", "Offsite", "2026-02-27T00:00:00", "2026-02-28T00:00:00")
			allDay.IsAllDay = true
			_ = json.NewEncoder(w).Encode(calendarViewResponse{Value: []CalendarEvent{allDay}})
			return
		}
		cancelled := makeEvent("e2", "Cancelled", "2026-02-27T11:00:00", "2026-02-27T12:00:00")
		cancelled.IsCancelled = true
		_ = json.NewEncoder(w).Encode(calendarViewResponse{
			Value: []CalendarEvent{
				makeEvent("e1", "Review", "2026-02-27T09:00:00.0000000", "2026-02-27T10:30:00.0000000"),
				cancelled,
			},
			NextLink: srv.URL + "/me/calendarView?page=2",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSourceEvents(t *testing.T) {
	srv := graphServer(t)
	src := &Source{
		Timezone: "UTC",
		Log:      logging.Discard(),
		client:   NewClient(srv.Client()).WithBaseURL(srv.URL),
	}

	from := time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)
	events, err := src.Events(context.Background(), from, from.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2, "cancelled events are dropped")
	assert.Equal(t, "e1", events[0].ID)
	assert.True(t, events[1].AllDay)

	got := calendar.BuildSuggestions(events, "2026-02-27")
	require.Len(t, got, 1)
	assert.Equal(t, "Review", got[0].Title)
	assert.Equal(t, 1.5, got[0].Hours)
}

func TestCalendarViewError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"InvalidAuthenticationToken"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.Client()).WithBaseURL(srv.URL)
	_, err := c.CalendarView(context.Background(), time.Now(), time.Now().Add(time.Hour), "")
	assert.ErrorContains(t, err, "graph API error 401")
}

func TestAuthorizeWithoutToken(t *testing.T) {
	src := &Source{Auth: &Auth{TenantID: "common", ClientID: "id", Dir: t.TempDir()}}
	ok, err := src.Authorize(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = src.Events(context.Background(), time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestTokenRoundTrip(t *testing.T) {
	auth := &Auth{TenantID: "common", ClientID: "id", Dir: t.TempDir()}
	tok := &oauth2.Token{AccessToken: "at", TokenType: "Bearer", RefreshToken: "rt", Expiry: time.Now().Add(time.Hour)}
	require.NoError(t, auth.SaveToken(tok))

	info, err := os.Stat(auth.TokenPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := auth.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "at", loaded.AccessToken)
	assert.Equal(t, "rt", loaded.RefreshToken)

	ok, err := (&Source{Auth: auth}).Authorize(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, auth.Logout())
	_, err = auth.LoadToken()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	require.NoError(t, auth.Logout(), "logout twice is fine")
}

func TestCorruptTokenIsAnError(t *testing.T) {
	auth := &Auth{Dir: t.TempDir()}
	require.NoError(t, os.MkdirAll(auth.Dir+"/auth", 0o700))
	require.NoError(t, os.WriteFile(auth.TokenPath(), []byte("{nope"), 0o600))

	_, err := auth.LoadToken()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotLoggedIn)

	ok, err := (&Source{Auth: auth}).Authorize(context.Background())
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestHTTPClientSendsStoredToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"value":[]}`))
	}))
	defer srv.Close()

	auth := &Auth{TenantID: "common", ClientID: "id", Dir: t.TempDir()}
	require.NoError(t, auth.SaveToken(&oauth2.Token{AccessToken: "stored", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}))

	hc, err := auth.HTTPClient(context.Background())
	require.NoError(t, err)
	_, err = NewClient(hc).WithBaseURL(srv.URL).CalendarView(context.Background(), time.Now(), time.Now(), "")
	require.NoError(t, err)
	assert.Equal(t, "Bearer stored", got)
}

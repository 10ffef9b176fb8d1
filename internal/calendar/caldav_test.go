package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/tick-tracker/internal/logging"
)

func TestCalDAVAuthorize(t *testing.T) {
	ok, err := (&CalDAV{URL: "https://dav.example.com", Username: "alice"}).Authorize(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "missing password")

	ok, err = (&CalDAV{URL: "https://dav.example.com", Username: "alice", Password: "pw"}).Authorize(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBasicAuthTransport(t *testing.T) {
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
	}))
	defer srv.Close()

	client := &http.Client{Transport: &basicAuthTransport{username: "alice", password: "pw", base: http.DefaultTransport}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "alice", user)
	assert.Equal(t, "pw", pass)
}

func TestEncodedCalDAVObjectParses(t *testing.T) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//tick//test//EN")

	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, "planning-1")
	ev.Props.SetText(ical.PropSummary, "Planning")
	ev.Props.SetDateTime(ical.PropDateTimeStamp, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ev.Props.SetDateTime(ical.PropDateTimeStart, time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC))
	ev.Props.SetDateTime(ical.PropDateTimeEnd, time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC))
	cal.Children = append(cal.Children, ev.Component)

	body, err := encodeCalendar(cal)
	require.NoError(t, err)

	from := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	events, err := ParseICS(body, from, from.Add(24*time.Hour-time.Millisecond), logging.Discard())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "planning-1", events[0].ID)
	assert.Equal(t, time.Hour, events[0].End.Sub(events[0].Start))
}

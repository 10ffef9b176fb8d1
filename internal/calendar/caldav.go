package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

// CalDAV reads events from a CalDAV server using basic auth.
type CalDAV struct {
	URL      string
	Username string
	Password string
	// Calendar is the collection path. Empty means the first calendar of
	// the current user.
	Calendar string
	// Transport carries the requests. Default: http.DefaultTransport.
	Transport http.RoundTripper
	Log       *slog.Logger

	once    sync.Once
	client  *caldav.Client
	connErr error
}

// Authorize reports whether a server and credentials are configured.
func (s *CalDAV) Authorize(context.Context) (bool, error) {
	return s.URL != "" && s.Username != "" && s.Password != "", nil
}

func (s *CalDAV) connect() (*caldav.Client, error) {
	s.once.Do(func() {
		base := s.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		httpClient := &http.Client{
			Transport: &basicAuthTransport{username: s.Username, password: s.Password, base: base},
			Timeout:   30 * time.Second,
		}
		s.client, s.connErr = caldav.NewClient(httpClient, s.URL)
		if s.connErr != nil {
			s.connErr = fmt.Errorf("connect to CalDAV: %w", s.connErr)
		}
	})
	return s.client, s.connErr
}

// basicAuthTransport adds basic auth to every request.
type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}

func (s *CalDAV) calendarPath(ctx context.Context, client *caldav.Client) (string, error) {
	if s.Calendar != "" {
		return s.Calendar, nil
	}
	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("find principal: %w", err)
	}
	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("find home set: %w", err)
	}
	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("find calendars: %w", err)
	}
	if len(cals) == 0 {
		return "", errors.New("no calendars found")
	}
	s.Calendar = cals[0].Path
	return s.Calendar, nil
}

// Events queries VEVENTs overlapping [from, to]. Recurring objects are
// expanded locally, the same way as iCalendar feeds.
func (s *CalDAV) Events(ctx context.Context, from, to time.Time) ([]Event, error) {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	client, err := s.connect()
	if err != nil {
		return nil, err
	}
	path, err := s.calendarPath(ctx, client)
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: from.UTC(),
				End:   to.UTC(),
			}},
		},
	}
	objects, err := client.QueryCalendar(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}

	var out []Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		body, err := encodeCalendar(obj.Data)
		if err != nil {
			log.Debug("skipping caldav object", "path", obj.Path, "error", err)
			continue
		}
		events, err := ParseICS(body, from, to, log)
		if err != nil {
			log.Debug("skipping caldav object", "path", obj.Path, "error", err)
			continue
		}
		out = append(out, events...)
	}
	return out, nil
}

func encodeCalendar(cal *ical.Calendar) ([]byte, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
)

// maxOccurrences caps the expansion of one recurring event.
const maxOccurrences = 1000

// ICS reads events from an iCalendar file or subscription URL. Recurring
// events are expanded with their RRULE and EXDATE properties.
type ICS struct {
	Path string
	URL  string
	// HTTPClient fetches URL. Default: a client with a 30s timeout.
	HTTPClient *http.Client
	Log        *slog.Logger
}

// Authorize reports whether a readable file or a URL is configured.
func (s *ICS) Authorize(context.Context) (bool, error) {
	if s.Path != "" {
		if _, err := os.Stat(s.Path); err != nil {
			return false, fmt.Errorf("ics file: %w", err)
		}
		return true, nil
	}
	return s.URL != "", nil
}

// Events parses the feed and returns the occurrences overlapping [from, to].
func (s *ICS) Events(ctx context.Context, from, to time.Time) ([]Event, error) {
	body, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return ParseICS(body, from, to, s.logger())
}

func (s *ICS) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

func (s *ICS) fetch(ctx context.Context) ([]byte, error) {
	if s.Path != "" {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, fmt.Errorf("reading ics file: %w", err)
		}
		return data, nil
	}
	if s.URL == "" {
		return nil, errors.New("no ics path or url configured")
	}

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	// webcal:// subscriptions are plain https.
	u := s.URL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating ics request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching ics feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching ics feed: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// vevent is a parsed VEVENT before recurrence expansion.
type vevent struct {
	uid       string
	summary   string
	start     time.Time
	end       time.Time
	allDay    bool
	cancelled bool
	rrule     string
	exdates   []time.Time
	// recurrenceID is set on overrides of a single recurring instance.
	recurrenceID *time.Time
}

// ParseICS parses body and expands its events into occurrences overlapping
// [from, to]. Malformed events are logged and skipped.
func ParseICS(body []byte, from, to time.Time, log *slog.Logger) ([]Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ics body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing ics: %w", err)
	}

	var (
		base      []vevent
		overrides = map[string][]vevent{}
	)
	for _, comp := range cal.Events() {
		ev, err := parseVEvent(comp, from.Location())
		if err != nil {
			log.Debug("skipping ics event", "error", err)
			continue
		}
		if ev.recurrenceID != nil {
			overrides[ev.uid] = append(overrides[ev.uid], ev)
			continue
		}
		base = append(base, ev)
	}

	var out []Event
	for _, ev := range base {
		out = append(out, expand(ev, overrides[ev.uid], from, to, log)...)
	}
	return out, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (vevent, error) {
	var out vevent
	p := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if p == nil || p.Value == "" {
		return out, errors.New("missing UID")
	}
	out.uid = p.Value
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		out.cancelled = strings.EqualFold(strings.TrimSpace(p.Value), "CANCELLED")
	}

	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if !strings.Contains(p.Value, "T") {
			out.allDay = true
		}
		if vs := p.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.allDay = true
		}
	}
	// Unparsable times stay zero and the event is dropped later.
	out.start, _ = ve.GetStartAt()
	out.end, _ = ve.GetEndAt()

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.rrule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		tz := firstParam(p.ICalParameters, "TZID")
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, tz, loc); err == nil {
				out.exdates = append(out.exdates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := parseICSTime(p.Value, firstParam(p.ICalParameters, "TZID"), loc); err == nil {
			out.recurrenceID = &t
		}
	}
	return out, nil
}

func firstParam(params map[string][]string, name string) string {
	if vs := params[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// parseICSTime parses DATE and DATE-TIME values. Floating times use tzid when
// it names a known zone, loc otherwise.
func parseICSTime(v, tzid string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
		}
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}

// expand returns the occurrences of ev overlapping [from, to], with
// overrides replacing the instance their RECURRENCE-ID points at.
func expand(ev vevent, overrides []vevent, from, to time.Time, log *slog.Logger) []Event {
	if ev.rrule == "" {
		if ev.cancelled || !overlaps(ev.start, ev.end, from, to) {
			return nil
		}
		return []Event{ev.event(ev.start)}
	}
	if ev.start.IsZero() {
		return nil
	}

	r, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		log.Debug("skipping ics event with bad RRULE", "uid", ev.uid, "rrule", ev.rrule, "error", err)
		return nil
	}
	r.DTStart(ev.start)
	set := &rrule.Set{}
	set.RRule(r)
	for _, ex := range ev.exdates {
		set.ExDate(ex.In(ev.start.Location()))
	}

	// Widen the window by the event length so occurrences that started
	// before from but are still running are included.
	dur := ev.end.Sub(ev.start)
	if dur < 0 {
		dur = 0
	}
	starts := set.Between(from.Add(-dur).In(ev.start.Location()), to.In(ev.start.Location()), true)
	if len(starts) > maxOccurrences {
		starts = starts[:maxOccurrences]
	}

	var out []Event
	for _, start := range starts {
		occ := ev
		occ.start = start
		occ.end = start.Add(dur)
		for _, o := range overrides {
			if o.recurrenceID != nil && o.recurrenceID.Equal(start) {
				occ = o
				break
			}
		}
		if occ.cancelled || !overlaps(occ.start, occ.end, from, to) {
			continue
		}
		out = append(out, occ.event(start))
	}
	return out
}

// event converts an occurrence. The id carries the instance start so
// occurrences of one series stay distinct.
func (v vevent) event(instance time.Time) Event {
	id := v.uid
	if v.rrule != "" || v.recurrenceID != nil {
		id = fmt.Sprintf("%s/%d", v.uid, instance.Unix())
	}
	return Event{ID: id, Title: v.summary, Start: v.start, End: v.end, AllDay: v.allDay}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aStart.IsZero() || aEnd.IsZero() {
		return false
	}
	return aEnd.After(bStart) && !aStart.After(bEnd)
}

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Tiliavir/tick-tracker/internal/reminder"
)

// DefaultPollInterval is how often the daemon checks for a changed schedule.
const DefaultPollInterval = time.Minute

// Daemon fires stored triggers on their weekday and time. The trigger set
// is reloaded whenever the stored state changes.
type Daemon struct {
	store *Store
	sinks []Sink
	log   *slog.Logger
	poll  time.Duration

	cron *cron.Cron

	mu      sync.Mutex
	sig     string
	entries []cron.EntryID
}

// NewDaemon builds a daemon that schedules in loc.
func NewDaemon(store *Store, sinks []Sink, loc *time.Location, log *slog.Logger) *Daemon {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Daemon{
		store: store,
		sinks: sinks,
		log:   log,
		poll:  DefaultPollInterval,
		cron:  cron.New(cron.WithLocation(loc)),
	}
}

// WithPollInterval overrides DefaultPollInterval.
func (d *Daemon) WithPollInterval(p time.Duration) *Daemon {
	d.poll = p
	return d
}

// CronSpec is the weekly cron expression for t, e.g. "30 17 * * 5".
func CronSpec(t reminder.Trigger) (string, error) {
	if !reminder.IsValidTime(t.Time) {
		return "", fmt.Errorf("invalid trigger time %q", t.Time)
	}
	if t.Weekday < time.Sunday || t.Weekday > time.Saturday {
		return "", fmt.Errorf("invalid trigger weekday %d", t.Weekday)
	}
	hh, _ := strconv.Atoi(t.Time[:2])
	mm, _ := strconv.Atoi(t.Time[3:])
	return fmt.Sprintf("%d %d * * %d", mm, hh, int(t.Weekday)), nil
}

func signature(triggers []reminder.Trigger) string {
	ids := make([]string, 0, len(triggers))
	for _, t := range triggers {
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// Reload replaces the cron jobs with the stored triggers when they changed.
// It returns the number of scheduled jobs.
func (d *Daemon) Reload(ctx context.Context) (int, error) {
	st, err := d.store.Load(ctx)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	sig := signature(st.Triggers)
	if sig == d.sig && d.entries != nil {
		return len(d.entries), nil
	}

	for _, id := range d.entries {
		d.cron.Remove(id)
	}
	d.entries = make([]cron.EntryID, 0, len(st.Triggers))
	for _, t := range st.Triggers {
		t := t
		spec, err := CronSpec(t)
		if err != nil {
			d.log.Warn("skipping reminder trigger", "id", t.ID, "error", err)
			continue
		}
		id, err := d.cron.AddFunc(spec, func() {
			if err := d.Fire(context.Background(), t); err != nil {
				d.log.Warn("reminder delivery failed", "id", t.ID, "error", err)
			}
		})
		if err != nil {
			d.log.Warn("skipping reminder trigger", "id", t.ID, "spec", spec, "error", err)
			continue
		}
		d.entries = append(d.entries, id)
	}
	d.sig = sig
	d.log.Info("reminders loaded", "count", len(d.entries))
	return len(d.entries), nil
}

// Fire delivers t to every sink. All sinks are tried even if one fails.
func (d *Daemon) Fire(ctx context.Context, t reminder.Trigger) error {
	var errs []error
	for _, s := range d.sinks {
		if err := s.Send(ctx, t.Title, t.Body); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Next returns the next firing time, or zero when nothing is scheduled.
func (d *Daemon) Next() time.Time {
	var next time.Time
	for _, e := range d.cron.Entries() {
		if !e.Next.IsZero() && (next.IsZero() || e.Next.Before(next)) {
			next = e.Next
		}
	}
	return next
}

// Run schedules the stored triggers and blocks until ctx is done, picking
// up schedule changes every poll interval.
func (d *Daemon) Run(ctx context.Context) error {
	if _, err := d.Reload(ctx); err != nil {
		return err
	}
	d.cron.Start()
	defer func() { <-d.cron.Stop().Done() }()

	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := d.Reload(ctx); err != nil {
				d.log.Warn("reloading reminders failed", "error", err)
			}
		}
	}
}

// Package reminder turns the reminder settings into concrete weekly
// notification triggers for Monday through Friday.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// ChannelID identifies the notification channel for weekday reminders.
	ChannelID = "tickspot-reminders"
	// ChannelName is the human readable channel name.
	ChannelName = "Tick Reminders"
	// Message is both title and body of every reminder.
	Message = "Enter ticks"
	// RepeatWeekly is the only repeat frequency used.
	RepeatWeekly = "weekly"
)

// Weekdays are the days reminders fire on.
var Weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// ErrPermissionDenied is returned by Configure when the notifier refuses
// to deliver notifications.
var ErrPermissionDenied = errors.New("notification permission denied")

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// Schedule is the reminder part of the user settings.
type Schedule struct {
	Enabled bool
	Times   []string
}

// Channel describes a notification channel.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Trigger is one scheduled notification. At is the first firing; after that
// it repeats every week on the same weekday and time.
type Trigger struct {
	ID        string       `json:"id"`
	ChannelID string       `json:"channel_id"`
	Title     string       `json:"title"`
	Body      string       `json:"body"`
	Weekday   time.Weekday `json:"weekday"`
	Time      string       `json:"time"`
	At        time.Time    `json:"at"`
	Repeat    string       `json:"repeat"`
}

// Notifier is the device notification scheduler.
type Notifier interface {
	RequestPermission(ctx context.Context) (bool, error)
	CreateChannel(ctx context.Context, ch Channel) error
	CancelAll(ctx context.Context) error
	CreateTrigger(ctx context.Context, t Trigger) error
}

// IsValidTime reports whether value is a zero-padded 24h HH:MM time.
func IsValidTime(value string) bool {
	return timePattern.MatchString(value)
}

// NormalizeTimes drops invalid times, removes duplicates and sorts the rest.
// Lexical order equals chronological order for zero-padded HH:MM. The
// result is never nil.
func NormalizeTimes(times []string) []string {
	seen := make(map[string]bool, len(times))
	out := make([]string, 0, len(times))
	for _, t := range times {
		if !IsValidTime(t) || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Key identifies a schedule after normalization. Callers compare keys to
// skip rescheduling when nothing changed.
func Key(s Schedule) string {
	return fmt.Sprintf("%t-%s", s.Enabled, strings.Join(NormalizeTimes(s.Times), ","))
}

func parseTime(value string) (hour, minute int) {
	parts := strings.SplitN(value, ":", 2)
	hour, _ = strconv.Atoi(parts[0])
	if len(parts) == 2 {
		minute, _ = strconv.Atoi(parts[1])
	}
	return hour, minute
}

// NextWeekdayOccurrence returns the next instant strictly after now that
// falls on weekday at hour:minute in now's location.
func NextWeekdayOccurrence(weekday time.Weekday, hour, minute int, now time.Time) time.Time {
	delta := (int(weekday) - int(now.Weekday()) + 7) % 7
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if delta == 0 && !candidate.After(now) {
		delta = 7
	}
	return candidate.AddDate(0, 0, delta)
}

// TriggerID is the deterministic id for a weekday/time pair.
func TriggerID(weekday time.Weekday, value string) string {
	return fmt.Sprintf("tickspot-%d-%s", int(weekday), value)
}

// Plan computes the triggers for s relative to now. A disabled schedule or
// one without valid times yields no triggers.
func Plan(s Schedule, now time.Time) []Trigger {
	if !s.Enabled {
		return nil
	}
	times := NormalizeTimes(s.Times)
	if len(times) == 0 {
		return nil
	}

	triggers := make([]Trigger, 0, len(Weekdays)*len(times))
	for _, wd := range Weekdays {
		for _, t := range times {
			hour, minute := parseTime(t)
			triggers = append(triggers, Trigger{
				ID:        TriggerID(wd, t),
				ChannelID: ChannelID,
				Title:     Message,
				Body:      Message,
				Weekday:   wd,
				Time:      t,
				At:        NextWeekdayOccurrence(wd, hour, minute, now),
				Repeat:    RepeatWeekly,
			})
		}
	}
	return triggers
}

// Configure replaces every scheduled reminder with the triggers planned for
// s. Old triggers are always cancelled first, so repeated calls with the
// same input leave the same trigger set behind.
func Configure(ctx context.Context, n Notifier, s Schedule, now time.Time) error {
	triggers := Plan(s, now)
	if len(triggers) == 0 {
		if err := n.CancelAll(ctx); err != nil {
			return fmt.Errorf("cancelling reminders: %w", err)
		}
		return nil
	}

	granted, err := n.RequestPermission(ctx)
	if err != nil {
		return fmt.Errorf("requesting notification permission: %w", err)
	}
	if !granted {
		return ErrPermissionDenied
	}
	if err := n.CreateChannel(ctx, Channel{ID: ChannelID, Name: ChannelName}); err != nil {
		return fmt.Errorf("creating notification channel: %w", err)
	}
	if err := n.CancelAll(ctx); err != nil {
		return fmt.Errorf("cancelling reminders: %w", err)
	}
	for _, t := range triggers {
		if err := n.CreateTrigger(ctx, t); err != nil {
			return fmt.Errorf("scheduling reminder %s: %w", t.ID, err)
		}
	}
	return nil
}

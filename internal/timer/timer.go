// Package timer keeps one locally running stopwatch. Stopping it books the
// elapsed time as one entry per calendar day.
package timer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Tiliavir/tick-tracker/internal/timecalc"
)

// StorageKey is the kv key holding the running timer.
const StorageKey = "tick.timer.v1"

// ErrNotRunning is returned by Stop when no timer is active.
var ErrNotRunning = errors.New("no active timer")

// KV is the subset of the store used by the timer.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Timer is a running stopwatch for one task.
type Timer struct {
	TaskID    *int64    `json:"task_id"`
	ProjectID *int64    `json:"project_id,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Started   time.Time `json:"started"`
}

// Elapsed is the time since the timer started.
func (t Timer) Elapsed(now time.Time) time.Duration {
	if now.Before(t.Started) {
		return 0
	}
	return now.Sub(t.Started)
}

// Segment is the share of a timer that falls on one date.
type Segment struct {
	Date  string
	Hours float64
	// Start is where the segment begins: the timer start or a midnight.
	Start time.Time
}

// Booker books one segment of t as an entry.
type Booker func(ctx context.Context, t Timer, seg Segment) error

// Active returns the running timer, if any.
func Active(ctx context.Context, kv KV) (Timer, bool, error) {
	raw, ok, err := kv.Get(ctx, StorageKey)
	if err != nil || !ok {
		return Timer{}, false, err
	}
	var t Timer
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return Timer{}, false, fmt.Errorf("corrupt timer state: %w", err)
	}
	return t, true, nil
}

// Start stores t as the running timer and returns the one it replaced.
func Start(ctx context.Context, kv KV, t Timer) (prev *Timer, err error) {
	old, ok, err := Active(ctx, kv)
	if err != nil {
		// A corrupt record is overwritten.
		ok = false
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	if err := kv.Set(ctx, StorageKey, string(data)); err != nil {
		return nil, err
	}
	if ok {
		return &old, nil
	}
	return nil, nil
}

// Stop removes the running timer and returns it.
func Stop(ctx context.Context, kv KV) (Timer, error) {
	t, ok, err := Active(ctx, kv)
	if err != nil {
		return Timer{}, err
	}
	if !ok {
		return Timer{}, ErrNotRunning
	}
	if err := kv.Delete(ctx, StorageKey); err != nil {
		return Timer{}, err
	}
	return t, nil
}

// Split divides [start, stop) at local midnights. Hours are rounded to the
// five minute step; segments that round to zero are dropped.
func Split(start, stop time.Time) []Segment {
	var out []Segment
	for cur := start; cur.Before(stop); {
		next := timecalc.StartOfDay(cur).AddDate(0, 0, 1)
		if next.After(stop) {
			next = stop
		}
		if h := timecalc.RoundToStep(next.Sub(cur).Hours()); h > 0 {
			out = append(out, Segment{Date: timecalc.FormatDate(cur), Hours: h, Start: cur})
		}
		cur = next
	}
	return out
}

// Book books t up to stop, one segment at a time. On failure it returns
// the unbooked rest of t, restarted at the failed segment, so days already
// booked are never booked twice.
func Book(ctx context.Context, t Timer, stop time.Time, book Booker) (booked int, rest Timer, err error) {
	for _, seg := range Split(t.Started.In(stop.Location()), stop) {
		if err := book(ctx, t, seg); err != nil {
			rest = t
			rest.Started = seg.Start
			return booked, rest, err
		}
		booked++
	}
	return booked, Timer{}, nil
}

// Finish books the running timer up to stop and removes it. When booking
// fails the stored timer keeps only the unbooked part.
func Finish(ctx context.Context, kv KV, stop time.Time, book Booker) (Timer, int, error) {
	t, ok, err := Active(ctx, kv)
	if err != nil {
		return Timer{}, 0, err
	}
	if !ok {
		return Timer{}, 0, ErrNotRunning
	}
	booked, rest, err := Book(ctx, t, stop, book)
	if err != nil {
		if _, serr := Start(ctx, kv, rest); serr != nil {
			return t, booked, errors.Join(err, serr)
		}
		return t, booked, err
	}
	if err := kv.Delete(ctx, StorageKey); err != nil {
		return t, booked, err
	}
	return t, booked, nil
}

// Switch books the running timer, if any, up to next.Started and then
// starts next. next is only stored once the previous timer is fully booked.
func Switch(ctx context.Context, kv KV, next Timer, book Booker) (prev *Timer, err error) {
	old, ok, err := Active(ctx, kv)
	if err != nil {
		// A corrupt record is overwritten.
		ok = false
	}
	if ok {
		if _, _, err := Finish(ctx, kv, next.Started, book); err != nil {
			return &old, err
		}
	}
	if _, err := Start(ctx, kv, next); err != nil {
		return nil, err
	}
	if ok {
		return &old, nil
	}
	return nil, nil
}

// FormatElapsed renders d as "1h 2m 3s", dropping leading zero units.
func FormatElapsed(d time.Duration) string {
	seconds := int64(d / time.Second)
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

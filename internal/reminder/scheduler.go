package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler applies schedules to a Notifier and remembers the last applied
// key, so unchanged settings do not reschedule anything.
type Scheduler struct {
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	lastKey string
}

// NewScheduler returns a Scheduler using the wall clock.
func NewScheduler(n Notifier, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{notifier: n, log: log, now: time.Now}
}

// WithClock overrides the clock. Intended for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Apply configures reminders for sched unless the same schedule was applied
// last time. It reports whether anything was (re)scheduled. A failed apply
// does not record the key, so the next call retries.
func (s *Scheduler) Apply(ctx context.Context, sched Schedule) (bool, error) {
	key := Key(sched)

	s.mu.Lock()
	defer s.mu.Unlock()
	if key == s.lastKey {
		return false, nil
	}
	if err := Configure(ctx, s.notifier, sched, s.now()); err != nil {
		return false, err
	}
	s.lastKey = key
	s.log.Debug("reminders configured", "key", key)
	return true, nil
}

// Force reschedules even if the schedule is unchanged.
func (s *Scheduler) Force(ctx context.Context, sched Schedule) error {
	s.mu.Lock()
	s.lastKey = ""
	s.mu.Unlock()
	_, err := s.Apply(ctx, sched)
	return err
}

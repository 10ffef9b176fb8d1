// Package notify delivers weekday reminders. Store keeps the scheduled
// triggers in the local key-value store, and Daemon fires them through the
// configured sinks.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Tiliavir/tick-tracker/internal/reminder"
)

// TriggersKey is the storage key of the scheduled reminder state.
const TriggersKey = "tickspot.reminder-triggers.v1"

// KV is the subset of the local store used here.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// ErrCorruptState means the stored record is not valid JSON.
var ErrCorruptState = errors.New("corrupt reminder state")

// State is everything scheduled so far.
type State struct {
	Channels []reminder.Channel `json:"channels"`
	Triggers []reminder.Trigger `json:"triggers"`
}

// Store is a reminder.Notifier persisting triggers for the daemon.
type Store struct {
	kv    KV
	sinks []Sink

	mu sync.Mutex
}

var _ reminder.Notifier = (*Store)(nil)

// NewStore returns a Store. Permission is granted only when at least one
// sink is configured.
func NewStore(kv KV, sinks ...Sink) *Store {
	return &Store{kv: kv, sinks: sinks}
}

// Load returns the stored state. A missing record is an empty state; a
// corrupt one is reported together with an empty state.
func (s *Store) Load(ctx context.Context) (State, error) {
	raw, ok, err := s.kv.Get(ctx, TriggersKey)
	if err != nil || !ok {
		return State{}, err
	}
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return st, nil
}

func (s *Store) save(ctx context.Context, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding reminder state: %w", err)
	}
	return s.kv.Set(ctx, TriggersKey, string(data))
}

// update applies fn to the stored state. A corrupt record is replaced.
func (s *Store) update(ctx context.Context, fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.Load(ctx)
	if err != nil && !errors.Is(err, ErrCorruptState) {
		return err
	}
	fn(&st)
	return s.save(ctx, st)
}

// RequestPermission grants delivery when a sink is configured.
func (s *Store) RequestPermission(context.Context) (bool, error) {
	return len(s.sinks) > 0, nil
}

// CreateChannel records ch. Existing channels are updated in place.
func (s *Store) CreateChannel(ctx context.Context, ch reminder.Channel) error {
	return s.update(ctx, func(st *State) {
		for i := range st.Channels {
			if st.Channels[i].ID == ch.ID {
				st.Channels[i] = ch
				return
			}
		}
		st.Channels = append(st.Channels, ch)
	})
}

// CancelAll removes every scheduled trigger.
func (s *Store) CancelAll(ctx context.Context) error {
	return s.update(ctx, func(st *State) { st.Triggers = nil })
}

// CreateTrigger schedules t, replacing a trigger with the same id.
func (s *Store) CreateTrigger(ctx context.Context, t reminder.Trigger) error {
	return s.update(ctx, func(st *State) {
		for i := range st.Triggers {
			if st.Triggers[i].ID == t.ID {
				st.Triggers[i] = t
				return
			}
		}
		st.Triggers = append(st.Triggers, t)
	})
}

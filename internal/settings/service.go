package settings

import (
	"context"
	"log/slog"
	"sync"
)

// Listener is called with the new settings after every successful save or
// reload that changed them.
type Listener func(Settings)

// Service owns the in-memory settings snapshot. Screens receive the service
// instead of a global and subscribe to changes.
type Service struct {
	kv  KV
	log *slog.Logger

	mu        sync.RWMutex
	current   Settings
	ready     bool
	listeners map[int]Listener
	nextID    int
}

// NewService returns a service holding defaults until Reload is called.
func NewService(kv KV, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		kv:        kv,
		log:       log,
		current:   Defaults(),
		listeners: map[int]Listener{},
	}
}

// Current returns the current snapshot.
func (s *Service) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Ready reports whether settings were loaded at least once.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Reload reads the stored record. Load failures never block startup: the
// service falls back to defaults and the error is only logged.
func (s *Service) Reload(ctx context.Context) Settings {
	loaded, err := Load(ctx, s.kv)
	if err != nil {
		s.log.Warn("settings load failed, using defaults", "error", err)
	}
	s.set(loaded, true)
	return loaded
}

// Save persists next as a whole snapshot (last writer wins) and notifies
// subscribers. The in-memory snapshot changes only after the write
// succeeded.
func (s *Service) Save(ctx context.Context, next Settings) (Settings, error) {
	saved, err := Save(ctx, s.kv, next)
	if err != nil {
		return s.Current(), err
	}
	s.set(saved, true)
	return saved, nil
}

// Subscribe registers l and returns a function removing it.
func (s *Service) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) set(next Settings, ready bool) {
	s.mu.Lock()
	changed := !s.ready || !Equal(s.current, next)
	s.current = next
	s.ready = ready
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, l := range listeners {
		l(next)
	}
}

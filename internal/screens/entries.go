package screens

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Tiliavir/tick-tracker/internal/calendar"
	"github.com/Tiliavir/tick-tracker/internal/model"
	"github.com/Tiliavir/tick-tracker/internal/settings"
	"github.com/Tiliavir/tick-tracker/internal/timecalc"
)

// MsgNoAPIKey is shown instead of entries until an API key is configured.
const MsgNoAPIKey = "Add an API key in Settings to load entries."

// ErrNoAPIKey is returned by Entries.Load without an API key.
var ErrNoAPIKey = errors.New(MsgNoAPIKey)

// ErrStale is returned when the date changed while a load was running. Its
// results were discarded.
var ErrStale = errors.New("load superseded by a newer one")

// View is what the entries screen shows for one date.
type View struct {
	Date        string
	Entries     []model.Entry
	Total       float64
	Ref         *RefData
	Suggestions []model.Suggestion
	// Err is the entries load error, if any. Reference data and calendar
	// failures are logged and leave the previous data in place.
	Err error
}

// Entries is the day screen: one date, its entries and suggestions.
type Entries struct {
	settings *settings.Service
	connect  Connector
	calendar calendar.Source
	loc      *time.Location
	log      *slog.Logger

	mu   sync.Mutex
	date string
	gen  uint64
	view View
}

// EntriesDeps are the collaborators of the entries screen.
type EntriesDeps struct {
	Settings *settings.Service
	Connect  Connector
	Calendar calendar.Source
	Location *time.Location
	Log      *slog.Logger
}

// NewEntries opens the screen on date.
func NewEntries(deps EntriesDeps, date string) *Entries {
	if deps.Connect == nil {
		deps.Connect = Connect
	}
	if deps.Calendar == nil {
		deps.Calendar = calendar.None{}
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	return &Entries{
		settings: deps.Settings,
		connect:  deps.Connect,
		calendar: deps.Calendar,
		loc:      deps.Location,
		log:      deps.Log,
		date:     date,
		view:     View{Date: date, Entries: []model.Entry{}, Ref: NewRefData(nil, nil, nil)},
	}
}

// Date is the date on screen.
func (e *Entries) Date() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.date
}

// View returns the last loaded view.
func (e *Entries) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// Shift moves the screen by days and invalidates running loads.
func (e *Entries) Shift(days int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := timecalc.ShiftDate(e.date, days)
	if err != nil {
		return e.date, err
	}
	e.setDateLocked(next)
	return next, nil
}

// SetDate jumps to date.
func (e *Entries) SetDate(date string) error {
	if _, err := timecalc.ParseDate(date, e.loc); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setDateLocked(date)
	return nil
}

func (e *Entries) setDateLocked(date string) {
	if date == e.date {
		return
	}
	e.date = date
	e.gen++
	e.view = View{Date: date, Entries: []model.Entry{}, Ref: e.view.Ref}
}

// Total sums the hours of the loaded entries.
func (e *Entries) Total() float64 {
	return Total(e.View().Entries)
}

// Total sums the hours of entries.
func Total(entries []model.Entry) float64 {
	var sum float64
	for _, en := range entries {
		sum += float64(en.Hours)
	}
	return sum
}

// Load fetches entries, reference data and calendar suggestions for the
// current date concurrently. Each part is applied on its own: failing
// reference data or calendar reads keep the previous values.
func (e *Entries) Load(ctx context.Context) (View, error) {
	s := e.settings.Current()

	e.mu.Lock()
	e.gen++
	gen, date := e.gen, e.date
	prev := e.view
	e.mu.Unlock()

	if !s.HasAPIKey() {
		v := View{Date: date, Entries: []model.Entry{}, Ref: prev.Ref, Err: ErrNoAPIKey}
		return v, e.apply(gen, v)
	}
	client, err := e.connect(s)
	if err != nil {
		v := View{Date: date, Entries: []model.Entry{}, Ref: prev.Ref, Err: err}
		return v, e.apply(gen, v)
	}

	var (
		entries     []model.Entry
		entriesErr  error
		projects    = prev.Ref.Projects
		tasks       = prev.Ref.Tasks
		clients     = prev.Ref.Clients
		suggestions []model.Suggestion
	)
	var g errgroup.Group
	g.Go(func() error {
		entries, entriesErr = client.EntriesByDate(ctx, date)
		return nil
	})
	g.Go(func() error {
		if v, err := client.Projects(ctx); err != nil {
			e.log.Warn("loading projects failed", "error", err)
		} else {
			projects = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := client.Tasks(ctx); err != nil {
			e.log.Warn("loading tasks failed", "error", err)
		} else {
			tasks = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := client.Clients(ctx); err != nil {
			e.log.Warn("loading clients failed", "error", err)
		} else {
			clients = v
		}
		return nil
	})
	g.Go(func() error {
		v, err := calendar.Suggestions(ctx, e.calendar, date, e.loc, e.log)
		if err != nil {
			e.log.Warn("loading calendar suggestions failed", "error", err)
			return nil
		}
		suggestions = v
		return nil
	})
	_ = g.Wait()

	if entries == nil {
		entries = []model.Entry{}
	}
	if suggestions == nil {
		suggestions = []model.Suggestion{}
	}
	v := View{
		Date:        date,
		Entries:     entries,
		Total:       Total(entries),
		Ref:         NewRefData(projects, tasks, clients),
		Suggestions: calendar.FilterExisting(suggestions, entries),
		Err:         entriesErr,
	}
	return v, e.apply(gen, v)
}

// apply stores v unless a newer load or date change happened meanwhile.
func (e *Entries) apply(gen uint64, v View) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return ErrStale
	}
	e.view = v
	return nil
}

// Delete removes an entry and reloads the screen.
func (e *Entries) Delete(ctx context.Context, id int64) (View, error) {
	client, err := e.connect(e.settings.Current())
	if err != nil {
		return e.View(), err
	}
	if err := client.DeleteEntry(ctx, id); err != nil {
		return e.View(), err
	}
	return e.Load(ctx)
}

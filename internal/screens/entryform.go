package screens

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Tiliavir/tick-tracker/internal/meetings"
	"github.com/Tiliavir/tick-tracker/internal/model"
	"github.com/Tiliavir/tick-tracker/internal/settings"
	"github.com/Tiliavir/tick-tracker/internal/timecalc"
)

// FormDeps are the collaborators of the entry form.
type FormDeps struct {
	Settings *settings.Service
	Connect  Connector
	// Memory remembers tasks booked for meeting notes. Optional.
	Memory *meetings.Memory
	Log    *slog.Logger
}

// EntryForm creates or edits one entry.
type EntryForm struct {
	deps    FormDeps
	editing *model.Entry

	Date      string
	Hours     float64
	Notes     string
	TaskID    *int64
	ProjectID *int64
}

func (d FormDeps) withDefaults() FormDeps {
	if d.Connect == nil {
		d.Connect = Connect
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return d
}

// NewEntryForm starts a new entry on date (today when empty).
func NewEntryForm(deps FormDeps, date string) *EntryForm {
	if date == "" {
		date = timecalc.FormatDate(time.Now())
	}
	return &EntryForm{deps: deps.withDefaults(), Date: date}
}

// EditEntryForm edits an existing entry.
func EditEntryForm(deps FormDeps, e model.Entry) *EntryForm {
	hours := float64(e.Hours)
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		hours = 0
	}
	return &EntryForm{
		deps:      deps.withDefaults(),
		editing:   &e,
		Date:      e.Date,
		Hours:     hours,
		Notes:     e.Notes,
		TaskID:    e.TaskID,
		ProjectID: e.ProjectID,
	}
}

// Editing reports whether the form updates an existing entry.
func (f *EntryForm) Editing() bool {
	return f.editing != nil && f.editing.ID != 0
}

// Title is the form heading.
func (f *EntryForm) Title() string {
	if f.Editing() {
		return "Update Entry"
	}
	return "New Entry"
}

// FromSuggestion prefills the form from a calendar suggestion. The task is
// taken from the meeting memory when this meeting was booked before.
func (f *EntryForm) FromSuggestion(ctx context.Context, s model.Suggestion) {
	f.Date = s.Date
	f.Hours = s.Hours
	f.Notes = s.Note
	if f.deps.Memory == nil {
		return
	}
	taskID, ok, err := f.deps.Memory.TaskFor(ctx, s.Note)
	if err != nil {
		f.deps.Log.Warn("reading meeting memory failed", "error", err)
		return
	}
	if ok {
		f.TaskID = model.ID(taskID)
	}
}

// SelectTask sets the task and the project it belongs to.
func (f *EntryForm) SelectTask(ref *RefData, taskID int64) {
	f.TaskID = model.ID(taskID)
	f.ProjectID = ref.ProjectOf(taskID)
}

// ClearTask unsets task and project.
func (f *EntryForm) ClearTask() {
	f.TaskID = nil
	f.ProjectID = nil
}

// InferProject fills a missing project from the selected task.
func (f *EntryForm) InferProject(ref *RefData) {
	if f.ProjectID == nil && f.TaskID != nil {
		f.ProjectID = ref.ProjectOf(*f.TaskID)
	}
}

// Payload is the request body for the current form values.
func (f *EntryForm) Payload() model.EntryPayload {
	hours := f.Hours
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		hours = 0
	}
	return model.EntryPayload{
		Date:      f.Date,
		Hours:     hours,
		Notes:     strings.TrimSpace(f.Notes),
		TaskID:    f.TaskID,
		ProjectID: f.ProjectID,
	}
}

// Validate checks the form against the current settings.
func (f *EntryForm) Validate() error {
	if !f.deps.Settings.Current().HasAPIKey() {
		return &ValidationError{Title: "Missing API key", Message: "Add an API key in Settings before saving entries."}
	}
	p := f.Payload()
	if p.Date == "" || p.Hours < 0 || p.TaskID == nil {
		return &ValidationError{Title: "Missing fields", Message: "Please select a task and enter a valid time."}
	}
	if _, err := timecalc.ParseDate(p.Date, time.UTC); err != nil {
		return &ValidationError{Title: "Invalid date", Message: "Use the YYYY-MM-DD format."}
	}
	return nil
}

// Save creates or updates the entry. Meeting notes remember their task for
// the next suggestion of the same meeting.
func (f *EntryForm) Save(ctx context.Context) (model.Entry, error) {
	if err := f.Validate(); err != nil {
		return model.Entry{}, err
	}
	client, err := f.deps.Connect(f.deps.Settings.Current())
	if err != nil {
		return model.Entry{}, err
	}

	p := f.Payload()
	var saved model.Entry
	if f.Editing() {
		saved, err = client.UpdateEntry(ctx, f.editing.ID, p)
	} else {
		saved, err = client.CreateEntry(ctx, p)
	}
	if err != nil {
		return model.Entry{}, err
	}

	if f.deps.Memory != nil && p.TaskID != nil {
		if err := f.deps.Memory.Remember(ctx, p.Notes, *p.TaskID); err != nil {
			f.deps.Log.Warn("saving meeting memory failed", "error", err)
		}
	}
	return saved, nil
}

// Delete removes the edited entry.
func (f *EntryForm) Delete(ctx context.Context) error {
	if !f.Editing() {
		return errors.New("nothing to delete: entry was never saved")
	}
	client, err := f.deps.Connect(f.deps.Settings.Current())
	if err != nil {
		return err
	}
	return client.DeleteEntry(ctx, f.editing.ID)
}

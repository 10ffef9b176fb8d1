package screens

import (
	"context"
	"fmt"
	"strings"

	"github.com/Tiliavir/tick-tracker/internal/reminder"
	"github.com/Tiliavir/tick-tracker/internal/settings"
)

// Reminders reconfigures reminders after settings were saved.
// *reminder.Scheduler implements it.
type Reminders interface {
	Force(ctx context.Context, sched reminder.Schedule) error
}

// SettingsForm edits the stored settings.
type SettingsForm struct {
	APIKey          string
	BaseURL         string
	ReminderEnabled bool
	ReminderTimes   []string

	current settings.Settings
}

// NewSettingsForm starts from the current settings.
func NewSettingsForm(cur settings.Settings) *SettingsForm {
	return &SettingsForm{
		APIKey:          cur.APIKey,
		BaseURL:         cur.BaseURL,
		ReminderEnabled: cur.ReminderEnabled,
		ReminderTimes:   append([]string(nil), cur.ReminderTimes...),
		current:         cur,
	}
}

// AddTime appends a reminder time.
func (f *SettingsForm) AddTime(value string) {
	f.ReminderTimes = append(f.ReminderTimes, value)
}

// SetTime replaces the reminder time at i.
func (f *SettingsForm) SetTime(i int, value string) error {
	if i < 0 || i >= len(f.ReminderTimes) {
		return fmt.Errorf("no reminder time at position %d", i+1)
	}
	f.ReminderTimes[i] = value
	return nil
}

// RemoveTime drops the reminder time at i.
func (f *SettingsForm) RemoveTime(i int) error {
	if i < 0 || i >= len(f.ReminderTimes) {
		return fmt.Errorf("no reminder time at position %d", i+1)
	}
	f.ReminderTimes = append(f.ReminderTimes[:i], f.ReminderTimes[i+1:]...)
	return nil
}

// Next validates the form and returns the settings it would save.
func (f *SettingsForm) Next() (settings.Settings, error) {
	if strings.TrimSpace(f.APIKey) == "" {
		return settings.Settings{}, &ValidationError{Title: "Missing API key", Message: "Enter your Tick API key to continue."}
	}
	times := reminder.NormalizeTimes(f.ReminderTimes)
	if f.ReminderEnabled && len(times) == 0 {
		return settings.Settings{}, &ValidationError{Title: "Invalid reminder times", Message: "Add at least one time in HH:MM format."}
	}
	baseURL := strings.TrimSpace(f.BaseURL)
	if baseURL == "" {
		baseURL = f.current.BaseURL
	}
	return settings.Settings{
		APIKey:          strings.TrimSpace(f.APIKey),
		BaseURL:         baseURL,
		ReminderEnabled: f.ReminderEnabled,
		ReminderTimes:   times,
	}, nil
}

// Submit saves the settings and then reconfigures reminders. When only the
// reminder step fails, the saved settings are returned with the error.
func (f *SettingsForm) Submit(ctx context.Context, svc *settings.Service, rem Reminders) (settings.Settings, error) {
	next, err := f.Next()
	if err != nil {
		return settings.Settings{}, err
	}
	saved, err := svc.Save(ctx, next)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("saving settings: %w", err)
	}
	f.current = saved
	if rem != nil {
		if err := rem.Force(ctx, saved.Schedule()); err != nil {
			return saved, fmt.Errorf("configuring reminders: %w", err)
		}
	}
	return saved, nil
}

// Login stores an API key and base URL, keeping the other settings.
func Login(ctx context.Context, svc *settings.Service, apiKey, baseURL string) (settings.Settings, error) {
	apiKey, baseURL = strings.TrimSpace(apiKey), strings.TrimSpace(baseURL)
	if apiKey == "" {
		return settings.Settings{}, &ValidationError{Title: "Missing API key", Message: "Enter your Tick API key to continue."}
	}
	if baseURL == "" {
		return settings.Settings{}, &ValidationError{Title: "Missing login URL", Message: "Enter your Tick login URL to continue."}
	}
	next := svc.Current()
	next.APIKey = apiKey
	next.BaseURL = baseURL
	return svc.Save(ctx, next)
}

// WatchReminders keeps reminders in sync with the settings: the current
// schedule is applied now and again after every change. Unchanged schedules
// are skipped by the scheduler. It returns a function that stops watching.
func WatchReminders(ctx context.Context, svc *settings.Service, sched *reminder.Scheduler, onError func(error)) func() {
	apply := func(s settings.Settings) {
		if _, err := sched.Apply(ctx, s.Schedule()); err != nil && onError != nil {
			onError(err)
		}
	}
	unsubscribe := svc.Subscribe(apply)
	if svc.Ready() {
		apply(svc.Current())
	}
	return unsubscribe
}

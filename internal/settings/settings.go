// Package settings persists the user's account and reminder settings as one
// record in the local key-value store.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Tiliavir/tick-tracker/internal/reminder"
)

// StorageKey is the key the settings record is stored under.
const StorageKey = "tickspot.settings.v1"

// DefaultBaseURL is the API root used until the user picks another one.
const DefaultBaseURL = "https://www.tickspot.com/api/v2"

// DefaultReminderTimes are used when no reminder times were ever saved.
var DefaultReminderTimes = []string{"10:00", "17:00", "21:00"}

// Settings is the persisted settings record.
type Settings struct {
	APIKey          string   `json:"apiKey"`
	BaseURL         string   `json:"baseUrl"`
	ReminderEnabled bool     `json:"reminderEnabled"`
	ReminderTimes   []string `json:"reminderTimes"`
}

// Defaults returns a fresh default settings record.
func Defaults() Settings {
	return Settings{
		BaseURL:         DefaultBaseURL,
		ReminderEnabled: true,
		ReminderTimes:   append([]string(nil), DefaultReminderTimes...),
	}
}

// Schedule returns the reminder part of s.
func (s Settings) Schedule() reminder.Schedule {
	return reminder.Schedule{Enabled: s.ReminderEnabled, Times: s.ReminderTimes}
}

// HasAPIKey reports whether an API key is configured.
func (s Settings) HasAPIKey() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// Normalized returns a copy with trimmed credentials and normalized
// reminder times.
func (s Settings) Normalized() Settings {
	s.APIKey = strings.TrimSpace(s.APIKey)
	s.BaseURL = strings.TrimSpace(s.BaseURL)
	s.ReminderTimes = reminder.NormalizeTimes(s.ReminderTimes)
	return s
}

// Equal reports whether a and b hold the same values.
func Equal(a, b Settings) bool {
	if a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.ReminderEnabled != b.ReminderEnabled {
		return false
	}
	if len(a.ReminderTimes) != len(b.ReminderTimes) {
		return false
	}
	for i := range a.ReminderTimes {
		if a.ReminderTimes[i] != b.ReminderTimes[i] {
			return false
		}
	}
	return true
}

// KV is the subset of the key-value store used here.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// storedSettings mirrors Settings with optional fields, so a partially
// written record keeps defaults for whatever is missing.
type storedSettings struct {
	APIKey          *string         `json:"apiKey"`
	BaseURL         *string         `json:"baseUrl"`
	ReminderEnabled *bool           `json:"reminderEnabled"`
	ReminderTimes   json.RawMessage `json:"reminderTimes"`
}

// Decode parses a stored record. Missing fields take defaults; non-string
// reminder times are dropped. A record that is not a JSON object yields
// defaults and an error describing why.
func Decode(raw string) (Settings, error) {
	def := Defaults()
	var st storedSettings
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return def, fmt.Errorf("corrupt settings record: %w", err)
	}

	out := def
	if st.APIKey != nil {
		out.APIKey = *st.APIKey
	}
	if st.BaseURL != nil {
		out.BaseURL = *st.BaseURL
	}
	if st.ReminderEnabled != nil {
		out.ReminderEnabled = *st.ReminderEnabled
	}

	var items []any
	if len(st.ReminderTimes) > 0 && json.Unmarshal(st.ReminderTimes, &items) == nil && items != nil {
		out.ReminderTimes = make([]string, 0, len(items))
		for _, it := range items {
			if s, ok := it.(string); ok {
				out.ReminderTimes = append(out.ReminderTimes, s)
			}
		}
		out.ReminderTimes = reminder.NormalizeTimes(out.ReminderTimes)
	}
	return out, nil
}

// Load reads the settings record. A missing record yields defaults; a
// corrupt one yields defaults along with the decode error so callers can
// log it. Read failures of the store itself are returned with defaults.
func Load(ctx context.Context, kv KV) (Settings, error) {
	raw, ok, err := kv.Get(ctx, StorageKey)
	if err != nil {
		return Defaults(), err
	}
	if !ok || raw == "" {
		return Defaults(), nil
	}
	return Decode(raw)
}

// Save normalizes s and writes it as a whole.
func Save(ctx context.Context, kv KV, s Settings) (Settings, error) {
	s = s.Normalized()
	data, err := json.Marshal(s)
	if err != nil {
		return s, fmt.Errorf("encoding settings: %w", err)
	}
	if err := kv.Set(ctx, StorageKey, string(data)); err != nil {
		return s, err
	}
	return s, nil
}

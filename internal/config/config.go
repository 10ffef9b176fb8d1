package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for tick, stored in ~/.tick/config.yaml.
// Every key can be overridden by a TICK_ environment variable, e.g.
// TICK_LOG_LEVEL=debug or TICK_CALENDAR_SOURCE=ics.
//
// Config holds machine-level wiring only. The user's account settings
// (API key, base URL, reminder times) live in the settings store.
type Config struct {
	// DataDir holds the settings database and auth tokens.
	DataDir string `mapstructure:"data_dir"`
	// Timezone is the IANA zone used for day boundaries. Empty = local.
	Timezone string         `mapstructure:"timezone"`
	Log      LogConfig      `mapstructure:"log"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Outlook  OutlookConfig  `mapstructure:"outlook"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CalendarConfig selects where calendar suggestions come from.
type CalendarConfig struct {
	// Source is one of none, ics, caldav, outlook.
	Source string       `mapstructure:"source"`
	ICS    ICSConfig    `mapstructure:"ics"`
	CalDAV CalDAVConfig `mapstructure:"caldav"`
}

// ICSConfig points at an iCalendar file or subscription URL.
type ICSConfig struct {
	Path string `mapstructure:"path"`
	URL  string `mapstructure:"url"`
}

// CalDAVConfig holds CalDAV server credentials.
type CalDAVConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// Calendar is the calendar collection path. Empty = first calendar found.
	Calendar string `mapstructure:"calendar"`
}

// OutlookConfig holds Microsoft Graph / Outlook calendar settings.
type OutlookConfig struct {
	// TenantID is the Azure AD tenant. Use "common" for personal/multi-tenant accounts.
	TenantID string `mapstructure:"tenant_id"`
	// ClientID is the Azure app (client) ID for the OAuth2 device code flow.
	ClientID string `mapstructure:"client_id"`
}

// NotifyConfig selects where weekday reminders are delivered.
type NotifyConfig struct {
	Terminal bool           `mapstructure:"terminal"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig enables reminder delivery through a Telegram bot.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

const (
	// DefaultTenantID is the Microsoft "common" tenant.
	DefaultTenantID = "common"
	// DefaultClientID is the well-known public Azure CLI app ID.
	// It supports device code flow without a client secret.
	DefaultClientID = "04b07795-8542-4c4a-95af-30b2c573d5ab"
	// DefaultCalendarSource disables calendar suggestions.
	DefaultCalendarSource = "none"
)

// configTemplate is the annotated config written on first run.
const configTemplate = `# tick configuration – ~/.tick/config.yaml
#
# All settings are optional. Your API key, base URL and reminder times are
# managed with "tick login" and "tick settings", not in this file.

# Directory for the settings database and auth tokens. Default: ~/.tick
data_dir: ""

# IANA timezone for day boundaries, e.g. "Europe/Berlin". Empty = system zone.
timezone: ""

log:
  # debug, info, warn, error
  level: warn
  # text or json
  format: text

# ── Calendar suggestions ───────────────────────────────────────────────────
calendar:
  # none, ics, caldav or outlook
  source: none
  ics:
    # Local .ics file or subscription URL (one of both).
    path: ""
    url: ""
  caldav:
    url: ""
    username: ""
    password: ""
    # Calendar collection path; empty picks the first calendar.
    calendar: ""

# ── Microsoft Graph / Outlook (calendar.source: outlook) ────────────────────
outlook:
  tenant_id: common
  client_id: 04b07795-8542-4c4a-95af-30b2c573d5ab

# ── Reminder delivery ("tick reminders run") ───────────────────────────────
notify:
  terminal: true
  telegram:
    token: ""
    chat_id: 0
`

// DefaultPath returns the path to ~/.tick/config.yaml.
func DefaultPath() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultDataDir returns ~/.tick.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".tick"), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "")
	v.SetDefault("timezone", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("calendar.source", DefaultCalendarSource)
	v.SetDefault("calendar.ics.path", "")
	v.SetDefault("calendar.ics.url", "")
	v.SetDefault("calendar.caldav.url", "")
	v.SetDefault("calendar.caldav.username", "")
	v.SetDefault("calendar.caldav.password", "")
	v.SetDefault("calendar.caldav.calendar", "")
	v.SetDefault("outlook.tenant_id", DefaultTenantID)
	v.SetDefault("outlook.client_id", DefaultClientID)
	v.SetDefault("notify.terminal", true)
	v.SetDefault("notify.telegram.token", "")
	v.SetDefault("notify.telegram.chat_id", 0)
}

// Load reads the config file at path (DefaultPath when empty), creating it
// with annotated defaults on first run. Environment overrides apply even
// when the file is missing.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TICK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var warn error
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			warn = fmt.Errorf("could not create config file %s: %w", path, writeErr)
		}
	} else {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	// Fill zero-value fields so callers always get a usable Config even if
	// the user blanked them in the file.
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Dir(path)
	}
	if cfg.Calendar.Source == "" {
		cfg.Calendar.Source = DefaultCalendarSource
	}
	if cfg.Outlook.TenantID == "" {
		cfg.Outlook.TenantID = DefaultTenantID
	}
	if cfg.Outlook.ClientID == "" {
		cfg.Outlook.ClientID = DefaultClientID
	}
	return cfg, warn
}

// Location resolves the configured timezone, falling back to time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

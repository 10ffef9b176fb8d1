package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Tiliavir/tick-tracker/internal/api"
	"github.com/Tiliavir/tick-tracker/internal/calendar"
	"github.com/Tiliavir/tick-tracker/internal/config"
	"github.com/Tiliavir/tick-tracker/internal/logging"
	"github.com/Tiliavir/tick-tracker/internal/meetings"
	"github.com/Tiliavir/tick-tracker/internal/msgraph"
	"github.com/Tiliavir/tick-tracker/internal/notify"
	"github.com/Tiliavir/tick-tracker/internal/reminder"
	"github.com/Tiliavir/tick-tracker/internal/screens"
	"github.com/Tiliavir/tick-tracker/internal/settings"
	"github.com/Tiliavir/tick-tracker/internal/storage"
	"github.com/Tiliavir/tick-tracker/internal/timecalc"
)

var errNoLogin = errors.New("no API key configured, run \"tick login\" first")

// app holds everything a command needs, built once per invocation.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	loc      *time.Location
	store    *storage.Store
	settings *settings.Service
	memory   *meetings.Memory
	triggers *notify.Store
	sinks    []notify.Sink
	reminder *reminder.Scheduler
}

// openApp loads config, opens the local store and settings. Failures print
// to stderr and exit with code 2.
func openApp(ctx context.Context) *app {
	cfg, err := config.Load(configPath)
	if err != nil && cfg.DataDir == "" {
		exitErr(2, err)
	}
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	log := logging.Setup(logging.Options{Level: level, Format: cfg.Log.Format})
	if err != nil {
		log.Warn("config", "error", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Warn("falling back to local timezone", "error", err)
	}

	store, err := storage.Open(ctx, cfg.DataDir)
	if err != nil {
		exitErr(2, err)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		loc:      loc,
		store:    store,
		settings: settings.NewService(store, log),
		memory:   meetings.New(store),
	}
	a.settings.Reload(ctx)
	a.sinks = a.buildSinks()
	a.triggers = notify.NewStore(store, a.sinks...)
	a.reminder = reminder.NewScheduler(a.triggers, log)
	return a
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store", "error", err)
	}
}

// buildSinks returns the configured reminder sinks. Telegram connects on
// first use; a sink with incomplete settings is logged and left out.
func (a *app) buildSinks() []notify.Sink {
	var sinks []notify.Sink
	if a.cfg.Notify.Terminal {
		sinks = append(sinks, &notify.Terminal{Out: os.Stderr})
	}
	if tg := a.cfg.Notify.Telegram; tg.Token != "" {
		s, err := notify.NewTelegram(tg.Token, tg.ChatID)
		if err != nil {
			a.log.Warn("telegram reminders disabled", "error", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	return sinks
}

func (a *app) outlookAuth() *msgraph.Auth {
	return &msgraph.Auth{
		TenantID: a.cfg.Outlook.TenantID,
		ClientID: a.cfg.Outlook.ClientID,
		Dir:      a.cfg.DataDir,
		Log:      a.log,
	}
}

// calendarSource picks the suggestion source named in the config.
func (a *app) calendarSource() calendar.Source {
	c := a.cfg.Calendar
	switch c.Source {
	case "ics":
		return &calendar.ICS{Path: c.ICS.Path, URL: c.ICS.URL, Log: a.log}
	case "caldav":
		return &calendar.CalDAV{
			URL:      c.CalDAV.URL,
			Username: c.CalDAV.Username,
			Password: c.CalDAV.Password,
			Calendar: c.CalDAV.Calendar,
			Log:      a.log,
		}
	case "outlook":
		return &msgraph.Source{Auth: a.outlookAuth(), Timezone: graphZone(a.loc), Log: a.log}
	case "", config.DefaultCalendarSource:
		return calendar.None{}
	default:
		a.log.Warn("unknown calendar source, suggestions disabled", "source", c.Source)
		return calendar.None{}
	}
}

// client connects to the API with the stored settings. A missing API key
// exits with code 1.
func (a *app) client() *api.Client {
	s := a.settings.Current()
	if !s.HasAPIKey() {
		exitErr(1, errNoLogin)
	}
	c, err := api.New(s.BaseURL, s.APIKey)
	if err != nil {
		exitErr(2, err)
	}
	return c
}

func (a *app) entriesScreen(date string) *screens.Entries {
	return screens.NewEntries(screens.EntriesDeps{
		Settings: a.settings,
		Calendar: a.calendarSource(),
		Location: a.loc,
		Log:      a.log,
	}, date)
}

// formDepsFor returns entry form collaborators bound to client.
func (a *app) formDepsFor(client screens.API) screens.FormDeps {
	return screens.FormDeps{
		Settings: a.settings,
		Connect:  func(settings.Settings) (screens.API, error) { return client, nil },
		Memory:   a.memory,
		Log:      a.log,
	}
}

// today is the current date in the configured zone.
func (a *app) today() string {
	return timecalc.FormatDate(time.Now().In(a.loc))
}

// resolveDate validates a --date flag value, defaulting to today.
func (a *app) resolveDate(value string) string {
	if value == "" {
		return a.today()
	}
	if _, err := timecalc.ParseDate(value, a.loc); err != nil {
		exitErr(1, err)
	}
	return value
}

// exitErr prints err and exits: 1 for usage and validation errors, 2 for
// runtime failures.
func exitErr(code int, err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
}

// exitFor maps err to an exit code and exits.
func exitFor(err error) {
	if screens.IsValidation(err) {
		exitErr(1, err)
	}
	exitErr(2, err)
}

// graphZone names loc for the Graph Prefer header. The process-local zone
// has no IANA name, so it maps to "" and Graph answers in UTC.
func graphZone(loc *time.Location) string {
	if loc == nil || loc == time.Local || loc.String() == "Local" {
		return ""
	}
	return loc.String()
}

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/tick-tracker/internal/screens"
	"github.com/Tiliavir/tick-tracker/internal/settings"
)

var (
	settingsBaseURL    string
	settingsAPIKey     bool
	settingsReminders  string
	settingsTimes      []string
	settingsAddTime    []string
	settingsRemoveTime int
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change account and reminder settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored settings as YAML (API key masked)",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change settings and reschedule reminders",
	Example: `  tick settings set --reminders on --times 10:00,16:30
  tick settings set --add-time 12:00
  tick settings set --remove-time 2
  tick settings set --api-key`,
	Args: cobra.NoArgs,
	RunE: runSettingsSet,
}

func init() {
	settingsSetCmd.Flags().StringVar(&settingsBaseURL, "base-url", "", "API base URL")
	settingsSetCmd.Flags().BoolVar(&settingsAPIKey, "api-key", false, "Prompt for a new API key")
	settingsSetCmd.Flags().StringVar(&settingsReminders, "reminders", "", "Weekday reminders: on or off")
	settingsSetCmd.Flags().StringSliceVar(&settingsTimes, "times", nil, "Replace reminder times (HH:MM, comma separated)")
	settingsSetCmd.Flags().StringArrayVar(&settingsAddTime, "add-time", nil, "Add a reminder time (HH:MM)")
	settingsSetCmd.Flags().IntVar(&settingsRemoveTime, "remove-time", 0, "Remove the reminder time at this position (1-based)")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
}

// settingsView is the printable form of the settings.
type settingsView struct {
	APIKey          string   `yaml:"api_key"`
	BaseURL         string   `yaml:"base_url"`
	ReminderEnabled bool     `yaml:"reminders"`
	ReminderTimes   []string `yaml:"reminder_times"`
}

func maskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 4:
		return "****"
	default:
		return strings.Repeat("*", 8) + key[len(key)-4:]
	}
}

func showSettings(s settings.Settings) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(settingsView{
		APIKey:          maskKey(s.APIKey),
		BaseURL:         s.BaseURL,
		ReminderEnabled: s.ReminderEnabled,
		ReminderTimes:   s.ReminderTimes,
	})
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	a := openApp(cmd.Context())
	defer a.Close()
	return showSettings(a.settings.Current())
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	form := screens.NewSettingsForm(a.settings.Current())
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		form.BaseURL = settingsBaseURL
	}
	if settingsAPIKey {
		key, err := readSecret("Tick API key")
		if err != nil {
			exitErr(2, err)
		}
		form.APIKey = key
	}
	switch strings.ToLower(settingsReminders) {
	case "":
	case "on", "true", "yes":
		form.ReminderEnabled = true
	case "off", "false", "no":
		form.ReminderEnabled = false
	default:
		exitErr(1, fmt.Errorf("--reminders must be on or off, got %q", settingsReminders))
	}
	if flags.Changed("times") {
		form.ReminderTimes = settingsTimes
	}
	if flags.Changed("remove-time") {
		if err := form.RemoveTime(settingsRemoveTime - 1); err != nil {
			exitErr(1, err)
		}
	}
	for _, t := range settingsAddTime {
		form.AddTime(t)
	}

	saved, submitErr := form.Submit(ctx, a.settings, a.reminder)
	if submitErr != nil && saved.APIKey == "" {
		exitFor(submitErr)
	}
	if err := showSettings(saved); err != nil {
		exitErr(2, err)
	}
	if submitErr != nil {
		exitErr(2, fmt.Errorf("settings saved, but %w", submitErr))
	}
	return nil
}

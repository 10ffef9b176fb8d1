package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/tick-tracker/internal/notify"
	"github.com/Tiliavir/tick-tracker/internal/reminder"
	"github.com/Tiliavir/tick-tracker/internal/screens"
)

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Inspect and deliver weekday reminders",
}

var remindersScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Rebuild reminder triggers from the settings",
	Args:  cobra.NoArgs,
	RunE:  runRemindersSchedule,
}

var remindersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled reminder triggers",
	Args:  cobra.NoArgs,
	RunE:  runRemindersList,
}

var remindersRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Deliver reminders until interrupted",
	Long: `run keeps running and delivers every scheduled reminder to the
configured sinks (terminal and/or Telegram, see notify in config.yaml).
Changes made with "tick settings set" are picked up within a minute.`,
	Args: cobra.NoArgs,
	RunE: runRemindersRun,
}

var remindersTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send one reminder to every sink now",
	Args:  cobra.NoArgs,
	RunE:  runRemindersTest,
}

func init() {
	remindersCmd.AddCommand(remindersScheduleCmd, remindersListCmd, remindersRunCmd, remindersTestCmd)
}

func runRemindersSchedule(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	s := a.settings.Current()
	err := a.reminder.Force(ctx, s.Schedule())
	if errors.Is(err, reminder.ErrPermissionDenied) {
		exitErr(1, errors.New("no reminder sink is enabled, set notify.terminal or notify.telegram in config.yaml"))
	}
	if err != nil {
		exitErr(2, err)
	}
	if !s.ReminderEnabled {
		fmt.Println("Reminders are off; all triggers cancelled.")
		return nil
	}
	fmt.Printf("Scheduled reminders at %v on weekdays.\n", s.ReminderTimes)
	return nil
}

func runRemindersList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	st, err := a.triggers.Load(ctx)
	if err != nil {
		exitErr(2, err)
	}
	if len(st.Triggers) == 0 {
		fmt.Println("No reminders scheduled.")
		return nil
	}

	now := time.Now().In(a.loc)
	triggers := append([]reminder.Trigger(nil), st.Triggers...)
	sort.Slice(triggers, func(i, j int) bool {
		if triggers[i].Weekday != triggers[j].Weekday {
			return triggers[i].Weekday < triggers[j].Weekday
		}
		return triggers[i].Time < triggers[j].Time
	})

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tTIME\tNEXT\tCRON")
	for _, t := range triggers {
		var h, m int
		fmt.Sscanf(t.Time, "%d:%d", &h, &m)
		next := reminder.NextWeekdayOccurrence(t.Weekday, h, m, now)
		spec, _ := notify.CronSpec(t)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Weekday, t.Time, next.Format("Mon 2006-01-02 15:04"), spec)
	}
	return tw.Flush()
}

func runRemindersRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	if len(a.sinks) == 0 {
		exitErr(1, errors.New("no reminder sink is enabled, set notify.terminal or notify.telegram in config.yaml"))
	}

	stop := screens.WatchReminders(ctx, a.settings, a.reminder, func(err error) {
		a.log.Warn("configuring reminders failed", "error", err)
	})
	defer stop()

	for _, s := range a.sinks {
		if tg, ok := s.(*notify.Telegram); ok {
			if err := tg.Connect(); err != nil {
				a.log.Warn("telegram not reachable yet, retrying on the next reminder", "error", err)
			}
		}
	}

	d := notify.NewDaemon(a.triggers, a.sinks, a.loc, a.log)
	n, err := d.Reload(ctx)
	if err != nil {
		exitErr(2, err)
	}
	fmt.Fprintf(os.Stderr, "Delivering %d reminders. Press Ctrl+C to stop.\n", n)
	if next := d.Next(); !next.IsZero() {
		fmt.Fprintf(os.Stderr, "Next: %s\n", next.In(a.loc).Format("Mon 15:04"))
	}
	if err := d.Run(ctx); err != nil {
		exitErr(2, err)
	}
	return nil
}

func runRemindersTest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	if len(a.sinks) == 0 {
		exitErr(1, errors.New("no reminder sink is enabled"))
	}
	d := notify.NewDaemon(a.triggers, a.sinks, a.loc, a.log)
	err := d.Fire(ctx, reminder.Trigger{Title: reminder.Message, Body: reminder.Message})
	if err != nil {
		exitErr(2, err)
	}
	return nil
}

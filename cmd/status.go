package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/tick-tracker/internal/screens"
	"github.com/Tiliavir/tick-tracker/internal/timer"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running timer and today's total",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()
	now := time.Now().In(a.loc)

	t, running, err := timer.Active(ctx, a.store)
	if err != nil {
		exitErr(2, err)
	}

	if !a.settings.Current().HasAPIKey() {
		if running {
			fmt.Printf("Running since %s (%s)\n", t.Started.In(a.loc).Format("15:04"), timer.FormatElapsed(t.Elapsed(now)))
		}
		exitErr(1, errNoLogin)
	}
	client := a.client()

	if running {
		name := "unknown task"
		if ref, err := screens.LoadRefData(ctx, client); err == nil && t.TaskID != nil {
			if task, ok := ref.Task(*t.TaskID); ok {
				name = task.Name
			}
		}
		fmt.Println("Running:")
		fmt.Printf("  Task: %s\n", name)
		if t.Notes != "" {
			fmt.Printf("  Notes: %s\n", t.Notes)
		}
		fmt.Printf("  Since: %s\n", t.Started.In(a.loc).Format("15:04"))
		fmt.Printf("  Elapsed: %s\n", timer.FormatElapsed(t.Elapsed(now)))
	} else {
		fmt.Println("No active timer.")
	}

	entries, err := client.EntriesByDate(ctx, a.today())
	if err != nil {
		exitErr(2, err)
	}
	fmt.Printf("Today: %s booked.\n", hoursStyle.Sprint(screens.FormatHours(screens.Total(entries))))
	return nil
}

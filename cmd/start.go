package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/tick-tracker/internal/screens"
	"github.com/Tiliavir/tick-tracker/internal/timer"
)

var (
	startTask  int64
	startNotes string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a timer for a task",
	Long: `start runs a local timer. "tick stop" books the elapsed time as an
entry, split at midnight when the timer ran across days. Starting a new
timer stops and books the running one.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	startCmd.Flags().Int64Var(&startTask, "task", 0, "Task ID; prompts when omitted")
	startCmd.Flags().StringVar(&startNotes, "notes", "", "Notes for the booked entry")
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()
	now := time.Now().In(a.loc)

	client := a.client()
	ref, err := screens.LoadRefData(ctx, client)
	if err != nil {
		exitErr(2, err)
	}

	taskID := startTask
	if !cmd.Flags().Changed("task") {
		if !interactive() {
			exitErr(1, errors.New("--task is required without a terminal"))
		}
		id, ok, err := pickTask(ref)
		if err != nil {
			exitErr(2, err)
		}
		if !ok {
			exitErr(1, errors.New("no task selected"))
		}
		taskID = id
	}
	task, ok := ref.Task(taskID)
	if !ok {
		exitErr(1, fmt.Errorf("unknown task #%d", taskID))
	}

	t := timer.Timer{TaskID: &task.ID, ProjectID: ref.ProjectOf(task.ID), Notes: startNotes, Started: now}
	if _, running, _ := timer.Active(ctx, a.store); running {
		fmt.Fprintln(os.Stderr, "Warning: stopping the running timer first")
	}
	if _, err := timer.Switch(ctx, a.store, t, entryBooker(a, client, "")); err != nil {
		fmt.Fprintln(os.Stderr, "The running timer was kept; days already booked were removed from it.")
		exitFor(err)
	}

	fmt.Printf("Started timer for %q at %s\n", task.Name, now.Format("15:04:05"))
	return nil
}

// entryBooker books timer segments as entries through client. extraNotes
// is appended to the timer's notes.
func entryBooker(a *app, client screens.API, extraNotes string) timer.Booker {
	return func(ctx context.Context, t timer.Timer, seg timer.Segment) error {
		form := screens.NewEntryForm(a.formDepsFor(client), seg.Date)
		form.Hours = seg.Hours
		form.Notes = t.Notes
		if extraNotes != "" {
			if form.Notes != "" {
				form.Notes += "\n"
			}
			form.Notes += extraNotes
		}
		form.TaskID = t.TaskID
		form.ProjectID = t.ProjectID
		saved, err := form.Save(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Booked %s on %s (entry #%d)\n",
			hoursStyle.Sprint(screens.FormatHours(float64(saved.Hours))), seg.Date, saved.ID)
		return nil
	}
}

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/tick-tracker/internal/timer"
)

var (
	stopNotes   string
	stopDiscard bool
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running timer and book it",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopNotes, "notes", "", "Append to the entry notes")
	stopCmd.Flags().BoolVar(&stopDiscard, "discard", false, "Stop without booking")
}

func runStop(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()
	now := time.Now().In(a.loc)

	if stopDiscard {
		t, err := timer.Stop(ctx, a.store)
		if errors.Is(err, timer.ErrNotRunning) {
			fmt.Fprintln(os.Stderr, "No active timer to stop.")
			os.Exit(1)
		}
		if err != nil {
			exitErr(2, err)
		}
		fmt.Printf("Discarded timer. Elapsed: %s\n", timer.FormatElapsed(t.Elapsed(now)))
		return nil
	}

	t, booked, err := timer.Finish(ctx, a.store, now, entryBooker(a, a.client(), stopNotes))
	switch {
	case errors.Is(err, timer.ErrNotRunning):
		fmt.Fprintln(os.Stderr, "No active timer to stop.")
		os.Exit(1)
	case err != nil:
		fmt.Fprintln(os.Stderr, "The timer keeps running for the days not booked yet.")
		exitFor(err)
	}

	fmt.Printf("Stopped timer. Elapsed: %s\n", timer.FormatElapsed(t.Elapsed(now)))
	if booked == 0 {
		fmt.Println("Less than five minutes elapsed, nothing booked.")
	}
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/tick-tracker/internal/screens"
)

var suggestDate string

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Show calendar meetings not yet booked as entries",
	Long: `suggest reads the calendar configured under calendar.source and lists
timed meetings of the day that have no matching entry yet. Book one with
"tick entries new --suggestion <n>".`,
	Args: cobra.NoArgs,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().StringVar(&suggestDate, "date", "", "Date (YYYY-MM-DD); defaults to today")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	a := openApp(cmd.Context())
	defer a.Close()

	date := a.resolveDate(suggestDate)
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	view, err := a.entriesScreen(date).Load(ctx)
	if err != nil {
		exitErr(2, err)
	}
	if errors.Is(view.Err, screens.ErrNoAPIKey) {
		exitErr(1, view.Err)
	}
	if view.Err != nil {
		// Suggestions are still filtered against what did load.
		a.log.Warn("loading entries failed", "error", view.Err)
	}

	if len(view.Suggestions) == 0 {
		fmt.Printf("No suggestions for %s.\n", date)
		return nil
	}
	dayStyle.Printf("Suggestions for %s\n", date)
	for i, s := range view.Suggestions {
		fmt.Printf("%3d. %-8s %s  %s\n", i+1,
			hoursStyle.Sprint(screens.FormatHours(s.Hours)), s.Title, faintStyle.Sprint(s.ID))
	}
	return nil
}

package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/tick-tracker/internal/tui"
)

var browseDate string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse entries and suggestions day by day",
	Args:  cobra.NoArgs,
	RunE:  runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&browseDate, "date", "", "Start date (YYYY-MM-DD); defaults to today")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	if !interactive() {
		exitErr(1, errors.New("browse needs an interactive terminal, use \"tick entries list\" instead"))
	}
	date := a.resolveDate(browseDate)
	client := a.client()

	m := tui.New(a.entriesScreen(date), a.formDepsFor(client), a.loc)
	if err := tui.Run(ctx, m); err != nil {
		exitErr(2, err)
	}
	return nil
}

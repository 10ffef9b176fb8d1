package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/tick-tracker/internal/model"
	"github.com/Tiliavir/tick-tracker/internal/screens"
	"github.com/Tiliavir/tick-tracker/internal/timecalc"
)

var (
	entriesDate      string
	entriesWeek      bool
	entryHours       float64
	entryNotes       string
	entryTask        int64
	entrySuggestion  string
	entryDeleteForce bool
)

var entriesCmd = &cobra.Command{
	Use:     "entries",
	Aliases: []string{"e"},
	Short:   "List, create, edit and delete time entries",
}

var entriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries for a day or week",
	Args:  cobra.NoArgs,
	RunE:  runEntriesList,
}

var entriesNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create an entry",
	Args:  cobra.NoArgs,
	RunE:  runEntriesNew,
}

var entriesEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Update an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntriesEdit,
}

var entriesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntriesDelete,
}

func init() {
	entriesListCmd.Flags().StringVar(&entriesDate, "date", "", "Date (YYYY-MM-DD); defaults to today")
	entriesListCmd.Flags().BoolVar(&entriesWeek, "week", false, "Show the whole week containing --date")

	entriesNewCmd.Flags().StringVar(&entriesDate, "date", "", "Date (YYYY-MM-DD); defaults to today")
	entriesNewCmd.Flags().Float64Var(&entryHours, "hours", 0, "Hours, e.g. 1.5")
	entriesNewCmd.Flags().StringVar(&entryNotes, "notes", "", "Notes")
	entriesNewCmd.Flags().Int64Var(&entryTask, "task", 0, "Task ID; prompts when omitted")
	entriesNewCmd.Flags().StringVar(&entrySuggestion, "suggestion", "", "Prefill from a suggestion ID or number shown by \"tick suggest\"")

	entriesEditCmd.Flags().StringVar(&entriesDate, "date", "", "Date the entry is booked on; defaults to today")
	entriesEditCmd.Flags().Float64Var(&entryHours, "hours", 0, "New hours")
	entriesEditCmd.Flags().StringVar(&entryNotes, "notes", "", "New notes")
	entriesEditCmd.Flags().Int64Var(&entryTask, "task", 0, "New task ID")

	entriesDeleteCmd.Flags().StringVar(&entriesDate, "date", "", "Date the entry is booked on; defaults to today")
	entriesDeleteCmd.Flags().BoolVarP(&entryDeleteForce, "yes", "y", false, "Do not ask for confirmation")

	entriesCmd.AddCommand(entriesListCmd, entriesNewCmd, entriesEditCmd, entriesDeleteCmd)
}

func runEntriesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	date := a.resolveDate(entriesDate)
	client := a.client()

	var entries []model.Entry
	var err error
	if entriesWeek {
		d, _ := timecalc.ParseDate(date, a.loc)
		from, to := timecalc.WeekRange(d)
		entries, err = client.EntriesInRange(ctx, timecalc.FormatDate(from), timecalc.FormatDate(to))
	} else {
		entries, err = client.EntriesByDate(ctx, date)
	}
	if err != nil {
		exitErr(2, err)
	}

	ref, err := screens.LoadRefData(ctx, client)
	if err != nil {
		a.log.Warn("loading projects and tasks failed", "error", err)
		ref = nil
	}
	printList(os.Stdout, entries, ref)
	return nil
}

func runEntriesNew(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	date := a.resolveDate(entriesDate)
	client := a.client()

	form := screens.NewEntryForm(a.formDepsFor(client), date)
	if entrySuggestion != "" {
		s, err := findSuggestion(ctx, a, date, entrySuggestion)
		if err != nil {
			exitErr(1, err)
		}
		form.FromSuggestion(ctx, s)
	}
	if cmd.Flags().Changed("hours") {
		form.Hours = entryHours
	}
	if cmd.Flags().Changed("notes") {
		form.Notes = entryNotes
	}

	ref, err := screens.LoadRefData(ctx, client)
	if err != nil {
		exitErr(2, err)
	}
	switch {
	case cmd.Flags().Changed("task"):
		form.SelectTask(ref, entryTask)
	case form.TaskID != nil:
		form.InferProject(ref)
	case interactive():
		id, ok, err := pickTask(ref)
		if err != nil {
			exitErr(2, err)
		}
		if ok {
			form.SelectTask(ref, id)
		}
	}

	saved, err := form.Save(ctx)
	if err != nil {
		exitFor(err)
	}
	fmt.Printf("Created entry #%d on %s: %s %s\n",
		saved.ID, saved.Date, hoursStyle.Sprint(screens.FormatHours(float64(saved.Hours))), ref.TaskLabel(saved))
	return nil
}

func runEntriesEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	id := parseEntryID(args[0])
	date := a.resolveDate(entriesDate)
	client := a.client()
	entry := findEntry(ctx, client, date, id)

	form := screens.EditEntryForm(a.formDepsFor(client), entry)
	if cmd.Flags().Changed("hours") {
		form.Hours = entryHours
	}
	if cmd.Flags().Changed("notes") {
		form.Notes = entryNotes
	}
	if cmd.Flags().Changed("task") {
		ref, err := screens.LoadRefData(ctx, client)
		if err != nil {
			exitErr(2, err)
		}
		form.SelectTask(ref, entryTask)
	}

	saved, err := form.Save(ctx)
	if err != nil {
		exitFor(err)
	}
	fmt.Printf("Updated entry #%d: %s\n", saved.ID, hoursStyle.Sprint(screens.FormatHours(float64(saved.Hours))))
	return nil
}

func runEntriesDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	id := parseEntryID(args[0])
	date := a.resolveDate(entriesDate)
	client := a.client()
	entry := findEntry(ctx, client, date, id)

	if !entryDeleteForce && !confirm(fmt.Sprintf("Delete entry #%d (%s)? This cannot be undone", id, screens.FormatHours(float64(entry.Hours)))) {
		fmt.Fprintln(os.Stderr, "Aborted. Pass --yes to delete without a prompt.")
		os.Exit(1)
	}

	if err := screens.EditEntryForm(a.formDepsFor(client), entry).Delete(ctx); err != nil {
		exitFor(err)
	}
	fmt.Printf("Deleted entry #%d.\n", id)
	return nil
}

func parseEntryID(v string) int64 {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		exitErr(1, fmt.Errorf("invalid entry ID %q", v))
	}
	return id
}

// findEntry looks the entry up on date; the API has no single-entry read.
func findEntry(ctx context.Context, client screens.API, date string, id int64) model.Entry {
	entries, err := client.EntriesByDate(ctx, date)
	if err != nil {
		exitErr(2, err)
	}
	for _, e := range entries {
		if e.ID == id {
			return e
		}
	}
	exitErr(1, fmt.Errorf("entry #%d not found on %s (use --date)", id, date))
	return model.Entry{}
}

// findSuggestion resolves a suggestion by ID or 1-based position.
func findSuggestion(ctx context.Context, a *app, date, ref string) (model.Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	view, err := a.entriesScreen(date).Load(ctx)
	if err != nil {
		return model.Suggestion{}, err
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(view.Suggestions) {
		return view.Suggestions[n-1], nil
	}
	for _, s := range view.Suggestions {
		if s.ID == ref {
			return s, nil
		}
	}
	return model.Suggestion{}, errors.New("no suggestion " + ref + " on " + date)
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/tick-tracker/internal/model"
	"github.com/Tiliavir/tick-tracker/internal/screens"
	"github.com/Tiliavir/tick-tracker/internal/timecalc"
)

var (
	reportDate   string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show booked hours per project for a week",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Any date in the week to report (YYYY-MM-DD); defaults to today")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json, yaml")
}

// ProjectTotal is one row of a weekly report.
type ProjectTotal struct {
	Project string  `json:"project" yaml:"project"`
	Hours   float64 `json:"hours" yaml:"hours"`
}

// Report is the weekly aggregation by project.
type Report struct {
	Week       string         `json:"week" yaml:"week"`
	From       string         `json:"from" yaml:"from"`
	To         string         `json:"to" yaml:"to"`
	Projects   []ProjectTotal `json:"projects" yaml:"projects"`
	TotalHours float64        `json:"total_hours" yaml:"total_hours"`
}

// buildReport sums entries per project name. Entries without a known
// project are reported under screens.Unassigned.
func buildReport(week time.Time, entries []model.Entry, ref *screens.RefData) Report {
	from, to := timecalc.WeekRange(week)
	totals := map[string]float64{}
	var order []string
	var grand float64
	for _, e := range entries {
		name := projectName(e, ref)
		if _, seen := totals[name]; !seen {
			order = append(order, name)
		}
		totals[name] += float64(e.Hours)
		grand += float64(e.Hours)
	}
	sort.Strings(order)

	r := Report{
		Week:       timecalc.ISOWeekLabel(week),
		From:       timecalc.FormatDate(from),
		To:         timecalc.FormatDate(to),
		Projects:   make([]ProjectTotal, 0, len(order)),
		TotalHours: timecalc.RoundToStep(grand),
	}
	for _, p := range order {
		r.Projects = append(r.Projects, ProjectTotal{Project: p, Hours: timecalc.RoundToStep(totals[p])})
	}
	return r
}

func projectName(e model.Entry, ref *screens.RefData) string {
	id := e.ProjectID
	if id == nil && e.TaskID != nil {
		id = ref.ProjectOf(*e.TaskID)
	}
	if id != nil {
		if p, ok := ref.Project(*id); ok {
			return p.Name
		}
	}
	return screens.Unassigned
}

func writeReport(w io.Writer, r Report, format string) error {
	switch format {
	case "csv":
		fmt.Fprintln(w, "project,hours")
		for _, p := range r.Projects {
			fmt.Fprintf(w, "%s,%.2f\n", csvEscape(p.Project), p.Hours)
		}
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(r)
	case "md", "":
		fmt.Fprintf(w, "Week %s (%s – %s)\n", r.Week, r.From, r.To)
		fmt.Fprintln(w, "--------------------------------")
		for _, p := range r.Projects {
			fmt.Fprintf(w, "%-20s%s\n", p.Project, screens.FormatHours(p.Hours))
		}
		fmt.Fprintln(w, "--------------------------------")
		fmt.Fprintf(w, "%-20s%s\n", "Total", screens.FormatHours(r.TotalHours))
	default:
		return fmt.Errorf("unknown format %q (want md, csv, json or yaml)", format)
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	day, _ := timecalc.ParseDate(a.resolveDate(reportDate), a.loc)
	from, to := timecalc.WeekRange(day)

	client := a.client()
	entries, err := client.EntriesInRange(ctx, timecalc.FormatDate(from), timecalc.FormatDate(to))
	if err != nil {
		exitErr(2, err)
	}
	ref, err := screens.LoadRefData(ctx, client)
	if err != nil {
		exitErr(2, err)
	}

	if err := writeReport(os.Stdout, buildReport(day, entries, ref), reportFormat); err != nil {
		exitErr(1, err)
	}
	return nil
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/tick-tracker/internal/model"
	"github.com/Tiliavir/tick-tracker/internal/screens"
	"github.com/Tiliavir/tick-tracker/internal/timecalc"
)

var (
	exportFrom   string
	exportTo     string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export entries of a date range to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "First date (YYYY-MM-DD); defaults to Monday of this week")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Last date (YYYY-MM-DD); defaults to Sunday of --from's week")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, yaml, md")
}

// exportRow is an entry with its reference names resolved.
type exportRow struct {
	ID      int64   `json:"id" yaml:"id"`
	Date    string  `json:"date" yaml:"date"`
	Hours   float64 `json:"hours" yaml:"hours"`
	Client  string  `json:"client,omitempty" yaml:"client,omitempty"`
	Project string  `json:"project" yaml:"project"`
	Task    string  `json:"task,omitempty" yaml:"task,omitempty"`
	Notes   string  `json:"notes,omitempty" yaml:"notes,omitempty"`
}

func exportRows(entries []model.Entry, ref *screens.RefData) []exportRow {
	rows := make([]exportRow, 0, len(entries))
	for _, e := range entries {
		row := exportRow{
			ID:      e.ID,
			Date:    e.Date,
			Hours:   float64(e.Hours),
			Project: projectName(e, ref),
			Notes:   e.Notes,
		}
		if label := ref.TaskLabel(e); label != "" {
			client, task, _ := strings.Cut(label, " - ")
			if client != screens.Unassigned {
				row.Client = client
			}
			row.Task = task
		}
		rows = append(rows, row)
	}
	return rows
}

func writeExport(w io.Writer, entries []model.Entry, ref *screens.RefData, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(exportRows(entries, ref))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(exportRows(entries, ref))
	case "md":
		printList(w, entries, ref)
	case "csv", "":
		printCSV(w, exportRows(entries, ref))
	default:
		return fmt.Errorf("unknown format %q (want csv, json, yaml or md)", format)
	}
	return nil
}

func printCSV(w io.Writer, rows []exportRow) {
	fmt.Fprintln(w, "id,date,client,project,task,notes,hours")
	for _, r := range rows {
		fmt.Fprintf(w, "%d,%s,%s,%s,%s,%s,%.2f\n",
			r.ID,
			csvEscape(r.Date),
			csvEscape(r.Client),
			csvEscape(r.Project),
			csvEscape(r.Task),
			csvEscape(r.Notes),
			r.Hours,
		)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	fromDay, _ := timecalc.ParseDate(a.resolveDate(exportFrom), a.loc)
	from, to := timecalc.WeekRange(fromDay)
	if exportFrom != "" {
		from = fromDay
	}
	if exportTo != "" {
		to, _ = timecalc.ParseDate(a.resolveDate(exportTo), a.loc)
	}
	if to.Before(from) {
		exitErr(1, fmt.Errorf("--to %s is before --from %s", timecalc.FormatDate(to), timecalc.FormatDate(from)))
	}

	client := a.client()
	entries, err := client.EntriesInRange(ctx, timecalc.FormatDate(from), timecalc.FormatDate(to))
	if err != nil {
		exitErr(2, err)
	}
	ref, err := screens.LoadRefData(ctx, client)
	if err != nil {
		exitErr(2, err)
	}

	if err := writeExport(os.Stdout, entries, ref, exportFormat); err != nil {
		exitErr(1, err)
	}
	return nil
}

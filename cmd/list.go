package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/Tiliavir/tick-tracker/internal/model"
	"github.com/Tiliavir/tick-tracker/internal/screens"
)

var (
	dayStyle   = color.New(color.FgCyan, color.Bold)
	hoursStyle = color.New(color.FgGreen)
	faintStyle = color.New(color.FgHiBlack)
)

// printList groups entries by date and prints them with a total per day.
func printList(w io.Writer, entries []model.Entry, ref *screens.RefData) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}

	sorted := append([]model.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	var currentDay string
	var dayTotal float64
	flush := func() {
		if currentDay != "" {
			fmt.Fprintf(w, "  %-8s %s\n", hoursStyle.Sprint(screens.FormatHours(dayTotal)), faintStyle.Sprint("total"))
		}
	}
	for _, e := range sorted {
		if e.Date != currentDay {
			flush()
			dayStyle.Fprintln(w, e.Date)
			currentDay = e.Date
			dayTotal = 0
		}
		dayTotal += float64(e.Hours)

		notes := e.Notes
		if notes == "" {
			notes = "No notes provided."
		}
		label := ""
		if ref != nil {
			if l := ref.TaskLabel(e); l != "" {
				label = "  " + faintStyle.Sprint(l)
			}
		}
		fmt.Fprintf(w, "  %-8s #%-8d %s%s\n", screens.FormatHours(float64(e.Hours)), e.ID, notes, label)
	}
	flush()
}

package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/tick-tracker/internal/model"
	"github.com/Tiliavir/tick-tracker/internal/screens"
)

func TestCsvEscape(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"with space", "with space"},
		{"with,comma", `"with,comma"`},
		{`with"quote`, `"with""quote"`},
		{"with\nnewline", "\"with\nnewline\""},
		{"with\rreturn", "\"with\rreturn\""},
		{"", ""},
	}
	for _, tt := range tests {
		got := csvEscape(tt.input)
		if got != tt.want {
			t.Errorf("csvEscape(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func sampleData() ([]model.Entry, *screens.RefData) {
	ref := screens.NewRefData(
		[]model.Project{
			{ID: 1, Name: "Apollo", ClientID: model.ID(10)},
			{ID: 2, Name: "Internal"},
		},
		[]model.Task{
			{ID: 7, Name: "Design", ProjectID: model.ID(1)},
			{ID: 8, Name: "Support", ProjectID: model.ID(2)},
		},
		[]model.Client{{ID: 10, Name: "Acme"}},
	)
	entries := []model.Entry{
		{ID: 1, Date: "2026-02-23", Hours: 1.5, Notes: "Kickoff, part 1", TaskID: model.ID(7)},
		{ID: 2, Date: "2026-02-24", Hours: 2, TaskID: model.ID(8), ProjectID: model.ID(2)},
		{ID: 3, Date: "2026-02-25", Hours: 0.25, TaskID: model.ID(99)},
		{ID: 4, Date: "2026-02-26", Hours: 1, TaskID: model.ID(7)},
	}
	return entries, ref
}

func TestBuildReport(t *testing.T) {
	entries, ref := sampleData()
	week := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)

	r := buildReport(week, entries, ref)
	if r.Week != "2026-W09" || r.From != "2026-02-23" || r.To != "2026-03-01" {
		t.Errorf("report header = %s %s %s", r.Week, r.From, r.To)
	}
	want := []ProjectTotal{
		{Project: "Apollo", Hours: 2.5},
		{Project: "Internal", Hours: 2},
		{Project: screens.Unassigned, Hours: 0.25},
	}
	if len(r.Projects) != len(want) {
		t.Fatalf("Projects = %+v, want %+v", r.Projects, want)
	}
	for i := range want {
		if r.Projects[i] != want[i] {
			t.Errorf("Projects[%d] = %+v, want %+v", i, r.Projects[i], want[i])
		}
	}
	if r.TotalHours != 4.75 {
		t.Errorf("TotalHours = %v, want 4.75", r.TotalHours)
	}
}

func TestWriteReportFormats(t *testing.T) {
	entries, ref := sampleData()
	r := buildReport(time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC), entries, ref)

	var md bytes.Buffer
	if err := writeReport(&md, r, "md"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md.String(), "Week 2026-W09") || !strings.Contains(md.String(), "4h 45m") {
		t.Errorf("md report:\n%s", md.String())
	}

	var csv bytes.Buffer
	if err := writeReport(&csv, r, "csv"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(csv.String(), "project,hours\nApollo,2.50\n") {
		t.Errorf("csv report:\n%s", csv.String())
	}

	var js bytes.Buffer
	if err := writeReport(&js, r, "json"); err != nil {
		t.Fatal(err)
	}
	var back Report
	if err := json.Unmarshal(js.Bytes(), &back); err != nil || back.TotalHours != 4.75 {
		t.Errorf("json report = %+v, %v", back, err)
	}

	var ym bytes.Buffer
	if err := writeReport(&ym, r, "yaml"); err != nil {
		t.Fatal(err)
	}
	var yback Report
	if err := yaml.Unmarshal(ym.Bytes(), &yback); err != nil || len(yback.Projects) != 3 {
		t.Errorf("yaml report = %+v, %v", yback, err)
	}

	if err := writeReport(&bytes.Buffer{}, r, "pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestExportRows(t *testing.T) {
	entries, ref := sampleData()
	rows := exportRows(entries, ref)
	if len(rows) != 4 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].Client != "Acme" || rows[0].Task != "Design" || rows[0].Project != "Apollo" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Client != "" || rows[1].Task != "Support" {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if rows[2].Task != "#99" || rows[2].Project != screens.Unassigned {
		t.Errorf("row 2 = %+v", rows[2])
	}

	var buf bytes.Buffer
	if err := writeExport(&buf, entries, ref, "csv"); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "id,date,client,project,task,notes,hours" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != `1,2026-02-23,Acme,Apollo,Design,"Kickoff, part 1",1.50` {
		t.Errorf("first row = %q", lines[1])
	}
}

func TestPrintList(t *testing.T) {
	entries, ref := sampleData()
	var buf bytes.Buffer
	printList(&buf, entries[:2], ref)
	out := buf.String()
	for _, want := range []string{"2026-02-23", "1h 30m", "Acme - Design", "No notes provided.", "Unassigned - Support"} {
		if !strings.Contains(out, want) {
			t.Errorf("printList output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printList(&buf, nil, ref)
	if buf.String() != "No entries found.\n" {
		t.Errorf("empty list = %q", buf.String())
	}
}

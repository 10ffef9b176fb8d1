// Package tui is the interactive day browser started by "tick browse".
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Tiliavir/tick-tracker/internal/model"
	"github.com/Tiliavir/tick-tracker/internal/screens"
	"github.com/Tiliavir/tick-tracker/internal/timecalc"
)

// requestTimeout bounds every load or save started from the browser.
const requestTimeout = 30 * time.Second

type loadedMsg struct {
	view screens.View
	err  error
}

type savedMsg struct {
	status string
	err    error
}

// Model is the bubbletea model of the browser.
type Model struct {
	entries *screens.Entries
	form    screens.FormDeps
	today   func() string

	view    screens.View
	loading bool
	cursor  int
	status  string
	confirm *model.Entry
	width   int
}

// New returns a browser on the current date of entries. "Today" is taken
// in loc.
func New(entries *screens.Entries, form screens.FormDeps, loc *time.Location) Model {
	if loc == nil {
		loc = time.Local
	}
	return Model{
		entries: entries,
		form:    form,
		today:   func() string { return timecalc.FormatDate(time.Now().In(loc)) },
		view:    entries.View(),
		loading: true,
	}
}

// Run starts the browser in the alternate screen and blocks until it quits.
func Run(ctx context.Context, m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) loadCmd() tea.Cmd {
	entries := m.entries
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		v, err := entries.Load(ctx)
		return loadedMsg{view: v, err: err}
	}
}

func (m Model) deleteCmd(id int64) tea.Cmd {
	entries := m.entries
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		v, err := entries.Delete(ctx, id)
		return loadedMsg{view: v, err: err}
	}
}

func (m Model) acceptCmd(s model.Suggestion) tea.Cmd {
	deps, ref := m.form, m.view.Ref
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		f := screens.NewEntryForm(deps, s.Date)
		f.FromSuggestion(ctx, s)
		if f.TaskID == nil {
			return savedMsg{err: fmt.Errorf("no task remembered for %q, book it once with \"tick entries new --suggestion\"", s.Title)}
		}
		if ref != nil {
			f.InferProject(ref)
		}
		if _, err := f.Save(ctx); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{status: "Booked " + s.Title}
	}
}

// rows is the number of selectable lines: entries, then suggestions.
func (m Model) rows() int {
	return len(m.view.Entries) + len(m.view.Suggestions)
}

func (m Model) shift(days int) (Model, tea.Cmd) {
	if _, err := m.entries.Shift(days); err != nil {
		m.status = err.Error()
		return m, nil
	}
	return m.reload()
}

func (m Model) reload() (Model, tea.Cmd) {
	m.view = m.entries.View()
	m.loading = true
	m.cursor = 0
	m.confirm = nil
	return m, m.loadCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case loadedMsg:
		if errors.Is(msg.err, screens.ErrStale) {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.view = msg.view
		if m.cursor >= m.rows() {
			m.cursor = max(0, m.rows()-1)
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.status = msg.status
		return m.reload()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		switch msg.String() {
		case "y", "Y":
			id := m.confirm.ID
			m.confirm = nil
			m.loading = true
			return m, m.deleteCmd(id)
		default:
			m.confirm = nil
			m.status = "Delete cancelled."
			return m, nil
		}
	}

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "left", "h":
		return m.shift(-1)
	case "right", "l":
		return m.shift(1)
	case "t":
		if err := m.entries.SetDate(m.today()); err != nil {
			m.status = err.Error()
			return m, nil
		}
		return m.reload()
	case "r":
		return m.reload()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < m.rows()-1 {
			m.cursor++
		}
	case "d":
		if m.cursor < len(m.view.Entries) {
			e := m.view.Entries[m.cursor]
			m.confirm = &e
		}
	case "enter", "a":
		if i := m.cursor - len(m.view.Entries); i >= 0 && i < len(m.view.Suggestions) {
			m.status = "Booking…"
			return m, m.acceptCmd(m.view.Suggestions[i])
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	header := titleStyle.Render("◀ "+m.view.Date+" ▶") + "  " +
		mutedStyle.Render("Total ") + hoursStyle.Render(screens.FormatHours(m.view.Total))
	b.WriteString(header + "\n\n")

	switch {
	case m.view.Err != nil:
		b.WriteString(errorStyle.Render(m.view.Err.Error()) + "\n")
	case m.loading && len(m.view.Entries) == 0:
		b.WriteString(mutedStyle.Render("Loading entries...") + "\n")
	case len(m.view.Entries) == 0:
		b.WriteString(mutedStyle.Render("No entries for this date.") + "\n")
	}

	for i, e := range m.view.Entries {
		notes := e.Notes
		if notes == "" {
			notes = "No notes provided."
		}
		line := fmt.Sprintf("%-8s %s", screens.FormatHours(float64(e.Hours)), notes)
		if label := m.view.Ref.TaskLabel(e); label != "" {
			line += mutedStyle.Render("  " + label)
		}
		b.WriteString(m.row(i, line) + "\n")
	}

	if len(m.view.Suggestions) > 0 {
		b.WriteString("\n" + titleStyle.Render("Suggestions") + "\n")
		for j, s := range m.view.Suggestions {
			line := suggestStyle.Render(s.Title) + "  " + mutedStyle.Render(s.Subtitle)
			b.WriteString(m.row(len(m.view.Entries)+j, line) + "\n")
		}
	}

	body := paneStyle.Render(strings.TrimRight(b.String(), "\n"))
	if m.width > 0 {
		body = lipgloss.NewStyle().MaxWidth(m.width).Render(body)
	}

	footer := mutedStyle.Render("←/→ day · t today · ↑/↓ move · a book suggestion · d delete · r reload · q quit")
	if m.confirm != nil {
		footer = errorStyle.Render(fmt.Sprintf("Delete entry #%d? This cannot be undone. (y/N)", m.confirm.ID))
	} else if m.status != "" {
		footer = m.status + "\n" + footer
	}
	return body + "\n" + footer + "\n"
}

func (m Model) row(i int, line string) string {
	if i == m.cursor {
		return selectedStyle.Render("› ") + line
	}
	return rowStyle.Render("  ") + line
}

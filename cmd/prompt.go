package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/Tiliavir/tick-tracker/internal/model"
	"github.com/Tiliavir/tick-tracker/internal/screens"
)

// interactive reports whether both stdin and stdout are terminals.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// taskChoice is one row of the task picker.
type taskChoice struct {
	Group string
	Task  model.Task
}

// taskChoices flattens task groups into picker rows.
func taskChoices(groups []screens.TaskGroup) []taskChoice {
	var out []taskChoice
	for _, g := range groups {
		for _, t := range g.Tasks {
			out = append(out, taskChoice{Group: g.Name, Task: t})
		}
	}
	return out
}

// matchChoice is the picker's search: every word must occur in the task or
// group name.
func matchChoice(c taskChoice, input string) bool {
	hay := strings.ToLower(c.Group + " " + c.Task.Name)
	for _, word := range strings.Fields(strings.ToLower(input)) {
		if !strings.Contains(hay, word) {
			return false
		}
	}
	return true
}

// pickTask lets the user choose a task. ok is false when there is nothing
// to choose from or the user aborted.
func pickTask(ref *screens.RefData) (id int64, ok bool, err error) {
	choices := taskChoices(ref.TaskGroups())
	if len(choices) == 0 {
		return 0, false, nil
	}
	sel := promptui.Select{
		Label: "Task",
		Items: choices,
		Size:  12,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "▸ {{ .Task.Name | cyan }} {{ .Group | faint }}",
			Inactive: "  {{ .Task.Name }} {{ .Group | faint }}",
			Selected: "Task: {{ .Task.Name | green }}",
		},
		Searcher: func(input string, i int) bool {
			return matchChoice(choices[i], input)
		},
	}
	i, _, err := sel.Run()
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return choices[i].Task.ID, true, nil
}

// confirm asks a yes/no question. Without a terminal it returns false.
func confirm(label string) bool {
	if !interactive() {
		return false
	}
	p := promptui.Prompt{Label: label, IsConfirm: true}
	_, err := p.Run()
	return err == nil
}

// readSecret reads a line without echo when stdin is a terminal, else a
// plain line (for pipes).
func readSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprintf(os.Stderr, "%s: ", label)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Package prompt implements the interactive selection of dependencies to update.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is returned when the user leaves the prompt without confirming.
var ErrAborted = errors.New("selection aborted")

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// Model is a multi-select list with every item selected initially.
type Model struct {
	title    string
	items    []string
	selected []bool
	cursor   int
	done     bool
	aborted  bool
}

// NewModel creates a selection model over items.
func NewModel(title string, items []string) Model {
	selected := make([]bool, len(items))
	for i := range selected {
		selected[i] = true
	}
	return Model{title: title, items: items, selected: selected}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.aborted = true
		return m, tea.Quit
	case "enter":
		m.done = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case " ", "space", "x":
		if len(m.items) > 0 {
			m.selected[m.cursor] = !m.selected[m.cursor]
		}
	case "a":
		all := true
		for _, s := range m.selected {
			all = all && s
		}
		for i := range m.selected {
			m.selected[i] = !all
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.done || m.aborted {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	for i, item := range m.items {
		pointer := "  "
		if i == m.cursor {
			pointer = cursorStyle.Render("> ")
		}
		check := "[ ]"
		if m.selected[i] {
			check = "[x]"
		}
		fmt.Fprintf(&b, "%s%s %s\n", pointer, check, item)
	}
	b.WriteString(helpStyle.Render("space: toggle • a: toggle all • enter: confirm • esc: cancel"))
	b.WriteString("\n")
	return b.String()
}

// Selected returns the indexes of the selected items in ascending order.
func (m Model) Selected() []int {
	idx := make([]int, 0, len(m.items))
	for i, s := range m.selected {
		if s {
			idx = append(idx, i)
		}
	}
	return idx
}

// Aborted reports whether the user cancelled the prompt.
func (m Model) Aborted() bool {
	return m.aborted
}

// Select shows the prompt on the terminal and returns the chosen indexes.
func Select(title string, items []string, in io.Reader, out io.Writer) ([]int, error) {
	if len(items) == 0 {
		return nil, nil
	}
	opts := []tea.ProgramOption{}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}
	final, err := tea.NewProgram(NewModel(title, items), opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("run prompt: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("unexpected prompt model %T", final)
	}
	if m.Aborted() {
		return nil, ErrAborted
	}
	return m.Selected(), nil
}

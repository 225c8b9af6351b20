// Package labeledspinner renders a one-line spinner for work in flight.
package labeledspinner

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alkime/scribe/internal/tui/style"
)

// Model displays a spinner followed by a label and optional details.
// It renders nothing while idle, so it can sit in a status line permanently.
type Model struct {
	Spinner spinner.Model
	Label   string
	details []string
}

// New creates a labeled spinner.
func New(s spinner.Spinner, label string) Model {
	sp := spinner.New()
	sp.Spinner = s
	sp.Style = style.Progress

	return Model{
		Spinner: sp,
		Label:   label,
	}
}

// Init returns the initial command for the spinner.
func (ls Model) Init() tea.Cmd {
	return ls.Spinner.Tick
}

// Update handles spinner tick messages.
func (ls Model) Update(teaMsg tea.Msg) (Model, tea.Cmd) {
	if tickMsg, ok := teaMsg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		ls.Spinner, cmd = ls.Spinner.Update(tickMsg)

		return ls, cmd
	}

	return ls, nil
}

// WithDetails replaces what the spinner is waiting on. No details means idle.
func (ls Model) WithDetails(details ...string) Model {
	ls.details = details
	return ls
}

// Active reports whether anything is in flight.
func (ls Model) Active() bool {
	return len(ls.details) > 0
}

// View renders the spinner line, or an empty string when idle.
func (ls Model) View() string {
	if !ls.Active() {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(ls.Spinner.View())
	sb.WriteString(" ")
	sb.WriteString(style.Title.Render(ls.Label))
	sb.WriteString(" ")
	sb.WriteString(style.Subtitle.Render(strings.Join(ls.details, ", ")))

	return sb.String()
}

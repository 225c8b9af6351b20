// Package prompt is a single-line input that asks for one value and reports
// it back as a message.
package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alkime/scribe/internal/tui/style"
)

// SubmitMsg carries the entered value. Value is trimmed and never empty.
type SubmitMsg struct {
	ID    string
	Value string
}

// CancelMsg reports that the prompt was dismissed.
type CancelMsg struct {
	ID string
}

var (
	submitKey = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit"))
	cancelKey = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
)

// Model asks for a single value.
type Model struct {
	ID    string
	Title string
	input textinput.Model
}

// New creates a closed prompt. id is echoed in its messages.
func New(id, title, placeholder string) Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.CharLimit = 2048

	return Model{ID: id, Title: title, input: ti}
}

// Open clears and focuses the prompt.
func (m Model) Open() (Model, tea.Cmd) {
	m.input.Reset()
	return m, m.input.Focus()
}

// Active reports whether the prompt has focus.
func (m Model) Active() bool {
	return m.input.Focused()
}

// SetWidth sets the input width.
func (m *Model) SetWidth(width int) {
	m.input.Width = max(width-len(m.input.Prompt)-1, 1)
}

// Update handles input while the prompt is open.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.Active() {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, cancelKey):
			m.input.Blur()
			id := m.ID
			return m, func() tea.Msg { return CancelMsg{ID: id} }
		case key.Matches(msg, submitKey):
			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				return m, nil
			}
			m.input.Blur()
			id := m.ID
			return m, func() tea.Msg { return SubmitMsg{ID: id, Value: value} }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

// View renders the prompt, or nothing when closed.
func (m Model) View() string {
	if !m.Active() {
		return ""
	}

	return style.Label.Render(m.Title) + "\n" + m.input.View() + "\n" +
		style.Help.Render("[") + style.Key.Render(submitKey.Help().Key) + style.Help.Render("] "+submitKey.Help().Desc+" ") +
		style.Help.Render("[") + style.Key.Render(cancelKey.Help().Key) + style.Help.Render("] "+cancelKey.Help().Desc)
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alkime/scribe/internal/dictation"
	"github.com/alkime/scribe/internal/ingest"
	"github.com/alkime/scribe/internal/session"
	"github.com/alkime/scribe/internal/tui/style"
)

// Placeholder is shown while the transcript is empty.
const Placeholder = "Nothing yet. Press space to dictate, e to type, v for a video or u to upload audio."

// chrome is the number of rows around the panel.
const chrome = 12

func (m *Model) resize(width, height int) {
	m.width = width
	panelWidth := max(width-4, 10)
	panelHeight := max(height-chrome, 3)

	m.transcript.Width = panelWidth
	m.transcript.Height = panelHeight
	m.notes.Width = panelWidth
	m.notes.Height = panelHeight
	m.wave.SetWidth(panelWidth)
	m.video.SetWidth(panelWidth)
	m.upload.SetWidth(panelWidth)
	m.refresh()
}

// refresh reloads both panels from the current snapshot.
func (m *Model) refresh() {
	u := m.update
	width := m.transcript.Width

	var text string
	switch {
	case u.Transcript == "" && u.Interim == "":
		text = style.Muted.Render(wrapText(Placeholder, width))
	case u.Interim == "":
		text = wrapText(u.Transcript, width)
	default:
		// wrapping is ANSI aware, so the interim words are styled first
		text = wrapText(strings.TrimSpace(u.Transcript+" "+style.Interim.Render(u.Interim)), width)
	}
	atBottom := m.transcript.AtBottom()
	m.transcript.SetContent(text)
	if atBottom {
		m.transcript.GotoBottom()
	}

	if u.Notes != nil {
		m.notes.SetContent(wrapText(u.Notes.Raw, m.notes.Width))
	} else {
		m.notes.SetContent("")
	}
}

// View renders the session.
func (m *Model) View() string {
	u := m.update
	var sb strings.Builder

	sb.WriteString(style.Title.Render("Scribe"))
	sb.WriteString("  ")
	sb.WriteString(m.statusLine())
	sb.WriteString("\n\n")

	title, panel := "Transcript", m.transcript
	if m.showNotes.Read() {
		title, panel = "Notes", m.notes
	}
	sb.WriteString(style.Label.Render(title))
	if words := wordCount(u.Transcript).Read(); words > 0 && !m.showNotes.Read() {
		sb.WriteString(style.Muted.Render(fmt.Sprintf(" (%d words)", words)))
	}
	sb.WriteString("\n")
	sb.WriteString(style.Viewport.Render(panel.View()))
	sb.WriteString("\n")

	if m.recording() && m.cfg.Levels != nil {
		sb.WriteString(m.wave.View())
		sb.WriteString("\n")
	}

	if v := m.busy.View(); v != "" {
		sb.WriteString(v)
		sb.WriteString("\n")
	}
	if m.err != "" {
		sb.WriteString(style.Error.Render("Error: " + m.err))
		sb.WriteString("\n")
	} else if m.notice != "" {
		sb.WriteString(style.Success.Render(m.notice))
		sb.WriteString("\n")
	}

	if v := m.video.View(); v != "" {
		sb.WriteString("\n" + v + "\n")
		return sb.String()
	}
	if v := m.upload.View(); v != "" {
		sb.WriteString("\n" + v + "\n")
		return sb.String()
	}

	sb.WriteString("\n")
	sb.WriteString(m.helpView())

	return sb.String()
}

func (m *Model) statusLine() string {
	u := m.update
	parts := []string{}

	switch u.Recording {
	case dictation.Active:
		parts = append(parts, style.Recording.Render("● REC"))
	case dictation.Starting:
		parts = append(parts, style.Warning.Render("○ starting microphone"))
	case dictation.Stopping:
		parts = append(parts, style.Warning.Render("○ finishing"))
	}
	if u.Mode != ingest.None {
		parts = append(parts, style.Label.Render("Mode: ")+style.Muted.Render(u.Mode.String()))
	}
	if u.State == session.HasNotes {
		parts = append(parts, style.Success.Render("notes ready"))
	}

	return strings.Join(parts, "  ")
}

func (m *Model) helpView() string {
	u := m.update
	k := m.keys

	dictate := k.Dictate
	if m.recording() {
		dictate.SetHelp("space", "stop")
	}

	var sb strings.Builder
	sb.WriteString(renderKeyHelp(dictate, u.Enabled(session.Dictate), " "))
	sb.WriteString(renderKeyHelp(k.Edit, m.cfg.Composer != nil, " "))
	sb.WriteString(renderKeyHelp(k.Video, true, " "))
	sb.WriteString(renderKeyHelp(k.Upload, true, "\n"))
	sb.WriteString(renderKeyHelp(k.Generate, u.Enabled(session.Generate), " "))
	sb.WriteString(renderKeyHelp(k.Export, u.Enabled(session.ExportNotes), " "))
	sb.WriteString(renderKeyHelp(k.Panel, u.State == session.HasNotes, " "))
	sb.WriteString(renderKeyHelp(k.Clear, true, " "))
	sb.WriteString(renderKeyHelp(k.Quit, true))

	return sb.String()
}

// wrapText wraps text to width so long lines are not truncated by the
// viewport.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}

	return lipgloss.NewStyle().Width(width).Render(text)
}

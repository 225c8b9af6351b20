// Package tui is the interactive terminal surface of a session.
package tui

import (
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alkime/scribe/internal/apperr"
	"github.com/alkime/scribe/internal/dictation"
	"github.com/alkime/scribe/internal/editor"
	"github.com/alkime/scribe/internal/ingest"
	"github.com/alkime/scribe/internal/remote"
	"github.com/alkime/scribe/internal/session"
	"github.com/alkime/scribe/internal/tui/components/labeledspinner"
	"github.com/alkime/scribe/internal/tui/components/prompt"
	"github.com/alkime/scribe/internal/tui/components/waveform"
	"github.com/alkime/scribe/pkg/collections"
	"github.com/alkime/scribe/pkg/uictl"
)

// DraftName is the file manual entries are composed in.
const DraftName = "draft.md"

const (
	videoPrompt  = "video"
	uploadPrompt = "upload"
)

// Controller is the session surface the UI drives.
type Controller interface {
	ToggleDictation() error
	SubmitText(text string) error
	SubmitVideo(sourceURL string) error
	UploadAudio(f ingest.File) error
	GenerateNotes() error
	Export() error
	Clear() error
}

// Composer opens text for editing and reports an editor.ClosedMsg.
type Composer interface {
	Compose(path, initial string) tea.Cmd
}

// Config wires the UI to a running session.
type Config struct {
	Controller Controller
	// Updates delivers session snapshots; closing it ends the program.
	Updates <-chan session.Update
	// Initial is the snapshot to render before the first update.
	Initial session.Update
	// Levels feeds the waveform while dictating. Nil hides it.
	Levels   uictl.Levels[float64]
	Composer Composer
	WorkDir  string
	Logger   *slog.Logger
}

type updateMsg session.Update

type updatesClosedMsg struct{}

type opDoneMsg struct {
	op  string
	err error
}

// Model renders a session and forwards key presses to its controller.
type Model struct {
	cfg    Config
	keys   KeyMap
	logger *slog.Logger

	update    session.Update
	showNotes toggle

	transcript viewport.Model
	notes      viewport.Model
	busy       labeledspinner.Model
	wave       waveform.Model
	video      prompt.Model
	upload     prompt.Model

	notice string
	err    string
	width  int
}

// New creates the session UI.
func New(cfg Config) *Model {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Model{
		cfg:        cfg,
		keys:       DefaultKeyMap(),
		logger:     logger.With("component", "tui"),
		transcript: viewport.New(76, 10),
		notes:      viewport.New(76, 10),
		busy:       labeledspinner.New(spinner.MiniDot, "Working"),
		wave:       waveform.New(cfg.Levels, 76, 2),
		video:      prompt.New(videoPrompt, "Video URL", "https://www.youtube.com/watch?v=..."),
		upload:     prompt.New(uploadPrompt, "Audio file (mp3, wav, m4a, ogg, flac)", "/path/to/recording.mp3"),
		width:      80,
	}
	m.transcript.KeyMap = scrollKeys()
	m.notes.KeyMap = scrollKeys()
	m.apply(cfg.Initial)

	return m
}

// Init starts listening for session updates.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForUpdate(m.cfg.Updates), m.busy.Init()}
	if m.cfg.Levels != nil {
		cmds = append(cmds, m.wave.Init())
	}
	return tea.Batch(cmds...)
}

func waitForUpdate(updates <-chan session.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg(u)
	}
}

// Update handles messages.
func (m *Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case updateMsg:
		m.apply(session.Update(msg))
		return m, waitForUpdate(m.cfg.Updates)

	case updatesClosedMsg:
		return m, tea.Quit

	case opDoneMsg:
		m.finished(msg)
		if errors.Is(msg.err, session.ErrClosed) {
			return m, tea.Quit
		}
		return m, nil

	case editor.ClosedMsg:
		if msg.Err != nil {
			m.logger.Error("Editor failed", "error", msg.Err)
			m.err = "Editor failed: " + msg.Err.Error()
			return m, nil
		}
		if msg.Text == "" || msg.Text == m.update.Transcript {
			return m, nil
		}
		return m, m.call("manual", func() error { return m.cfg.Controller.SubmitText(msg.Text) })

	case prompt.SubmitMsg:
		return m, m.submitPrompt(msg)

	case prompt.CancelMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.busy, cmd = m.busy.Update(msg)
		return m, cmd

	case waveform.TickMsg:
		var cmd tea.Cmd
		m.wave, cmd = m.wave.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.video.Active() {
			var cmd tea.Cmd
			m.video, cmd = m.video.Update(msg)
			return m, cmd
		}
		if m.upload.Active() {
			var cmd tea.Cmd
			m.upload, cmd = m.upload.Update(msg)
			return m, cmd
		}
		if cmd, ok := m.handleKey(msg); ok {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	switch {
	case m.video.Active():
		m.video, cmd = m.video.Update(teaMsg)
	case m.upload.Active():
		m.upload, cmd = m.upload.Update(teaMsg)
	case m.showNotes.Read():
		m.notes, cmd = m.notes.Update(teaMsg)
	default:
		m.transcript, cmd = m.transcript.Update(teaMsg)
	}
	return m, cmd
}

// handleKey runs a session binding. ok is false for keys left to scrolling.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	c := m.cfg.Controller
	u := m.update

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keys.Dictate):
		if !u.Enabled(session.Dictate) {
			m.err = "Live dictation is not available on this machine"
			return nil, true
		}
		return m.call("dictation", c.ToggleDictation), true

	case key.Matches(msg, m.keys.Edit):
		if m.cfg.Composer == nil {
			return nil, true
		}
		m.clearStatus()
		return m.cfg.Composer.Compose(filepath.Join(m.cfg.WorkDir, DraftName), u.Transcript), true

	case key.Matches(msg, m.keys.Video):
		m.clearStatus()
		var cmd tea.Cmd
		m.video, cmd = m.video.Open()
		return cmd, true

	case key.Matches(msg, m.keys.Upload):
		m.clearStatus()
		var cmd tea.Cmd
		m.upload, cmd = m.upload.Open()
		return cmd, true

	case key.Matches(msg, m.keys.Generate):
		if !u.Enabled(session.Generate) {
			return nil, true
		}
		return m.call("generate", c.GenerateNotes), true

	case key.Matches(msg, m.keys.Export):
		if !u.Enabled(session.ExportNotes) {
			return nil, true
		}
		return m.call("export", c.Export), true

	case key.Matches(msg, m.keys.Clear):
		return m.call("clear", c.Clear), true

	case key.Matches(msg, m.keys.Panel):
		if u.State == session.HasNotes {
			m.showNotes.Toggle()
		}
		return nil, true
	}

	return nil, false
}

func (m *Model) submitPrompt(msg prompt.SubmitMsg) tea.Cmd {
	c := m.cfg.Controller

	switch msg.ID {
	case videoPrompt:
		return m.call("video", func() error { return c.SubmitVideo(msg.Value) })
	case uploadPrompt:
		f, err := ingest.OpenFile(msg.Value)
		if err != nil {
			m.err = apperr.Classify(err).Message
			return nil
		}
		return m.call("upload", func() error { return c.UploadAudio(f) })
	}
	return nil
}

// call runs a controller operation off the UI goroutine.
func (m *Model) call(op string, fn func() error) tea.Cmd {
	m.clearStatus()
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn()}
	}
}

func (m *Model) finished(msg opDoneMsg) {
	if msg.err == nil || errors.Is(msg.err, session.ErrClosed) || errors.Is(msg.err, apperr.ErrCancelled) {
		return
	}
	m.logger.Debug("Operation failed", "op", msg.op, "error", msg.err)
	m.err = apperr.Classify(msg.err).Message
}

func (m *Model) clearStatus() {
	m.err = ""
	m.notice = ""
}

// apply renders a session snapshot.
func (m *Model) apply(u session.Update) {
	prev := m.update
	m.update = u

	// a failure is repeated on later updates; show it once
	if u.Err != nil && u.Err != prev.Err {
		m.err = u.Err.Message
	}
	switch {
	case u.ExportPath != "" && u.ExportPath != prev.ExportPath:
		m.notice = "Exported to " + u.ExportPath
	case u.Saved:
		m.notice = "Transcript saved"
	}

	switch {
	case u.State != session.HasNotes:
		m.showNotes.Off()
	case prev.State != session.HasNotes:
		m.showNotes.On()
	}

	m.busy = m.busy.WithDetails(collections.Apply(u.Busy, busyLabel)...)
	m.refresh()
}

func busyLabel(kind remote.Kind) string {
	switch kind {
	case remote.Save:
		return "saving"
	case remote.GenerateNotes:
		return "generating notes"
	case remote.FetchYoutube:
		return "fetching video transcript"
	case remote.UploadAudio:
		return "transcribing audio"
	case remote.ExportPdf:
		return "exporting pdf"
	default:
		return kind.String()
	}
}

func (m *Model) recording() bool {
	switch m.update.Recording {
	case dictation.Starting, dictation.Active, dictation.Stopping:
		return true
	default:
		return false
	}
}

// Package editor composes text in the user's editor from inside the
// terminal UI.
package editor

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// ClosedMsg reports that the editor exited. Text is the trimmed file content.
type ClosedMsg struct {
	Path string
	Text string
	Err  error
}

// Command returns the user's editor command line from $VISUAL or $EDITOR,
// defaulting to vi.
func Command() []string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if args := strings.Fields(os.Getenv(env)); len(args) > 0 {
			return args
		}
	}
	return []string{"vi"}
}

// Editor opens drafts in an external editor, suspending the program while
// it runs.
type Editor struct {
	args   []string
	logger *slog.Logger
	exec   func(*exec.Cmd, tea.ExecCallback) tea.Cmd
}

// New creates an editor running args with the draft path appended.
func New(args []string, logger *slog.Logger) *Editor {
	if len(args) == 0 {
		args = Command()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{args: args, logger: logger, exec: tea.ExecProcess}
}

// Compose writes initial to path and opens it. The returned command yields a
// ClosedMsg once the editor exits.
func (e *Editor) Compose(path, initial string) tea.Cmd {
	if err := os.WriteFile(path, []byte(initial), 0o600); err != nil {
		err = fmt.Errorf("failed to write draft: %w", err)
		return func() tea.Msg { return ClosedMsg{Path: path, Err: err} }
	}

	e.logger.Info("Opening draft in editor", "editor", e.args[0], "path", path)

	//nolint:gosec // the editor comes from the user's environment
	cmd := exec.Command(e.args[0], append(e.args[1:], path)...)
	return e.exec(cmd, func(err error) tea.Msg {
		return readBack(path, err)
	})
}

func readBack(path string, runErr error) ClosedMsg {
	if runErr != nil {
		return ClosedMsg{Path: path, Err: fmt.Errorf("failed to run editor: %w", runErr)}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return ClosedMsg{Path: path, Err: fmt.Errorf("failed to read draft: %w", err)}
	}
	return ClosedMsg{Path: path, Text: strings.TrimSpace(string(b))}
}

package editor

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runNow runs the editor synchronously instead of suspending a program.
func runNow(cmd *exec.Cmd, fn tea.ExecCallback) tea.Cmd {
	err := cmd.Run()
	return func() tea.Msg { return fn(err) }
}

func TestCommand(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "")
	assert.Equal(t, []string{"vi"}, Command())

	t.Setenv("EDITOR", "code --wait")
	assert.Equal(t, []string{"code", "--wait"}, Command())

	t.Setenv("VISUAL", "nano")
	assert.Equal(t, []string{"nano"}, Command())
}

func TestCompose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.md")

	t.Run("reads back the edited text", func(t *testing.T) {
		e := New([]string{"sh", "-c", `printf ' more words\n' >> "$0"`}, nil)
		e.exec = runNow

		msg := e.Compose(path, "first")()
		require.IsType(t, ClosedMsg{}, msg)
		closed := msg.(ClosedMsg)
		require.NoError(t, closed.Err)
		assert.Equal(t, path, closed.Path)
		assert.Equal(t, "first more words", closed.Text)
	})

	t.Run("editor failure", func(t *testing.T) {
		e := New([]string{"sh", "-c", "exit 3"}, nil)
		e.exec = runNow

		closed := e.Compose(path, "")().(ClosedMsg)
		assert.ErrorContains(t, closed.Err, "failed to run editor")
	})

	t.Run("unwritable draft", func(t *testing.T) {
		e := New([]string{"true"}, nil)
		e.exec = runNow

		closed := e.Compose(filepath.Join(path, "nested", "draft.md"), "x")().(ClosedMsg)
		assert.ErrorContains(t, closed.Err, "failed to write draft")
	})
}

func TestCompose_DraftPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.md")
	e := New([]string{"true"}, nil)
	e.exec = runNow

	closed := e.Compose(path, "private")().(ClosedMsg)
	require.NoError(t, closed.Err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

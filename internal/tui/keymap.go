package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/alkime/scribe/internal/tui/style"
)

// KeyMap holds the session key bindings.
type KeyMap struct {
	Dictate  key.Binding
	Edit     key.Binding
	Video    key.Binding
	Upload   key.Binding
	Generate key.Binding
	Export   key.Binding
	Clear    key.Binding
	Panel    key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Dictate: key.NewBinding(
			key.WithKeys(" ", "space"),
			key.WithHelp("space", "dictate"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "type"),
		),
		Video: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "video"),
		),
		Upload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "upload"),
		),
		Generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "notes"),
		),
		Export: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "export pdf"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
		Panel: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "transcript/notes"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// scrollKeys leaves the letter keys to the session bindings.
func scrollKeys() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		Up:       key.NewBinding(key.WithKeys("up")),
		Down:     key.NewBinding(key.WithKeys("down")),
	}
}

func renderKeyHelp(keyBinding key.Binding, enabled bool, suffix ...string) string {
	if !enabled {
		return style.Disabled.Render("["+keyBinding.Help().Key+"] "+keyBinding.Help().Desc) +
			strings.Join(suffix, "")
	}

	s := style.Help.Render("[") + style.Key.Render(keyBinding.Help().Key) +
		style.Help.Render("] ") +
		style.Help.Render(keyBinding.Help().Desc)

	s += strings.Join(suffix, "")

	return s
}

package tui

import (
	"strings"

	"github.com/alkime/scribe/pkg/uictl"
)

// toggle switches the main panel between transcript and notes.
type toggle bool

var _ uictl.Knob = (*toggle)(nil)

func (t *toggle) Read() bool { return bool(*t) }
func (t *toggle) On()        { *t = true }
func (t *toggle) Off()       { *t = false }
func (t *toggle) Toggle()    { *t = !*t }

// wordCount reads the number of words in a transcript.
type wordCount string

var _ uictl.Dial[int] = wordCount("")

func (w wordCount) Read() int {
	return len(strings.Fields(string(w)))
}

package session

import (
	"slices"

	"github.com/alkime/scribe/internal/apperr"
	"github.com/alkime/scribe/internal/dictation"
	"github.com/alkime/scribe/internal/ingest"
	"github.com/alkime/scribe/internal/notes"
	"github.com/alkime/scribe/internal/remote"
)

// State is the session's progress from transcript to notes.
type State int

const (
	// Empty means there is no transcript.
	Empty State = iota
	// HasTranscript means a transcript exists but no notes for it.
	HasTranscript
	// HasNotes means notes were generated from the current transcript.
	HasNotes
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case HasTranscript:
		return "has_transcript"
	case HasNotes:
		return "has_notes"
	default:
		return "unknown"
	}
}

// Action is a user-facing operation that may be disabled.
type Action int

const (
	// Generate generates notes.
	Generate Action = iota
	// ExportNotes exports notes to a document.
	ExportNotes
	// Dictate starts or stops live dictation.
	Dictate
)

// Enabled reports whether action is allowed in state.
func Enabled(action Action, state State, dictationAvailable bool) bool {
	switch action {
	case Generate:
		return state >= HasTranscript
	case ExportNotes:
		return state == HasNotes
	case Dictate:
		return dictationAvailable
	default:
		return false
	}
}

// Op names the operation an update's error belongs to.
type Op string

const (
	OpDictation Op = "dictation"
	OpManual    Op = "manual"
	OpVideo     Op = "video"
	OpUpload    Op = "upload"
	OpGenerate  Op = "generate"
	OpExport    Op = "export"
)

func opFor(mode ingest.Mode) Op {
	switch mode {
	case ingest.Dictation:
		return OpDictation
	case ingest.Video:
		return OpVideo
	case ingest.Upload:
		return OpUpload
	default:
		return OpManual
	}
}

// Update is a snapshot of the session published after every change.
type Update struct {
	State              State
	Mode               ingest.Mode
	Transcript         string
	Interim            string
	Recording          dictation.State
	DictationAvailable bool
	Notes              *notes.Artifact
	ExportPath         string
	// Busy lists the kinds of the jobs in flight.
	Busy []remote.Kind
	// Saved is set on the update that follows a successful save.
	Saved bool
	// Op and Err describe the last failure. They are repeated on every
	// update until the next operation starts; Err is nil otherwise.
	Op  Op
	Err *apperr.Error
}

// Enabled reports whether action is allowed for this snapshot.
func (u Update) Enabled(action Action) bool {
	return Enabled(action, u.State, u.DictationAvailable)
}

// Pending reports whether a job of kind is in flight.
func (u Update) Pending(kind remote.Kind) bool {
	return slices.Contains(u.Busy, kind)
}

// Package transcript holds the canonical transcript text for a session.
package transcript

import "strings"

// Reader is the read-only view of a Buffer handed to components that must
// not mutate it.
type Reader interface {
	Snapshot() string
	Interim() string
	Empty() bool
}

// Buffer holds finalized segments plus transient interim text.
//
// Only finalized segments are durable: Snapshot never includes interim
// text. Buffer is not safe for concurrent use; the session loop owns it.
type Buffer struct {
	finals  []string
	interim string
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// AppendFinal appends a finalized chunk. Blank chunks are ignored.
// Interim text that the chunk supersedes is dropped.
func (b *Buffer) AppendFinal(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.finals = append(b.finals, text)

	// The recognizer reports the in-progress utterance as interim text, so a
	// final chunk replaces the matching interim prefix.
	rest, ok := strings.CutPrefix(strings.TrimSpace(b.interim), text)
	if !ok {
		b.interim = ""
		return
	}
	b.interim = strings.TrimSpace(rest)
}

// SetInterim replaces the interim text wholesale.
func (b *Buffer) SetInterim(text string) {
	b.interim = text
}

// Replace clears the buffer and stores text as its only final segment.
func (b *Buffer) Replace(text string) {
	b.Clear()
	b.AppendFinal(text)
}

// Snapshot returns the finalized segments joined by single spaces.
func (b *Buffer) Snapshot() string {
	return strings.TrimSpace(strings.Join(b.finals, " "))
}

// Interim returns the current interim text.
func (b *Buffer) Interim() string {
	return b.interim
}

// Segments returns a copy of the finalized segments in insertion order.
func (b *Buffer) Segments() []string {
	out := make([]string, len(b.finals))
	copy(out, b.finals)
	return out
}

// Empty reports whether no finalized text has been recorded.
func (b *Buffer) Empty() bool {
	return b.Snapshot() == ""
}

// Clear resets both finalized and interim text. It is idempotent.
func (b *Buffer) Clear() {
	b.finals = nil
	b.interim = ""
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkime/scribe/internal/apperr"
	"github.com/alkime/scribe/internal/backend"
	"github.com/alkime/scribe/internal/dictation"
	"github.com/alkime/scribe/internal/export"
	"github.com/alkime/scribe/internal/ingest"
	"github.com/alkime/scribe/internal/remote"
)

// fakeServer is a scripted backend counting every request it receives.
type fakeServer struct {
	*httptest.Server

	requests atomic.Int32

	mu    sync.Mutex
	saved []string
	// saveGate, when set, holds save requests until closed.
	saveGate chan struct{}
	// notes maps a transcript to the markdown returned for it.
	notes func(ctx context.Context, transcript string) string
	// notesErr, when set, fails generation with this message.
	notesErr string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	fs := &fakeServer{
		notes: func(_ context.Context, transcript string) string { return "# Notes\n\n" + transcript },
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+backend.PathSaveTranscript, func(w http.ResponseWriter, r *http.Request) {
		var req backend.TranscriptRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		fs.mu.Lock()
		fs.saved = append(fs.saved, req.Transcript)
		gate := fs.saveGate
		fs.mu.Unlock()
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		writeJSON(w, http.StatusOK, backend.Response{Status: "success"})
	})
	mux.HandleFunc("POST "+backend.PathGenerateNotes, func(w http.ResponseWriter, r *http.Request) {
		var req backend.TranscriptRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		fs.mu.Lock()
		notes, notesErr := fs.notes, fs.notesErr
		fs.mu.Unlock()
		if notesErr != "" {
			writeJSON(w, http.StatusInternalServerError, backend.Response{Error: notesErr})
			return
		}
		writeJSON(w, http.StatusOK, backend.Response{Notes: notes(r.Context(), req.Transcript)})
	})
	mux.HandleFunc("POST "+backend.PathYoutubeTranscript, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, backend.Response{Transcript: "video transcript"})
	})
	mux.HandleFunc("POST "+backend.PathTranscribe, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, backend.Response{Transcript: "audio transcript"})
	})
	mux.HandleFunc("POST "+backend.PathDownloadPDF, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.3")
	})

	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.requests.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) setNotes(fn func(ctx context.Context, transcript string) string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.notes = fn
}

func (fs *fakeServer) failNotes(msg string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.notesErr = msg
}

func (fs *fakeServer) savedTranscripts() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.saved...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	c       *Controller
	server  *fakeServer
	rec     *dictation.MockRecognizer
	updates chan Update
	dir     string
}

func start(t *testing.T, capability dictation.Capability) *harness {
	t.Helper()

	h := &harness{
		server:  newFakeServer(t),
		rec:     &dictation.MockRecognizer{},
		updates: make(chan Update, 512),
		dir:     t.TempDir(),
	}
	if capability == nil {
		capability = dictation.Available{Recognizer: h.rec}
	}
	h.c = New(Config{
		Backend:    backend.New(backend.Config{BaseURL: h.server.URL, SessionID: "test-session"}),
		Capability: capability,
		Sink:       export.DirSink{Dir: h.dir},
	})
	require.NoError(t, h.c.Subscribe(h.updates))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return h
}

// waitFor returns the first update satisfying pred.
func (h *harness) waitFor(t *testing.T, pred func(Update) bool) Update {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u := <-h.updates:
			if pred(u) {
				return u
			}
		case <-timeout:
			t.Fatal("timed out waiting for session update")
			return Update{}
		}
	}
}

func (h *harness) withNotes(t *testing.T) Update {
	t.Helper()
	require.NoError(t, h.c.SubmitText("meeting transcript"))
	require.NoError(t, h.c.GenerateNotes())
	return h.waitFor(t, func(u Update) bool { return u.State == HasNotes })
}

func TestEnabled(t *testing.T) {
	tests := []struct {
		action    Action
		state     State
		available bool
		want      bool
	}{
		{Generate, Empty, true, false},
		{Generate, HasTranscript, true, true},
		{Generate, HasNotes, false, true},
		{ExportNotes, HasTranscript, true, false},
		{ExportNotes, HasNotes, true, true},
		{Dictate, Empty, true, true},
		{Dictate, HasNotes, false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Enabled(tt.action, tt.state, tt.available), "%v %v %v", tt.action, tt.state, tt.available)
	}
}

func TestInterimNeverInTranscript(t *testing.T) {
	h := start(t, nil)

	require.NoError(t, h.c.StartDictation())
	h.rec.Emit(dictation.Result{Index: 0, Text: "hel"})
	u := h.waitFor(t, func(u Update) bool { return u.Interim == "hel" })
	assert.Empty(t, u.Transcript)
	assert.Equal(t, Empty, u.State)

	h.rec.Emit(dictation.Result{Index: 0, IsFinal: true, Text: "hello"})
	u = h.waitFor(t, func(u Update) bool { return u.Transcript == "hello" })
	assert.Empty(t, u.Interim)
	assert.Equal(t, HasTranscript, u.State)

	require.NoError(t, h.c.StopDictation())
	u = h.waitFor(t, func(u Update) bool { return u.Saved })
	assert.Equal(t, dictation.Idle, h.c.Recording())
	assert.Equal(t, "hello", u.Transcript)
	assert.Equal(t, []string{"hello"}, h.server.savedTranscripts())
}

func TestClearFromAnyState(t *testing.T) {
	h := start(t, nil)

	require.NoError(t, h.c.Clear())
	u, err := h.c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, Empty, u.State)

	require.NoError(t, h.c.SubmitText("some words"))
	require.NoError(t, h.c.Clear())
	u, err = h.c.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, u.Transcript)
	assert.False(t, u.Enabled(Generate))

	h.withNotes(t)
	require.NoError(t, h.c.Clear())
	u, err = h.c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, Empty, u.State)
	assert.Empty(t, u.Transcript)
	assert.Nil(t, u.Notes)
	assert.False(t, u.Enabled(Generate))
	assert.False(t, u.Enabled(ExportNotes))
}

func TestSecondGenerateWins(t *testing.T) {
	h := start(t, nil)
	release := make(chan struct{})
	arrived := make(chan struct{})
	var calls atomic.Int32
	h.server.setNotes(func(ctx context.Context, transcript string) string {
		if calls.Add(1) == 1 {
			close(arrived)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return "# First"
		}
		return "# Second"
	})

	require.NoError(t, h.c.SubmitText("words"))
	require.NoError(t, h.c.GenerateNotes())
	<-arrived
	require.NoError(t, h.c.GenerateNotes())

	u := h.waitFor(t, func(u Update) bool { return u.State == HasNotes })
	close(release)
	assert.Contains(t, u.Notes.SanitizedMarkup, "Second")

	// the superseded request never replaces the artifact
	u, err := h.c.Snapshot()
	require.NoError(t, err)
	assert.Contains(t, u.Notes.SanitizedMarkup, "Second")
}

func TestRejectedUploadsMakeNoRequests(t *testing.T) {
	h := start(t, nil)
	opened := false
	open := func() (io.ReadCloser, error) {
		opened = true
		return nil, errors.New("unreachable")
	}

	err := h.c.UploadAudio(ingest.File{Name: "clip.exe", Size: 1 << 10, Open: open})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = h.c.UploadAudio(ingest.File{Name: "clip.mp3", Size: 101 << 20, Open: open})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.False(t, opened)
	assert.Zero(t, h.server.requests.Load())
	u := h.waitFor(t, func(u Update) bool { return u.Err != nil && u.Op == OpUpload })
	assert.Equal(t, apperr.ValidationError, u.Err.Kind)
}

func TestGeneratedNotesAreSanitized(t *testing.T) {
	h := start(t, nil)
	h.server.setNotes(func(context.Context, string) string {
		return "# Title\n<script>evil()</script>"
	})

	u := h.withNotes(t)
	require.NotNil(t, u.Notes)
	assert.Contains(t, u.Notes.SanitizedMarkup, "<h1>Title</h1>")
	assert.NotContains(t, u.Notes.SanitizedMarkup, "<script")
}

func TestExportWithoutNotes(t *testing.T) {
	h := start(t, nil)

	err := h.c.Export()
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, h.server.requests.Load())
}

func TestExportWritesDocument(t *testing.T) {
	h := start(t, nil)
	h.withNotes(t)

	require.NoError(t, h.c.Export())
	u := h.waitFor(t, func(u Update) bool { return u.ExportPath != "" })
	assert.FileExists(t, u.ExportPath)
	assert.Equal(t, HasNotes, u.State)
}

func TestNewTranscriptInvalidatesNotes(t *testing.T) {
	h := start(t, nil)
	h.withNotes(t)

	require.NoError(t, h.c.SubmitVideo("https://youtu.be/abc123"))
	u := h.waitFor(t, func(u Update) bool { return u.Transcript == "video transcript" })
	assert.Equal(t, HasTranscript, u.State)
	assert.Nil(t, u.Notes)
	assert.Equal(t, ingest.Video, u.Mode)
}

func TestDictationUnavailableReportedOnce(t *testing.T) {
	h := start(t, dictation.Unavailable{Reason: errors.New("no audio backend")})

	u := h.waitFor(t, func(Update) bool { return true })
	require.NotNil(t, u.Err)
	assert.Equal(t, apperr.CapabilityUnavailable, u.Err.Kind)
	assert.False(t, u.Enabled(Dictate))

	err := h.c.StartDictation()
	assert.ErrorIs(t, err, apperr.ErrCapabilityUnavailable)

	u, err = h.c.Snapshot()
	require.NoError(t, err)
	assert.Nil(t, u.Err)
	select {
	case u := <-h.updates:
		assert.Nil(t, u.Err, "capability error must not be reported again")
	default:
	}
}

func TestFailureRepeatedUntilNextOperation(t *testing.T) {
	h := start(t, nil)
	h.withNotes(t)
	h.server.failNotes("model overloaded")

	require.NoError(t, h.c.GenerateNotes())
	failed := h.waitFor(t, func(u Update) bool { return u.Err != nil })
	assert.Equal(t, OpGenerate, failed.Op)
	assert.Equal(t, apperr.ServerError, failed.Err.Kind)
	assert.Equal(t, HasNotes, failed.State, "a failed generate keeps the previous notes")

	// later snapshots still carry the failure, so dropping an update under
	// backpressure cannot hide it
	u, err := h.c.Snapshot()
	require.NoError(t, err)
	assert.Same(t, failed.Err, u.Err)
	assert.Equal(t, OpGenerate, u.Op)

	require.NoError(t, h.c.SubmitText("another meeting"))
	u = h.waitFor(t, func(u Update) bool { return u.Transcript == "another meeting" })
	assert.Nil(t, u.Err)
	assert.Empty(t, u.Op)

	u, err = h.c.Snapshot()
	require.NoError(t, err)
	assert.Nil(t, u.Err)
}

func TestSwitchingToManualCancelsDictationSave(t *testing.T) {
	h := start(t, nil)
	block := make(chan struct{})
	defer close(block)
	h.server.mu.Lock()
	h.server.saveGate = block
	h.server.mu.Unlock()

	require.NoError(t, h.c.StartDictation())
	h.rec.Emit(dictation.Result{IsFinal: true, Text: "spoken"})
	require.NoError(t, h.c.StopDictation())
	h.waitFor(t, func(u Update) bool { return u.Pending(remote.Save) })

	require.NoError(t, h.c.SubmitText("typed"))
	u, err := h.c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "typed", u.Transcript)
	assert.Equal(t, ingest.Manual, u.Mode)
}

func TestOperationsAfterShutdown(t *testing.T) {
	c := New(Config{Capability: dictation.Unavailable{}, Sink: export.DirSink{Dir: t.TempDir()}})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)

	assert.ErrorIs(t, c.SubmitText("late"), ErrClosed)
}

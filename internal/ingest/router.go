// Package ingest routes the transcript sources into the session's buffer.
//
// A Router must only be used from the session loop goroutine. Dictation
// events and job completions reach it through the loop's Poster.
package ingest

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/alkime/scribe/internal/apperr"
	"github.com/alkime/scribe/internal/dictation"
	"github.com/alkime/scribe/internal/remote"
	"github.com/alkime/scribe/internal/transcript"
	"github.com/alkime/scribe/internal/videourl"
)

// Mode is the transcript source currently in use.
type Mode int

const (
	// None means no source has been used since the last clear.
	None Mode = iota
	// Dictation is live speech recognition.
	Dictation
	// Manual is typed or pasted text.
	Manual
	// Video is a transcript extracted from a remote video.
	Video
	// Upload is a transcribed audio file.
	Upload
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Dictation:
		return "dictation"
	case Manual:
		return "manual"
	case Video:
		return "video"
	case Upload:
		return "upload"
	default:
		return "none"
	}
}

// Change describes how the buffer was mutated.
type Change int

const (
	// Replaced means the buffer content was swapped wholesale.
	Replaced Change = iota
	// Appended means a final dictation chunk was added.
	Appended
	// InterimUpdated means only the interim text changed.
	InterimUpdated
	// Cleared means the buffer is now empty.
	Cleared
)

// Backend is the subset of the backend used for ingestion.
type Backend interface {
	SaveTranscript(ctx context.Context, transcript string) error
	FetchVideoTranscript(ctx context.Context, sourceURL string) (string, error)
	TranscribeAudio(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// Listener is notified of ingestion outcomes on the session loop.
type Listener interface {
	// TranscriptChanged reports a buffer mutation from mode.
	TranscriptChanged(mode Mode, change Change)
	// RecordingChanged reports a dictation state transition.
	RecordingChanged(state dictation.State)
	// Saved reports that the transcript was persisted.
	Saved()
	// Failed reports a classified, non-fatal failure.
	Failed(mode Mode, err error)
}

// Router owns the transcript buffer's mutations.
type Router struct {
	buf       *transcript.Buffer
	coord     *remote.Coordinator
	backend   Backend
	dictation *dictation.Adapter
	post      remote.Poster
	listener  Listener
	logger    *slog.Logger

	mode Mode
	// gen identifies the current dictation session so events from a
	// superseded one are dropped.
	gen uint64
}

// Config wires a Router.
type Config struct {
	Buffer      *transcript.Buffer
	Coordinator *remote.Coordinator
	Backend     Backend
	Dictation   *dictation.Adapter
	Post        remote.Poster
	Listener    Listener
	Logger      *slog.Logger
}

// NewRouter creates a router.
func NewRouter(cfg Config) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	post := cfg.Post
	if post == nil {
		post = remote.Inline
	}
	return &Router{
		buf:       cfg.Buffer,
		coord:     cfg.Coordinator,
		backend:   cfg.Backend,
		dictation: cfg.Dictation,
		post:      post,
		listener:  cfg.Listener,
		logger:    logger.With("component", "ingest"),
	}
}

// Mode returns the active source.
func (r *Router) Mode() Mode {
	return r.mode
}

// switchTo makes mode the active source. Leaving a mode cancels every
// pending ingestion job and stops an active dictation session.
func (r *Router) switchTo(mode Mode) {
	if r.mode == mode {
		return
	}
	r.logger.Debug("switching source", "from", r.mode, "to", mode)
	r.coord.CancelKinds(remote.FetchYoutube, remote.UploadAudio, remote.Save)
	if r.mode == Dictation {
		r.stopDictation()
	}
	r.mode = mode
}

// StartDictation begins a live dictation session. The buffer is cleared once
// the recognizer has started.
func (r *Router) StartDictation(ctx context.Context) error {
	if r.dictation == nil || !r.dictation.Available() {
		if r.dictation == nil {
			return apperr.New(apperr.CapabilityUnavailable, "live dictation is not supported on this device")
		}
		return r.dictation.UnavailableError()
	}
	if r.dictation.State() != dictation.Idle {
		return &apperr.Error{Kind: apperr.AlreadyActive, Message: "dictation is already running"}
	}

	r.switchTo(Dictation)

	r.gen++
	gen := r.gen
	r.listener.RecordingChanged(dictation.Starting)
	err := r.dictation.Start(ctx, func(ev dictation.Event) {
		r.post(func() { r.handleDictation(ctx, gen, ev) })
	})
	if err != nil {
		r.listener.RecordingChanged(dictation.Idle)
		return err
	}

	r.buf.Clear()
	r.listener.TranscriptChanged(Dictation, Cleared)
	r.listener.RecordingChanged(dictation.Active)
	return nil
}

// StopDictation requests a graceful stop. The transcript is saved once the
// recognizer has flushed its last results.
func (r *Router) StopDictation() error {
	if r.dictation == nil || r.dictation.State() != dictation.Active {
		return nil
	}
	if err := r.dictation.Stop(); err != nil {
		return apperr.Classify(err)
	}
	r.listener.RecordingChanged(dictation.Stopping)
	return nil
}

// stopDictation abandons the running session: its remaining events are
// ignored.
func (r *Router) stopDictation() {
	r.gen++
	if r.dictation == nil {
		return
	}
	if err := r.dictation.Stop(); err != nil {
		r.logger.Warn("failed to stop dictation", "error", err)
	}
	r.buf.SetInterim("")
}

func (r *Router) handleDictation(ctx context.Context, gen uint64, ev dictation.Event) {
	if _, ok := ev.(dictation.Ended); ok {
		// a newer session may already be running
		r.listener.RecordingChanged(r.dictation.State())
	}
	if gen != r.gen {
		return
	}

	switch ev := ev.(type) {
	case dictation.Result:
		if ev.IsFinal {
			r.buf.AppendFinal(ev.Text)
			r.listener.TranscriptChanged(Dictation, Appended)
			return
		}
		r.buf.SetInterim(ev.Text)
		r.listener.TranscriptChanged(Dictation, InterimUpdated)
	case dictation.Failure:
		r.listener.RecordingChanged(dictation.Error)
		r.listener.Failed(Dictation, ev.AsError())
	case dictation.Ended:
		if r.buf.Interim() != "" {
			r.buf.SetInterim("")
			r.listener.TranscriptChanged(Dictation, InterimUpdated)
		}
		r.save(ctx, Dictation)
	}
}

// SubmitText replaces the transcript with manually entered text.
func (r *Router) SubmitText(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return apperr.Validation("transcript", "please enter some text first")
	}
	r.switchTo(Manual)
	r.buf.Replace(text)
	r.listener.TranscriptChanged(Manual, Replaced)
	r.save(ctx, Manual)
	return nil
}

// SubmitVideo fetches the transcript of a remote video. The buffer is only
// replaced when the fetch succeeds.
func (r *Router) SubmitVideo(ctx context.Context, sourceURL string) (*remote.Handle, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return nil, apperr.Validation("source_url", "please enter a video URL")
	}
	if !videourl.Supported(sourceURL) {
		return nil, apperr.Validation("source_url", "unsupported video URL")
	}

	r.switchTo(Video)
	h := remote.Dispatch(r.coord, ctx, remote.FetchYoutube,
		func(ctx context.Context) (string, error) {
			return r.backend.FetchVideoTranscript(ctx, sourceURL)
		},
		func(text string, err error) {
			r.ingested(ctx, Video, text, err)
		},
	)
	return h, nil
}

// SubmitAudio uploads an audio file for transcription after checking its
// extension and size locally.
func (r *Router) SubmitAudio(ctx context.Context, f File) (*remote.Handle, error) {
	if err := ValidateAudio(f.Name, f.Size); err != nil {
		return nil, err
	}

	r.switchTo(Upload)
	h := remote.Dispatch(r.coord, ctx, remote.UploadAudio,
		func(ctx context.Context) (string, error) {
			rc, err := f.Open()
			if err != nil {
				return "", apperr.Validation("audio", "failed to read audio file: "+err.Error())
			}
			defer rc.Close()
			return r.backend.TranscribeAudio(ctx, f.Name, rc)
		},
		func(text string, err error) {
			r.ingested(ctx, Upload, text, err)
		},
	)
	return h, nil
}

// ingested applies the outcome of a remote ingestion job.
func (r *Router) ingested(ctx context.Context, mode Mode, text string, err error) {
	if err == nil && strings.TrimSpace(text) == "" {
		err = apperr.New(apperr.NoSpeechDetected, "no transcript could be extracted")
	}
	if err != nil {
		r.listener.Failed(mode, err)
		return
	}
	r.buf.Replace(text)
	r.listener.TranscriptChanged(mode, Replaced)
	r.save(ctx, mode)
}

// save persists the current snapshot. Failures are reported but leave the
// buffer untouched.
func (r *Router) save(ctx context.Context, mode Mode) {
	snapshot := r.buf.Snapshot()
	if snapshot == "" {
		return
	}
	remote.Dispatch(r.coord, ctx, remote.Save,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.backend.SaveTranscript(ctx, snapshot)
		},
		func(_ struct{}, err error) {
			if err != nil {
				r.listener.Failed(mode, err)
				return
			}
			r.listener.Saved()
		},
	)
}

// Clear stops every source and empties the buffer.
func (r *Router) Clear() {
	r.coord.CancelKinds(remote.FetchYoutube, remote.UploadAudio, remote.Save)
	if r.mode == Dictation {
		r.stopDictation()
	}
	r.mode = None
	r.buf.Clear()
	r.listener.TranscriptChanged(None, Cleared)
}

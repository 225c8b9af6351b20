// Package session owns one transcript-to-notes session and serializes every
// state change onto a single event loop.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/alkime/scribe/internal/apperr"
	"github.com/alkime/scribe/internal/dictation"
	"github.com/alkime/scribe/internal/export"
	"github.com/alkime/scribe/internal/ingest"
	"github.com/alkime/scribe/internal/notes"
	"github.com/alkime/scribe/internal/remote"
	"github.com/alkime/scribe/internal/transcript"
	"github.com/alkime/scribe/pkg/channels"
)

// ErrClosed is returned by operations after the loop has stopped.
var ErrClosed = errors.New("session closed")

// queueSize bounds pending loop work before posters block.
const queueSize = 64

// Backend is every remote operation a session uses.
type Backend interface {
	ingest.Backend
	notes.Generator
	export.Renderer
}

// Config wires a Controller.
type Config struct {
	Backend    Backend
	Capability dictation.Capability
	Sink       export.Sink
	Logger     *slog.Logger
}

// Controller is the session state machine.
//
// Every field below the loop marker is only touched on the loop goroutine.
type Controller struct {
	logger *slog.Logger

	queue   chan func()
	stopped chan struct{}
	running atomic.Bool

	coord    *remote.Coordinator
	adapter  *dictation.Adapter
	router   *ingest.Router
	pipeline *notes.Pipeline
	exporter *export.Controller
	bc       *channels.Broadcaster[Update]

	// loop-owned
	ctx        context.Context
	out        chan<- Update
	buf        *transcript.Buffer
	state      State
	recording  dictation.State
	artifact   *notes.Artifact
	exportPath string
	// the last failure stays on every update until the next operation
	failOp  Op
	failErr *apperr.Error
}

// New creates a session controller. Call Run to start its loop.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "session")

	c := &Controller{
		logger:  logger,
		queue:   make(chan func(), queueSize),
		stopped: make(chan struct{}),
		buf:     transcript.NewBuffer(),
		bc:      channels.NewBroadcaster[Update](),
	}
	c.coord = remote.NewCoordinator(c.post, logger)
	c.adapter = dictation.NewAdapter(cfg.Capability, logger)
	c.router = ingest.NewRouter(ingest.Config{
		Buffer:      c.buf,
		Coordinator: c.coord,
		Backend:     cfg.Backend,
		Dictation:   c.adapter,
		Post:        c.post,
		Listener:    listener{c},
		Logger:      logger,
	})
	c.pipeline = notes.NewPipeline(c.coord, cfg.Backend, logger)
	c.exporter = export.NewController(c.coord, cfg.Backend, cfg.Sink, logger)
	return c
}

// Subscribe registers ch for updates. ch must be buffered; when it is full
// the oldest pending update is discarded, so the latest snapshot always
// arrives. Must be called before Run.
func (c *Controller) Subscribe(ch chan Update) error {
	return c.bc.SubscribeLatest(ch)
}

// DictationAvailable reports whether live dictation can be offered.
func (c *Controller) DictationAvailable() bool {
	return c.adapter.Available()
}

// Run drains the event loop until ctx is cancelled. Pending jobs are
// cancelled and an active dictation is stopped on the way out.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("session already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.ctx = ctx

	// The broadcaster outlives the loop so a final publish never races its
	// shutdown.
	bcCtx, bcCancel := context.WithCancel(context.Background())
	defer func() {
		bcCancel()
		c.bc.Wait()
	}()
	if out, err := c.bc.Run(bcCtx); err == nil {
		c.out = out
	}

	c.logger.Debug("session started", "dictation", c.adapter.Available())
	if err := c.adapter.UnavailableError(); err != nil {
		c.publish(OpDictation, err)
	} else {
		c.publish("", nil)
	}

	for {
		select {
		case fn := <-c.queue:
			fn()
		case <-ctx.Done():
			c.shutdown()
			return nil
		}
	}
}

func (c *Controller) shutdown() {
	c.coord.CancelAll()
	if err := c.adapter.Stop(); err != nil {
		c.logger.Warn("failed to stop dictation", "error", err)
	}
	close(c.stopped)
	c.adapter.Wait()
	c.coord.Wait()
	c.logger.Debug("session stopped")
}

// post schedules fn on the loop. Work posted after shutdown is dropped.
func (c *Controller) post(fn func()) {
	select {
	case c.queue <- fn:
	case <-c.stopped:
	}
}

// do runs fn on the loop and waits for its result.
func (c *Controller) do(fn func() error) error {
	errc := make(chan error, 1)
	select {
	case c.queue <- func() { errc <- fn() }:
	case <-c.stopped:
		return ErrClosed
	}
	select {
	case err := <-errc:
		return err
	case <-c.stopped:
		return ErrClosed
	}
}

// operate runs a user operation on the loop. It resets the reported failure
// first.
func (c *Controller) operate(fn func() error) error {
	return c.do(func() error {
		c.failOp, c.failErr = "", nil
		return fn()
	})
}

// StartDictation clears the transcript and starts live dictation.
func (c *Controller) StartDictation() error {
	return c.operate(func() error {
		err := c.router.StartDictation(c.ctx)
		// unavailability was already reported when the session started
		if err != nil && !errors.Is(err, apperr.ErrCapabilityUnavailable) {
			c.publish(OpDictation, err)
		}
		return err
	})
}

// StopDictation stops live dictation; the transcript is saved afterwards.
func (c *Controller) StopDictation() error {
	return c.operate(func() error {
		return c.fail(OpDictation, c.router.StopDictation())
	})
}

// ToggleDictation starts dictation when idle and stops it otherwise.
func (c *Controller) ToggleDictation() error {
	if c.Recording() == dictation.Idle {
		return c.StartDictation()
	}
	return c.StopDictation()
}

// SubmitText replaces the transcript with manually entered text.
func (c *Controller) SubmitText(text string) error {
	return c.operate(func() error {
		return c.fail(OpManual, c.router.SubmitText(c.ctx, text))
	})
}

// SubmitVideo fetches a remote video's transcript.
func (c *Controller) SubmitVideo(sourceURL string) error {
	return c.operate(func() error {
		_, err := c.router.SubmitVideo(c.ctx, sourceURL)
		if err == nil {
			c.publish("", nil)
		}
		return c.fail(OpVideo, err)
	})
}

// UploadAudio transcribes an audio file.
func (c *Controller) UploadAudio(f ingest.File) error {
	return c.operate(func() error {
		_, err := c.router.SubmitAudio(c.ctx, f)
		if err == nil {
			c.publish("", nil)
		}
		return c.fail(OpUpload, err)
	})
}

// GenerateNotes generates notes from the current transcript. A newer request
// supersedes an older one.
func (c *Controller) GenerateNotes() error {
	return c.operate(func() error {
		_, err := c.pipeline.Generate(c.ctx, c.buf.Snapshot(), func(a *notes.Artifact, err error) {
			if err != nil {
				c.publish(OpGenerate, err)
				return
			}
			c.artifact = a
			c.exportPath = ""
			c.state = HasNotes
			c.publish("", nil)
		})
		if err == nil {
			c.publish("", nil)
		}
		return c.fail(OpGenerate, err)
	})
}

// Export renders the current notes into a document.
func (c *Controller) Export() error {
	return c.operate(func() error {
		_, err := c.exporter.Export(c.ctx, c.artifact, func(path string, err error) {
			if err != nil {
				c.publish(OpExport, err)
				return
			}
			c.exportPath = path
			c.publish("", nil)
		})
		if err == nil {
			c.publish("", nil)
		}
		return c.fail(OpExport, err)
	})
}

// Clear empties the transcript and discards the notes from any state.
func (c *Controller) Clear() error {
	return c.operate(func() error {
		c.router.Clear()
		return nil
	})
}

// Snapshot returns the current session view.
func (c *Controller) Snapshot() (Update, error) {
	var u Update
	err := c.do(func() error {
		u = c.view()
		return nil
	})
	return u, err
}

// Recording returns the dictation state without going through the loop.
func (c *Controller) Recording() dictation.State {
	return c.adapter.State()
}

// fail publishes err for op and returns it classified.
func (c *Controller) fail(op Op, err error) error {
	if err == nil {
		return nil
	}
	c.publish(op, err)
	return apperr.Classify(err)
}

// invalidate drops the notes after the transcript changed.
func (c *Controller) invalidate() {
	c.coord.CancelKinds(remote.GenerateNotes, remote.ExportPdf)
	c.artifact = nil
	c.exportPath = ""
	if c.buf.Empty() {
		c.state = Empty
	} else {
		c.state = HasTranscript
	}
}

func (c *Controller) view() Update {
	u := Update{
		State:              c.state,
		Mode:               c.router.Mode(),
		Transcript:         c.buf.Snapshot(),
		Interim:            c.buf.Interim(),
		Recording:          c.recording,
		DictationAvailable: c.adapter.Available(),
		Notes:              c.artifact,
		ExportPath:         c.exportPath,
		Op:                 c.failOp,
		Err:                c.failErr,
	}
	for _, k := range []remote.Kind{remote.Save, remote.GenerateNotes, remote.FetchYoutube, remote.ExportPdf} {
		if h := c.coord.Pending(k); h != nil {
			u.Busy = append(u.Busy, h.Kind)
		}
	}
	return u
}

// publish sends the current view. A non-nil err becomes the reported
// failure.
func (c *Controller) publish(op Op, err error) {
	if err != nil {
		c.logger.Warn("operation failed", "op", op, "error", err)
		c.failOp, c.failErr = op, apperr.Classify(err)
	}
	if c.out == nil {
		return
	}
	c.out <- c.view()
}

// listener adapts router callbacks onto the controller. It is only invoked
// on the loop.
type listener struct {
	c *Controller
}

func (l listener) TranscriptChanged(_ ingest.Mode, change ingest.Change) {
	if change != ingest.InterimUpdated {
		l.c.invalidate()
	}
	l.c.publish("", nil)
}

func (l listener) RecordingChanged(state dictation.State) {
	l.c.recording = state
	l.c.publish("", nil)
}

func (l listener) Saved() {
	l.c.logger.Debug("transcript saved")
	u := l.c.view()
	u.Saved = true
	if l.c.out != nil {
		l.c.out <- u
	}
}

func (l listener) Failed(mode ingest.Mode, err error) {
	l.c.publish(opFor(mode), err)
}

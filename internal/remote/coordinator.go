// Package remote coordinates outbound calls to the backend.
//
// Each job kind occupies a slot that holds at most one pending job. A new
// dispatch into an occupied slot cancels the previous job, and a completion
// is only delivered when its job is still the slot's current one. This is
// what makes rapid repeated actions last-request-wins.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alkime/scribe/internal/apperr"
)

// Kind identifies an operation against the backend.
type Kind int

const (
	// Save persists the transcript.
	Save Kind = iota
	// GenerateNotes turns a transcript into structured notes.
	GenerateNotes
	// FetchYoutube extracts a transcript from a remote video.
	FetchYoutube
	// UploadAudio transcribes an uploaded audio file.
	UploadAudio
	// ExportPdf renders notes into a PDF document.
	ExportPdf
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Save:
		return "save"
	case GenerateNotes:
		return "generate_notes"
	case FetchYoutube:
		return "fetch_youtube"
	case UploadAudio:
		return "upload_audio"
	case ExportPdf:
		return "export_pdf"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// slot maps a kind to the slot it occupies. Remote video and audio upload
// both feed the transcript, so they share one.
func (k Kind) slot() Kind {
	if k == UploadAudio {
		return FetchYoutube
	}
	return k
}

// Status is the lifecycle state of a job.
type Status int

const (
	// Pending jobs are in flight.
	Pending Status = iota
	// Succeeded jobs delivered a result.
	Succeeded
	// Failed jobs delivered a classified error.
	Failed
	// Cancelled jobs were superseded or cancelled; their result is discarded.
	Cancelled
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Handle identifies a dispatched job.
type Handle struct {
	ID   uint64
	Kind Kind

	cancel context.CancelFunc
	status Status
}

// Poster schedules fn to run on the owner's event loop. Completions are
// always delivered through it so they serialize with other state changes.
type Poster func(fn func())

// Inline runs fn immediately on the calling goroutine.
func Inline(fn func()) { fn() }

// Coordinator runs jobs with single-flight semantics per slot.
type Coordinator struct {
	post   Poster
	logger *slog.Logger

	mu      sync.Mutex
	seq     uint64
	current map[Kind]*Handle
	wg      sync.WaitGroup
}

// NewCoordinator creates a coordinator delivering completions through post.
func NewCoordinator(post Poster, logger *slog.Logger) *Coordinator {
	if post == nil {
		post = Inline
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		post:    post,
		logger:  logger,
		current: make(map[Kind]*Handle),
	}
}

// Dispatch starts fn as a job of the given kind, cancelling any pending job
// in the same slot first. done runs through the coordinator's Poster only if
// the job is still current when fn returns; its error is always classified.
func Dispatch[T any](
	c *Coordinator,
	ctx context.Context,
	kind Kind,
	fn func(context.Context) (T, error),
	done func(T, error),
) *Handle {
	jobCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if prev := c.current[kind.slot()]; prev != nil {
		c.cancelLocked(prev)
		c.logger.Debug("superseded pending job", "kind", prev.Kind, "id", prev.ID)
	}
	c.seq++
	h := &Handle{ID: c.seq, Kind: kind, cancel: cancel, status: Pending}
	c.current[kind.slot()] = h
	c.mu.Unlock()

	c.logger.Debug("dispatched job", "kind", kind, "id", h.ID)

	c.wg.Go(func() {
		defer cancel()

		value, err := run(jobCtx, fn)
		c.post(func() {
			if !c.finish(h, err) {
				c.logger.Debug("discarded stale completion", "kind", h.Kind, "id", h.ID)
				return
			}
			if done != nil {
				done(value, apperrOrNil(err))
			}
		})
	})

	return h
}

// run invokes fn, converting panics into classified errors.
func run[T any](ctx context.Context, fn func(context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperr.Network(fmt.Errorf("job panicked: %v", r))
		}
	}()
	return fn(ctx)
}

func apperrOrNil(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Classify(err)
}

// finish records the terminal status of h and reports whether it was still
// current. Stale jobs keep their Cancelled status.
func (c *Coordinator) finish(h *Handle, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current[h.Kind.slot()] != h || h.status != Pending {
		return false
	}
	delete(c.current, h.Kind.slot())
	if err != nil {
		h.status = Failed
	} else {
		h.status = Succeeded
	}
	return true
}

// Cancel cancels h if it is still pending. Its completion will be discarded.
func (c *Coordinator) Cancel(h *Handle) {
	if h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked(h)
}

// CancelKinds cancels the pending jobs occupying the slots of kinds.
func (c *Coordinator) CancelKinds(kinds ...Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range kinds {
		if h := c.current[k.slot()]; h != nil {
			c.cancelLocked(h)
		}
	}
}

// CancelAll cancels every pending job.
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range c.current {
		c.cancelLocked(h)
	}
}

func (c *Coordinator) cancelLocked(h *Handle) {
	if h.status != Pending {
		return
	}
	h.status = Cancelled
	h.cancel()
	if c.current[h.Kind.slot()] == h {
		delete(c.current, h.Kind.slot())
	}
}

// IsCurrent reports whether h is the pending job of its slot.
func (c *Coordinator) IsCurrent(h *Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return h != nil && c.current[h.Kind.slot()] == h && h.status == Pending
}

// Status returns the lifecycle status of h.
func (c *Coordinator) Status(h *Handle) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return h.status
}

// Pending returns the pending job occupying kind's slot, or nil.
func (c *Coordinator) Pending(kind Kind) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current[kind.slot()]
}

// Wait blocks until every dispatched job function has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Package dictation wraps the optional live speech recognition capability
// behind a uniform start/stop/event interface.
package dictation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alkime/scribe/internal/apperr"
)

// Event is emitted by a Recognizer: a Result or a Failure.
type Event interface {
	isEvent()
}

// Result is a recognition result. Interim results for an utterance are
// superseded by later events; a final result is durable.
type Result struct {
	Index   int
	IsFinal bool
	Text    string
}

// ErrorCode classifies recognizer failures.
type ErrorCode int

const (
	// NoMicrophone means no capture device is available.
	NoMicrophone ErrorCode = iota
	// PermissionDenied means microphone access was refused.
	PermissionDenied
	// NoSpeech means the session ended without recognizable speech.
	NoSpeech
	// Transport means the recognition backend could not be reached.
	Transport
	// Aborted means the platform aborted the session.
	Aborted
)

// String returns the code name.
func (c ErrorCode) String() string {
	switch c {
	case NoMicrophone:
		return "no-microphone"
	case PermissionDenied:
		return "not-allowed"
	case NoSpeech:
		return "no-speech"
	case Transport:
		return "network"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Failure reports a recognizer error. It always ends the session.
type Failure struct {
	Code ErrorCode
	Err  error
}

// Ended is delivered once after the recognizer's event stream closes.
type Ended struct{}

func (Result) isEvent()  {}
func (Failure) isEvent() {}
func (Ended) isEvent()   {}

// AsError converts a failure into the application error taxonomy.
func (f Failure) AsError() *apperr.Error {
	var kind apperr.Kind
	msg := "speech recognition error: " + f.Code.String()
	switch f.Code {
	case NoMicrophone:
		kind = apperr.NoMicrophone
	case PermissionDenied:
		kind = apperr.PermissionDenied
	case NoSpeech:
		kind = apperr.NoSpeechDetected
	case Transport:
		kind = apperr.NetworkError
	default:
		kind = apperr.Cancelled
	}
	return &apperr.Error{Kind: kind, Message: msg, Cause: f.Err}
}

// Recognizer is a continuous dictation engine.
type Recognizer interface {
	// Start begins recognition. Events arrive in order on the returned
	// channel, which the recognizer closes when the session is over.
	Start(ctx context.Context) (<-chan Event, error)
	// Stop requests a graceful stop. Pending results are still delivered
	// before the channel closes.
	Stop() error
}

// Capability is the probed availability of live dictation: Available or
// Unavailable.
type Capability interface {
	isCapability()
}

// Available carries a usable recognizer.
type Available struct {
	Recognizer Recognizer
}

// Unavailable records why dictation cannot be offered.
type Unavailable struct {
	Reason error
}

func (Available) isCapability()   {}
func (Unavailable) isCapability() {}

// Probe runs open once and returns the resulting capability variant.
func Probe(ctx context.Context, open func(context.Context) (Recognizer, error)) Capability {
	if open == nil {
		return Unavailable{Reason: errors.New("no speech recognizer configured")}
	}
	rec, err := open(ctx)
	if err != nil {
		return Unavailable{Reason: err}
	}
	if rec == nil {
		return Unavailable{Reason: errors.New("speech recognizer missing")}
	}
	return Available{Recognizer: rec}
}

// State is the recording session state.
type State int

const (
	// Idle means no session is running.
	Idle State = iota
	// Starting means the recognizer is being started.
	Starting
	// Active means results are being delivered.
	Active
	// Stopping means a graceful stop was requested.
	Stopping
	// Error means a failure ended the session; it settles to Idle.
	Error
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Active:
		return "active"
	case Stopping:
		return "stopping"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Adapter runs at most one recording session over a capability.
type Adapter struct {
	capability Capability
	logger     *slog.Logger

	mu    sync.Mutex
	state State
	done  chan struct{}
}

// NewAdapter creates an adapter for a probed capability.
func NewAdapter(capability Capability, logger *slog.Logger) *Adapter {
	if capability == nil {
		capability = Unavailable{Reason: errors.New("capability not probed")}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{capability: capability, logger: logger}
}

// Available reports whether live dictation can be offered at all.
func (a *Adapter) Available() bool {
	_, ok := a.capability.(Available)
	return ok
}

// UnavailableError describes why dictation is disabled, or nil.
func (a *Adapter) UnavailableError() error {
	u, ok := a.capability.(Unavailable)
	if !ok {
		return nil
	}
	return &apperr.Error{
		Kind:    apperr.CapabilityUnavailable,
		Message: "live dictation is not supported on this device",
		Cause:   u.Reason,
	}
}

// State returns the current recording session state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Start begins a recording session. Every recognizer event, followed by a
// final Ended, is passed to emit in arrival order from a single goroutine.
func (a *Adapter) Start(ctx context.Context, emit func(Event)) error {
	avail, ok := a.capability.(Available)
	if !ok {
		return a.UnavailableError()
	}

	a.mu.Lock()
	if a.state != Idle {
		state := a.state
		a.mu.Unlock()
		return &apperr.Error{
			Kind:    apperr.AlreadyActive,
			Message: "a dictation session is already " + state.String(),
		}
	}
	a.state = Starting
	a.mu.Unlock()

	events, err := avail.Recognizer.Start(ctx)
	if err != nil {
		a.setState(Error)
		a.setState(Idle)
		return startError(err)
	}

	done := make(chan struct{})
	a.mu.Lock()
	a.state = Active
	a.done = done
	a.mu.Unlock()

	go a.pump(avail.Recognizer, events, emit, done)

	return nil
}

func (a *Adapter) pump(rec Recognizer, events <-chan Event, emit func(Event), done chan struct{}) {
	defer close(done)

	for ev := range events {
		if f, ok := ev.(Failure); ok {
			a.logger.Warn("dictation failure", "code", f.Code, "error", f.Err)
			a.setState(Error)
			// a failed session must wind down even if the recognizer would not
			if err := rec.Stop(); err != nil {
				a.logger.Debug("stop after failure", "error", err)
			}
		}
		emit(ev)
	}

	a.setState(Idle)
	emit(Ended{})
}

// Stop requests a graceful stop. It is a no-op unless the session is Active.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	if a.state != Active {
		a.mu.Unlock()
		return nil
	}
	a.state = Stopping
	a.mu.Unlock()

	avail, _ := a.capability.(Available)
	if err := avail.Recognizer.Stop(); err != nil {
		return fmt.Errorf("failed to stop recognizer: %w", err)
	}
	return nil
}

// Wait blocks until the current session's event stream has been drained.
func (a *Adapter) Wait() {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (a *Adapter) setState(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

// startError classifies a recognizer start failure.
func startError(err error) error {
	var f Failure
	if errors.As(err, &f) {
		return f.AsError()
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &apperr.Error{Kind: apperr.NoMicrophone, Message: "failed to start dictation", Cause: err}
}

// Error lets a Failure be returned from Recognizer.Start.
func (f Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("dictation %s: %v", f.Code, f.Err)
	}
	return "dictation " + f.Code.String()
}

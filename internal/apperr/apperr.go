// Package apperr defines the error taxonomy surfaced to the session layer.
//
// Every component converts its failures into an *Error at its boundary, so
// callers above that boundary only ever branch on Kind.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// Unknown is never produced by a component boundary; it marks an
	// unclassified error passed to KindOf.
	Unknown Kind = iota
	// CapabilityUnavailable means live dictation is not supported here.
	CapabilityUnavailable
	// AlreadyActive means a dictation session is already running.
	AlreadyActive
	// PermissionDenied means the user or platform refused microphone access.
	PermissionDenied
	// NoMicrophone means no capture device could be opened.
	NoMicrophone
	// NoSpeechDetected means a dictation session ended without speech.
	NoSpeechDetected
	// ValidationError is a local, pre-network rejection.
	ValidationError
	// NetworkError is a transport-level failure. The user may retry.
	NetworkError
	// ServerError carries a message reported by the backend.
	ServerError
	// Cancelled means the job was superseded or cancelled by the caller.
	Cancelled
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case CapabilityUnavailable:
		return "capability_unavailable"
	case AlreadyActive:
		return "already_active"
	case PermissionDenied:
		return "permission_denied"
	case NoMicrophone:
		return "no_microphone"
	case NoSpeechDetected:
		return "no_speech_detected"
	case ValidationError:
		return "validation"
	case NetworkError:
		return "network"
	case ServerError:
		return "server"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is a classified failure.
type Error struct {
	// Kind classifies the error.
	Kind Kind
	// Message is a human-readable description.
	Message string
	// Field names the rejected input for validation errors.
	Field string
	// Status is the HTTP status code for server errors (0 otherwise).
	Status int
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of the same Kind.
// This lets callers write errors.Is(err, apperr.ErrValidation).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" || t == e
}

// Sentinels for errors.Is comparisons. They match any *Error of their kind.
var (
	ErrCapabilityUnavailable = &Error{Kind: CapabilityUnavailable}
	ErrAlreadyActive         = &Error{Kind: AlreadyActive}
	ErrPermissionDenied      = &Error{Kind: PermissionDenied}
	ErrNoMicrophone          = &Error{Kind: NoMicrophone}
	ErrNoSpeech              = &Error{Kind: NoSpeechDetected}
	ErrValidation            = &Error{Kind: ValidationError}
	ErrNetwork               = &Error{Kind: NetworkError}
	ErrServer                = &Error{Kind: ServerError}
	ErrCancelled             = &Error{Kind: Cancelled}
)

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation creates a validation error for a named input.
func Validation(field, message string) *Error {
	return &Error{Kind: ValidationError, Field: field, Message: message}
}

// Network wraps a transport failure.
func Network(cause error) *Error {
	return &Error{Kind: NetworkError, Message: "request failed", Cause: cause}
}

// Server creates an error carrying the backend's message.
func Server(status int, message string) *Error {
	if message == "" {
		message = "server error"
	}
	return &Error{Kind: ServerError, Status: status, Message: message}
}

// Canceled wraps a cancellation.
func Canceled(cause error) *Error {
	return &Error{Kind: Cancelled, Message: "request cancelled", Cause: cause}
}

// KindOf returns the Kind of err, or Unknown when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// IsRetryable reports whether retrying the same operation may succeed.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case NetworkError, ServerError, NoSpeechDetected:
		return true
	default:
		return false
	}
}

// Classify converts any error into an *Error. Already classified errors are
// returned unchanged; context cancellation becomes Cancelled and everything
// else is treated as a network failure.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) {
		return Canceled(err)
	}
	return Network(err)
}

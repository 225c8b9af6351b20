package dictation

import (
	"context"
	"errors"
	"sync"
)

// MockRecognizer is a scripted Recognizer for tests and headless runs.
// Events pushed with Emit are delivered in order; Stop closes the stream.
type MockRecognizer struct {
	// StartErr, when set, is returned by Start.
	StartErr error

	mu      sync.Mutex
	ch      chan Event
	starts  int
	stopped bool
}

// Start opens a new event stream.
func (m *MockRecognizer) Start(ctx context.Context) (<-chan Event, error) {
	if ctx == nil {
		return nil, errors.New("nil context")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StartErr != nil {
		return nil, m.StartErr
	}
	m.ch = make(chan Event, 64)
	m.starts++
	m.stopped = false
	return m.ch, nil
}

// Emit delivers ev on the current stream. It is dropped when no stream is
// open.
func (m *MockRecognizer) Emit(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ch == nil || m.stopped {
		return
	}
	m.ch <- ev
}

// Stop closes the current stream.
func (m *MockRecognizer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ch == nil || m.stopped {
		return nil
	}
	m.stopped = true
	close(m.ch)
	return nil
}

// Starts returns how many sessions were started.
func (m *MockRecognizer) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

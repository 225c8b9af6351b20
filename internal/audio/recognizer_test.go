package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkime/scribe/internal/dictation"
)

type fakeCapturer struct {
	mu      sync.Mutex
	dataC   chan<- []byte
	openErr error
	started bool
	closed  bool
}

func (f *fakeCapturer) Open(dataC chan<- []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.dataC = dataC
	return nil
}

func (f *fakeCapturer) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeCapturer) Stop() error { return nil }

func (f *fakeCapturer) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeCapturer) feed(p []byte) {
	f.mu.Lock()
	c := f.dataC
	f.mu.Unlock()
	c <- p
}

type countingTranscriber struct {
	calls atomic.Int32
	err   error

	mu        sync.Mutex
	languages []string
}

func (c *countingTranscriber) TranscribeClip(_ context.Context, _, language string, audio io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, audio); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.languages = append(c.languages, language)
	c.mu.Unlock()
	n := c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return fmt.Sprintf("words %d", n), nil
}

// tone returns d of loud 16 kHz mono PCM.
func tone(d time.Duration) []byte {
	n := int(d.Seconds() * DefaultSampleRate)
	out := make([]byte, n*2)
	for i := range n {
		v := int16(8000)
		if i%2 == 1 {
			v = -8000
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func newTestRecognizer(t *testing.T, tr Transcriber, capt *fakeCapturer) *Recognizer {
	t.Helper()
	r, err := NewRecognizer(RecognizerConfig{Interim: 20 * time.Millisecond, Window: time.Hour}, tr, nil)
	require.NoError(t, err)
	r.newCapturer = func(DeviceConfig) Capturer { return capt }
	return r
}

func collect(t *testing.T, events <-chan dictation.Event) []dictation.Event {
	t.Helper()
	var out []dictation.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("event stream did not close")
			return out
		}
	}
}

func TestRecognizerFinalOnStop(t *testing.T) {
	capt := &fakeCapturer{}
	tr := &countingTranscriber{}
	r := newTestRecognizer(t, tr, capt)

	events, err := r.Start(t.Context())
	require.NoError(t, err)
	capt.feed(tone(200 * time.Millisecond))
	require.Eventually(t, func() bool { return tr.calls.Load() > 0 }, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, r.Stop())

	got := collect(t, events)
	require.NotEmpty(t, got)
	last, ok := got[len(got)-1].(dictation.Result)
	require.True(t, ok, "last event is a result: %#v", got[len(got)-1])
	assert.True(t, last.IsFinal)
	assert.Equal(t, 0, last.Index)
	for _, ev := range got[:len(got)-1] {
		res, ok := ev.(dictation.Result)
		require.True(t, ok)
		assert.False(t, res.IsFinal)
	}
	assert.True(t, capt.closed)
}

func TestRecognizerSendsLanguage(t *testing.T) {
	capt := &fakeCapturer{}
	tr := &countingTranscriber{}
	r, err := NewRecognizer(RecognizerConfig{Interim: 20 * time.Millisecond, Window: time.Hour, Language: "fr"}, tr, nil)
	require.NoError(t, err)
	r.newCapturer = func(DeviceConfig) Capturer { return capt }

	events, err := r.Start(t.Context())
	require.NoError(t, err)
	capt.feed(tone(100 * time.Millisecond))
	require.NoError(t, r.Stop())
	collect(t, events)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.NotEmpty(t, tr.languages)
	for _, lang := range tr.languages {
		assert.Equal(t, "fr", lang)
	}
}

func TestRecognizerSilenceIsNoSpeech(t *testing.T) {
	capt := &fakeCapturer{}
	tr := &countingTranscriber{}
	r := newTestRecognizer(t, tr, capt)

	events, err := r.Start(t.Context())
	require.NoError(t, err)
	capt.feed(make([]byte, 3200))
	require.NoError(t, r.Stop())

	got := collect(t, events)
	require.Len(t, got, 1)
	f, ok := got[0].(dictation.Failure)
	require.True(t, ok)
	assert.Equal(t, dictation.NoSpeech, f.Code)
	assert.Zero(t, tr.calls.Load(), "silence is never sent for transcription")
}

func TestRecognizerTransportFailure(t *testing.T) {
	capt := &fakeCapturer{}
	tr := &countingTranscriber{err: errors.New("backend down")}
	r := newTestRecognizer(t, tr, capt)

	events, err := r.Start(t.Context())
	require.NoError(t, err)
	capt.feed(tone(100 * time.Millisecond))

	got := collect(t, events)
	require.Len(t, got, 1)
	f, ok := got[0].(dictation.Failure)
	require.True(t, ok)
	assert.Equal(t, dictation.Transport, f.Code)
}

func TestRecognizerOpenFailure(t *testing.T) {
	capt := &fakeCapturer{openErr: errors.New("no device")}
	r := newTestRecognizer(t, &countingTranscriber{}, capt)

	_, err := r.Start(t.Context())
	var f dictation.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, dictation.NoMicrophone, f.Code)
}

func TestRecognizerWindowRollsOver(t *testing.T) {
	capt := &fakeCapturer{}
	tr := &countingTranscriber{}
	r, err := NewRecognizer(RecognizerConfig{Interim: 20 * time.Millisecond, Window: 50 * time.Millisecond}, tr, nil)
	require.NoError(t, err)
	r.newCapturer = func(DeviceConfig) Capturer { return capt }

	events, err := r.Start(t.Context())
	require.NoError(t, err)
	capt.feed(tone(100 * time.Millisecond))
	require.Eventually(t, func() bool { return tr.calls.Load() > 0 }, 5*time.Second, 5*time.Millisecond)
	capt.feed(tone(100 * time.Millisecond))
	require.Eventually(t, func() bool { return tr.calls.Load() > 1 }, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, r.Stop())

	var finals []dictation.Result
	for _, ev := range collect(t, events) {
		if res, ok := ev.(dictation.Result); ok && res.IsFinal {
			finals = append(finals, res)
		}
	}
	require.GreaterOrEqual(t, len(finals), 2)
	for i, res := range finals {
		assert.Equal(t, i, res.Index)
	}
}

func TestRecognizerConfigValidate(t *testing.T) {
	_, err := NewRecognizer(RecognizerConfig{Interim: time.Second, Window: time.Millisecond}, &countingTranscriber{}, nil)
	assert.Error(t, err)

	_, err = NewRecognizer(RecognizerConfig{}, nil, nil)
	assert.Error(t, err)
}

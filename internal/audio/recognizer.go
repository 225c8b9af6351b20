package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alkime/scribe/internal/dictation"
)

// Transcriber turns an encoded audio clip into text. Clips are partial, so
// implementations must not store the result anywhere.
type Transcriber interface {
	TranscribeClip(ctx context.Context, filename, language string, audio io.Reader) (string, error)
}

// Recognizer implements live dictation on top of a capture device and a
// clip transcriber. Audio is gathered into windows: the open window is
// re-transcribed every Interim as an interim result, and becomes a final
// result once it spans Window or the session stops.
type Recognizer struct {
	cfg         RecognizerConfig
	transcriber Transcriber
	encoder     *ClipEncoder
	newCapturer func(DeviceConfig) Capturer
	logger      *slog.Logger

	ring  *SampleRingBuffer
	meter *LevelMeter

	mu   sync.Mutex
	stop context.CancelFunc
}

// NewRecognizer creates a recognizer using the malgo capture device.
func NewRecognizer(cfg RecognizerConfig, transcriber Transcriber, logger *slog.Logger) (*Recognizer, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recognizer config: %w", err)
	}
	if transcriber == nil {
		return nil, errors.New("transcriber cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	encoder, err := NewClipEncoder(EncoderConfig{SampleRate: cfg.Device.SampleRate}, logger)
	if err != nil {
		return nil, err
	}

	ring := NewSampleRingBuffer(cfg.Device.SampleRate / 2)
	return &Recognizer{
		cfg:         cfg,
		transcriber: transcriber,
		encoder:     encoder,
		newCapturer: NewDevice,
		logger:      logger.With("component", "recognizer"),
		ring:        ring,
		meter:       NewLevelMeter(ring, 16),
	}, nil
}

// Levels exposes recent input loudness for display.
func (r *Recognizer) Levels() *LevelMeter {
	return r.meter
}

// Start opens the capture device and begins recognition.
func (r *Recognizer) Start(ctx context.Context) (<-chan dictation.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return nil, errors.New("recognizer already running")
	}

	pcm := make(chan []byte, 256)
	capt := r.newCapturer(r.cfg.Device)
	if err := capt.Open(pcm); err != nil {
		return nil, dictation.Failure{Code: dictation.NoMicrophone, Err: err}
	}
	if err := capt.Start(); err != nil {
		capt.Close()
		return nil, dictation.Failure{Code: dictation.PermissionDenied, Err: err}
	}

	stopCtx, stop := context.WithCancel(ctx)
	r.stop = stop
	events := make(chan dictation.Event, 16)

	go r.run(ctx, stopCtx, capt, pcm, events)

	r.logger.Debug("recognition started", "device", r.cfg.Device.DeviceName)
	return events, nil
}

// Stop ends capture. The open window is transcribed as a final result
// before the event channel closes.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		r.stop()
	}
	return nil
}

func (r *Recognizer) run(
	ctx, stopCtx context.Context,
	capt Capturer,
	pcm <-chan []byte,
	events chan<- dictation.Event,
) {
	defer func() {
		r.mu.Lock()
		r.stop = nil
		r.mu.Unlock()
		close(events)
	}()
	defer capt.Close()

	w := &window{bytesPerSecond: r.cfg.Device.BytesPerSecond()}
	g, gctx := errgroup.WithContext(stopCtx)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case p := <-pcm:
				w.append(p)
				r.ring.Write(BytesToInt16(p))
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(r.cfg.Interim)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := r.tick(gctx, w, events, false); err != nil {
					return err
				}
			}
		}
	})

	err := g.Wait()
	if stopErr := capt.Stop(); stopErr != nil {
		r.logger.Warn("failed to stop capture", "error", stopErr)
	}

	for drained := false; !drained; {
		select {
		case p := <-pcm:
			w.append(p)
		default:
			drained = true
		}
	}

	if ctx.Err() != nil {
		// session is going away; nobody is listening for a final result
		return
	}
	if err == nil {
		err = r.tick(ctx, w, events, true)
	}
	switch {
	case err != nil:
		events <- dictation.Failure{Code: dictation.Transport, Err: err}
	case !w.heardSpeech():
		events <- dictation.Failure{Code: dictation.NoSpeech, Err: errors.New("no speech detected")}
	}
	r.logger.Debug("recognition finished", "results", w.index)
}

// tick transcribes the open window. It emits a final result when the window
// is full or final is set, and an interim result otherwise.
func (r *Recognizer) tick(ctx context.Context, w *window, events chan<- dictation.Event, final bool) error {
	clip, fresh, full := w.snapshot(r.cfg.Window)
	final = final || full
	if !fresh && !final {
		return nil
	}

	text := ""
	if RMS(BytesToInt16(clip)) >= r.cfg.SilenceRMS {
		var err error
		text, err = r.transcribe(ctx, clip)
		if err != nil {
			if ctx.Err() != nil && !final {
				return nil
			}
			return err
		}
	}

	index := w.index
	if final {
		w.consume(len(clip), text != "")
	}
	if text == "" {
		return nil
	}

	select {
	case events <- dictation.Result{Index: index, IsFinal: final, Text: text}:
	case <-ctx.Done():
	}
	return nil
}

func (r *Recognizer) transcribe(ctx context.Context, clip []byte) (string, error) {
	mp3, err := r.encoder.Encode(ctx, clip)
	if err != nil {
		return "", fmt.Errorf("failed to encode clip: %w", err)
	}
	text, err := r.transcriber.TranscribeClip(ctx, "dictation.mp3", r.cfg.Language, bytes.NewReader(mp3))
	if err != nil {
		return "", fmt.Errorf("failed to transcribe clip: %w", err)
	}
	return text, nil
}

// window accumulates PCM for the utterance being recognized.
type window struct {
	bytesPerSecond int

	mu      sync.Mutex
	pcm     []byte
	seen    int
	index   int
	results int
}

func (w *window) append(p []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pcm = append(w.pcm, p...)
}

// snapshot returns a copy of the window, whether audio arrived since the
// last snapshot, and whether the window spans limit.
func (w *window) snapshot(limit time.Duration) (clip []byte, fresh, full bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	clip = bytes.Clone(w.pcm)
	fresh = len(w.pcm) > w.seen
	w.seen = len(w.pcm)
	full = w.bytesPerSecond > 0 &&
		time.Duration(len(w.pcm))*time.Second/time.Duration(w.bytesPerSecond) >= limit
	return clip, fresh, full
}

// consume drops the first n bytes after they became a final result.
func (w *window) consume(n int, spoke bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pcm = w.pcm[n:]
	w.seen = 0
	if spoke {
		w.index++
		w.results++
	}
}

func (w *window) heardSpeech() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.results > 0
}

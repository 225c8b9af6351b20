package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
)

// ErrEmptyClip is returned when a clip holds no samples.
var ErrEmptyClip = errors.New("clip has no audio")

// ClipEncoder turns dictation clips (S16LE mono PCM) into MP3 files small
// enough to upload on every interim tick.
type ClipEncoder struct {
	config EncoderConfig
	logger *slog.Logger
}

// NewClipEncoder creates a clip encoder. Zero config fields get defaults.
func NewClipEncoder(config EncoderConfig, logger *slog.Logger) (*ClipEncoder, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid encoder config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClipEncoder{config: config, logger: logger.With("component", "encoder")}, nil
}

// Encode encodes one clip. Every clip gets a fresh encoder, so clips are
// independent MP3 files. ctx is checked between batches.
func (e *ClipEncoder) Encode(ctx context.Context, pcm []byte) ([]byte, error) {
	if len(pcm) < 2 {
		return nil, ErrEmptyClip
	}

	// shine-mp3 mis-steps mono input, so frames are encoded as stereo
	enc := mp3encoder.NewEncoder(e.config.SampleRate, 2)
	var out bytes.Buffer
	batches := 0

	for rest := pcm; len(rest) >= 2; batches++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("clip encoding cancelled: %w", err)
		}
		n := min(len(rest), e.config.BufferThreshold)
		if err := enc.Write(&out, stereo(BytesToInt16(rest[:n]))); err != nil {
			return nil, fmt.Errorf("failed to encode audio to MP3: %w", err)
		}
		rest = rest[n:]
	}

	e.logger.Debug("encoded clip",
		"duration", e.duration(len(pcm)),
		"pcmBytes", len(pcm),
		"mp3Bytes", out.Len(),
		"batches", batches)
	return out.Bytes(), nil
}

func (e *ClipEncoder) duration(pcmBytes int) time.Duration {
	perSecond := e.config.SampleRate * e.config.Channels * 2
	return time.Duration(pcmBytes) * time.Second / time.Duration(perSecond)
}

// stereo duplicates each mono sample into both channels.
func stereo(mono []int16) []int16 {
	out := make([]int16, len(mono)*2)
	for i, s := range mono {
		out[i*2] = s
		out[i*2+1] = s
	}
	return out
}

package audio

import "errors"

const (
	// DefaultBufferThreshold is 4 KiB, 128ms of 16 kHz mono audio.
	DefaultBufferThreshold = 4096
	// DefaultSampleRate is 16 kHz, what Whisper resamples to anyway.
	DefaultSampleRate = 16000
	// DefaultChannels is mono.
	DefaultChannels = 1
)

// EncoderConfig configures the clip encoder.
type EncoderConfig struct {
	SampleRate int
	// Channels must be 1; frames are widened to stereo internally.
	Channels int
	// BufferThreshold is the number of PCM bytes encoded per batch.
	BufferThreshold int
}

// Validate returns an error if the config is invalid.
func (c EncoderConfig) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}
	if c.Channels != 1 {
		return errors.New("only mono (1 channel) is supported")
	}
	if c.BufferThreshold <= 0 {
		return errors.New("buffer threshold must be positive")
	}
	return nil
}

// WithDefaults returns a config with default values applied to zero fields.
func (c EncoderConfig) WithDefaults() EncoderConfig {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}
	if c.BufferThreshold == 0 {
		c.BufferThreshold = DefaultBufferThreshold
	}
	return c
}

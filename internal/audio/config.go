package audio

import (
	"errors"
	"time"

	"github.com/gen2brain/malgo"
)

// DeviceConfig describes the capture format.
type DeviceConfig struct {
	Format          malgo.FormatType
	CaptureChannels int
	SampleRate      int
	// DeviceName selects a capture device by name. Empty means the default.
	DeviceName string
}

// DefaultDeviceConfig captures 16 kHz mono S16LE from the default device.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		Format:          malgo.FormatS16,
		CaptureChannels: DefaultChannels,
		SampleRate:      DefaultSampleRate,
	}
}

// BytesPerSecond is the PCM data rate of the config.
func (c DeviceConfig) BytesPerSecond() int {
	return c.SampleRate * c.CaptureChannels * malgo.SampleSizeInBytes(c.Format)
}

const (
	// DefaultWindow is how much speech is gathered before a result is final.
	DefaultWindow = 12 * time.Second
	// DefaultInterim is how often the open window is re-transcribed.
	DefaultInterim = 3 * time.Second
	// DefaultSilenceRMS is the level below which a window counts as silence.
	DefaultSilenceRMS = 300
)

// RecognizerConfig configures live dictation.
type RecognizerConfig struct {
	Device DeviceConfig
	// Window bounds one final result.
	Window time.Duration
	// Interim is the interval between interim results.
	Interim time.Duration
	// SilenceRMS skips windows quieter than this level.
	SilenceRMS float64
	// Language is sent with every clip. Empty lets the transcriber detect it.
	Language string
}

// WithDefaults fills zero fields.
func (c RecognizerConfig) WithDefaults() RecognizerConfig {
	if c.Device.SampleRate == 0 {
		c.Device = DefaultDeviceConfig()
	}
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.Interim == 0 {
		c.Interim = DefaultInterim
	}
	if c.SilenceRMS == 0 {
		c.SilenceRMS = DefaultSilenceRMS
	}
	return c
}

// Validate returns an error if the config is unusable.
func (c RecognizerConfig) Validate() error {
	if c.Device.CaptureChannels != 1 {
		return errors.New("only mono capture is supported")
	}
	if c.Interim <= 0 || c.Window < c.Interim {
		return errors.New("window must be at least one interim interval")
	}
	return nil
}

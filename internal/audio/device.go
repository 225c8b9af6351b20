package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gen2brain/malgo"

	"github.com/alkime/scribe/pkg/collections"
)

// ErrNoDevice is returned when no capture device matches.
var ErrNoDevice = errors.New("no capture device available")

// Capturer streams raw PCM packets from a capture device.
type Capturer interface {
	// Open allocates the device; packets are delivered to dataC once
	// started. Packets are dropped when dataC is full.
	Open(dataC chan<- []byte) error
	Start() error
	Stop() error
	// Close frees the device. It is safe to call more than once.
	Close()
}

type device struct {
	conf DeviceConfig

	mgCtx    *malgo.AllocatedContext
	mgDevice *malgo.Device
}

// NewDevice returns a malgo backed Capturer.
func NewDevice(conf DeviceConfig) Capturer {
	return &device{conf: conf}
}

// Info describes a capture device.
type Info struct {
	Name      string
	IsDefault bool
	Formats   []string
}

// ListDevices enumerates the available capture devices.
func ListDevices() ([]Info, error) {
	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	defer freeContext(mgCtx)

	infos, err := mgCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to list capture devices: %w", err)
	}

	return collections.Apply(infos, toInfo), nil
}

// Probe checks that at least one capture device exists.
func Probe() error {
	infos, err := ListDevices()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return ErrNoDevice
	}
	return nil
}

func (d *device) Open(dataC chan<- []byte) error {
	if dataC == nil {
		return errors.New("data channel is nil")
	}
	if d.mgDevice != nil {
		return errors.New("device already open")
	}

	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize audio context: %w", err)
	}

	devCnf := malgo.DefaultDeviceConfig(malgo.Capture)
	devCnf.Capture.Format = d.conf.Format
	devCnf.Capture.Channels = uint32(d.conf.CaptureChannels)
	devCnf.SampleRate = uint32(d.conf.SampleRate)

	if d.conf.DeviceName != "" {
		id, err := findDevice(mgCtx, d.conf.DeviceName)
		if err != nil {
			freeContext(mgCtx)
			return err
		}
		devCnf.Capture.DeviceID = id.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, samples []byte, _ uint32) {
			// malgo reuses the sample buffer after the callback returns
			packet := slices.Clone(samples)
			select {
			case dataC <- packet:
			default:
			}
		},
	}

	mgDevice, err := malgo.InitDevice(mgCtx.Context, devCnf, callbacks)
	if err != nil {
		freeContext(mgCtx)
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	d.mgCtx = mgCtx
	d.mgDevice = mgDevice
	return nil
}

func (d *device) Start() error {
	if d.mgDevice == nil {
		return errors.New("device not open")
	}
	if d.mgDevice.IsStarted() {
		return nil
	}
	if err := d.mgDevice.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (d *device) Stop() error {
	if d.mgDevice == nil || !d.mgDevice.IsStarted() {
		return nil
	}
	if err := d.mgDevice.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func (d *device) Close() {
	if d.mgDevice == nil {
		return
	}
	d.mgDevice.Uninit()
	freeContext(d.mgCtx)
	d.mgDevice = nil
	d.mgCtx = nil
}

func findDevice(mgCtx *malgo.AllocatedContext, name string) (malgo.DeviceID, error) {
	infos, err := mgCtx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceID{}, fmt.Errorf("failed to list capture devices: %w", err)
	}
	for _, info := range infos {
		if info.Name() == name {
			return info.ID, nil
		}
	}
	return malgo.DeviceID{}, fmt.Errorf("%w: %q", ErrNoDevice, name)
}

func toInfo(mdi malgo.DeviceInfo) Info {
	formats := make([]string, mdi.FormatCount)
	for i, mf := range mdi.Formats[:mdi.FormatCount] {
		formats[i] = fmt.Sprintf("%d-bit %dch %dHz",
			malgo.SampleSizeInBytes(mf.Format)*8, mf.Channels, mf.SampleRate)
	}
	return Info{
		Name:      mdi.Name(),
		IsDefault: mdi.IsDefault != 0,
		Formats:   formats,
	}
}

func freeContext(mgCtx *malgo.AllocatedContext) {
	if mgCtx == nil {
		return
	}
	if err := mgCtx.Uninit(); err != nil {
		slog.Error("failed to uninitialize audio context", "error", err)
	}
	mgCtx.Free()
}

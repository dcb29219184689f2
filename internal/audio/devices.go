package audio

import (
	"fmt"

	"github.com/gen2brain/malgo"
)

// DeviceInfo describes an input device.
type DeviceInfo struct {
	Name    string
	Default bool
}

// ListInputDevices returns the capture devices known to the audio backend.
func ListInputDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("listing capture devices: %w", err)
	}
	out := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		out = append(out, DeviceInfo{
			Name:    infos[i].Name(),
			Default: infos[i].IsDefault != 0,
		})
	}
	return out, nil
}

// NewSource creates the capture source for the named driver.
func NewSource(driver string, cfg SourceConfig) (Source, error) {
	switch driver {
	case "malgo", "":
		src, err := NewMalgoSource(cfg)
		if err != nil {
			return nil, err
		}
		return src, nil
	case "portaudio":
		src, err := NewPortAudioSource(cfg)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("audio: unknown driver %q (supported: malgo, portaudio)", driver)
	}
}

package audio

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoSource captures audio from an input device through miniaudio.
type MalgoSource struct {
	*framer
	ctx *malgo.AllocatedContext

	mu      sync.Mutex
	device  *malgo.Device
	running bool
}

// NewMalgoSource initialises the audio context. Call Close() when done.
func NewMalgoSource(cfg SourceConfig) (*MalgoSource, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}
	return &MalgoSource{
		framer: newFramer(cfg),
		ctx:    ctx,
	}, nil
}

// Start opens the capture device and begins delivering frames.
func (s *MalgoSource) Start(onFrame func(Frame)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	s.framer.reset(onFrame)

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = uint32(s.cfg.Channels)
	deviceCfg.SampleRate = uint32(s.cfg.SampleRate)
	if s.cfg.Device != "" {
		id, err := findCaptureDevice(s.ctx, s.cfg.Device)
		if err != nil {
			return err
		}
		deviceCfg.Capture.DeviceID = id.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: s.onData,
	}

	device, err := malgo.InitDevice(s.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		return fmt.Errorf("initializing capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("starting capture device: %w", err)
	}

	s.device = device
	s.running = true
	return nil
}

// Stop ends the capture and delivers any buffered samples.
func (s *MalgoSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	if s.device != nil {
		s.device.Uninit()
		s.device = nil
	}
	s.running = false
	s.mu.Unlock()

	s.framer.flush()
	return nil
}

// Close releases all audio resources.
func (s *MalgoSource) Close() error {
	s.mu.Lock()
	if s.device != nil {
		s.device.Uninit()
		s.device = nil
	}
	s.running = false
	s.mu.Unlock()

	if s.ctx != nil {
		if err := s.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninitializing audio context: %w", err)
		}
		s.ctx.Free()
		s.ctx = nil
	}
	return nil
}

// onData is the malgo callback invoked when audio data is available.
// pSample contains the captured audio frames as raw bytes (float32 format).
func (s *MalgoSource) onData(_, pSample []byte, frameCount uint32) {
	sampleCount := frameCount * uint32(s.cfg.Channels)
	s.framer.push(bytesToFloat32(pSample, sampleCount))
}

func findCaptureDevice(ctx *malgo.AllocatedContext, name string) (malgo.DeviceID, error) {
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceID{}, fmt.Errorf("listing capture devices: %w", err)
	}
	want := strings.ToLower(name)
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), want) {
			return infos[i].ID, nil
		}
	}
	return malgo.DeviceID{}, fmt.Errorf("no capture device matching %q", name)
}

//go:build portaudio

package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource captures the default input device through PortAudio.
type PortAudioSource struct {
	*framer

	mu      sync.Mutex
	stream  *portaudio.Stream
	buffer  []float32
	running bool
	done    chan struct{}
}

// NewPortAudioSource initialises PortAudio. Call Close() when done.
func NewPortAudioSource(cfg SourceConfig) (*PortAudioSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}
	f := newFramer(cfg)
	return &PortAudioSource{
		framer: f,
		buffer: make([]float32, f.cfg.ChunkSize*f.cfg.Channels),
	}, nil
}

// Start opens the default input stream and begins delivering frames.
func (s *PortAudioSource) Start(onFrame func(Frame)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	s.framer.reset(onFrame)

	stream, err := portaudio.OpenDefaultStream(
		s.cfg.Channels,
		0,
		float64(s.cfg.SampleRate),
		s.cfg.ChunkSize,
		s.buffer,
	)
	if err != nil {
		return fmt.Errorf("opening input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("starting input stream: %w", err)
	}

	s.stream = stream
	s.running = true
	s.done = make(chan struct{})
	go s.readLoop(stream, s.done)
	return nil
}

func (s *PortAudioSource) readLoop(stream *portaudio.Stream, done chan struct{}) {
	defer close(done)
	var retry readRetry
	for {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if !running {
			return
		}
		// An overflow still fills the buffer; only the dropped input is lost.
		if err := stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			delay, again := retry.fail()
			if !again {
				slog.Error("portaudio: giving up on input stream", "failures", maxReadFailures, "error", err)
				return
			}
			slog.Warn("portaudio: read failed", "error", err, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		retry.ok()
		chunk := make([]float32, len(s.buffer))
		copy(chunk, s.buffer)
		s.framer.push(chunk)
	}
}

// Stop closes the stream and delivers any buffered samples.
func (s *PortAudioSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	stream, done := s.stream, s.done
	s.stream = nil
	s.mu.Unlock()

	<-done
	if stream != nil {
		stream.Stop()
		stream.Close()
	}
	s.framer.flush()
	return nil
}

// Close stops capture and terminates PortAudio.
func (s *PortAudioSource) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("terminating portaudio: %w", err)
	}
	return nil
}

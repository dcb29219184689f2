package audio

import (
	"fmt"
	"sync"
	"time"
)

// WAVSource plays a WAV file through the Source interface. Samples are
// resampled to the configured rate. With Realtime set, frames are paced
// at the audio's natural rate; otherwise the file is delivered as fast as
// the callback accepts it.
type WAVSource struct {
	*framer
	samples  []float32
	Realtime bool

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewWAVSource loads path and prepares it for playback at cfg.SampleRate.
func NewWAVSource(path string, cfg SourceConfig) (*WAVSource, error) {
	samples, rate, err := ReadWAV(path)
	if err != nil {
		return nil, err
	}
	return NewSampleSource(Resample(samples, rate, cfg.withDefaults().SampleRate), cfg), nil
}

// NewSampleSource plays back samples that are already mono at cfg.SampleRate.
func NewSampleSource(samples []float32, cfg SourceConfig) *WAVSource {
	cfg = cfg.withDefaults()
	cfg.Channels = 1
	return &WAVSource{
		framer:  newFramer(cfg),
		samples: samples,
		done:    closedChan(),
	}
}

// Len returns the number of samples in the file.
func (s *WAVSource) Len() int { return len(s.samples) }

// Start begins playback on a new goroutine.
func (s *WAVSource) Start(onFrame func(Frame)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	s.framer.reset(onFrame)
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.play(s.stop, s.done)
	return nil
}

func (s *WAVSource) play(stop, done chan struct{}) {
	defer close(done)
	chunk := s.cfg.ChunkSize
	interval := time.Duration(chunk) * time.Second / time.Duration(s.cfg.SampleRate)
loop:
	for off := 0; off < len(s.samples); off += chunk {
		select {
		case <-stop:
			break loop
		default:
		}
		end := min(off+chunk, len(s.samples))
		s.framer.push(s.samples[off:end])
		if s.Realtime {
			select {
			case <-stop:
				break loop
			case <-time.After(interval):
			}
		}
	}
	s.framer.flush()
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Done is closed when playback reaches the end of the file or is stopped.
func (s *WAVSource) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Stop ends playback early and waits for the playback goroutine.
func (s *WAVSource) Stop() error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	if s.running && stop != nil {
		close(stop)
	}
	s.running = false
	s.stop = nil
	s.mu.Unlock()
	<-done
	return nil
}

// Close stops playback.
func (s *WAVSource) Close() error {
	if err := s.Stop(); err != nil {
		return fmt.Errorf("audio: close wav source: %w", err)
	}
	return nil
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Package audio captures microphone input and provides the sample
// conversions, level metering and spectrum analysis used by the pipeline.
//
// All sources deliver mono float32 frames in [-1, 1] of a fixed
// chunk size through a callback.
package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrAlreadyRunning is returned by Start on a source that is capturing.
	ErrAlreadyRunning = errors.New("audio: source already running")
	// ErrDriverUnavailable is returned for capture drivers not compiled in.
	ErrDriverUnavailable = errors.New("audio: driver not available in this build")
)

// Frame is one fixed-size chunk of captured audio.
type Frame struct {
	Seq        uint64
	Samples    []float32 // mono, [-1, 1]
	SampleRate int
	CapturedAt time.Time
}

// Duration returns the playback length of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// Source produces audio frames.
type Source interface {
	// Start begins capture; onFrame is called from the capture goroutine.
	Start(onFrame func(Frame)) error
	// Stop ends capture. Buffered samples are delivered as a final short frame.
	Stop() error
	// Pause keeps the device open but drops incoming frames until Resume.
	Pause()
	Resume()
	Paused() bool
	// Close releases the device and driver resources.
	Close() error
}

// SourceConfig describes the capture format.
type SourceConfig struct {
	SampleRate int
	Channels   int
	ChunkSize  int    // samples per emitted frame
	Device     string // substring of the input device name; empty for default
}

func (c SourceConfig) withDefaults() SourceConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1024
	}
	return c
}

// framer turns an arbitrary stream of interleaved samples into fixed-size
// mono frames. It is shared by all sources.
type framer struct {
	cfg    SourceConfig
	paused atomic.Bool

	mu      sync.Mutex
	pending []float32
	seq     uint64
	onFrame func(Frame)
}

func newFramer(cfg SourceConfig) *framer {
	return &framer{cfg: cfg.withDefaults()}
}

func (f *framer) reset(onFrame func(Frame)) {
	f.mu.Lock()
	f.pending = f.pending[:0]
	f.onFrame = onFrame
	f.mu.Unlock()
}

// Pause drops frames until Resume is called.
func (f *framer) Pause() { f.paused.Store(true) }

// Resume restarts frame delivery after Pause.
func (f *framer) Resume() { f.paused.Store(false) }

// Paused reports whether frames are currently dropped.
func (f *framer) Paused() bool { return f.paused.Load() }

// push appends interleaved samples and emits every complete frame.
func (f *framer) push(interleaved []float32) {
	if f.paused.Load() {
		return
	}
	mono := Downmix(interleaved, f.cfg.Channels)

	f.mu.Lock()
	f.pending = append(f.pending, mono...)
	var frames []Frame
	for len(f.pending) >= f.cfg.ChunkSize {
		frames = append(frames, f.frameLocked(f.cfg.ChunkSize))
	}
	cb := f.onFrame
	f.mu.Unlock()

	if cb == nil {
		return
	}
	for _, fr := range frames {
		cb(fr)
	}
}

// flush emits the remaining samples as a short frame.
func (f *framer) flush() {
	f.mu.Lock()
	if len(f.pending) == 0 || f.onFrame == nil {
		f.mu.Unlock()
		return
	}
	fr := f.frameLocked(len(f.pending))
	cb := f.onFrame
	f.mu.Unlock()
	cb(fr)
}

func (f *framer) frameLocked(n int) Frame {
	samples := make([]float32, n)
	copy(samples, f.pending[:n])
	f.pending = append(f.pending[:0], f.pending[n:]...)
	f.seq++
	return Frame{
		Seq:        f.seq,
		Samples:    samples,
		SampleRate: f.cfg.SampleRate,
		CapturedAt: time.Now(),
	}
}

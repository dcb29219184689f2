// Package window slices a continuous sample stream into fixed-length,
// optionally overlapping windows for transcription.
//
// A Windower is not safe for concurrent use; callers serialise Push,
// Flush and Reset.
package window

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidConfig is returned by New for unusable window parameters.
var ErrInvalidConfig = errors.New("window: invalid config")

// Window is a fixed-length slice of the stream.
type Window struct {
	Seq        uint64    // 1-based, strictly increasing
	Start      int64     // absolute sample offset of Samples[0] in the stream
	Samples    []float32 // owned by the receiver
	SampleRate int
	Final      bool // emitted by Flush; may be zero padded
}

// Duration returns the playback length of the window.
func (w Window) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}

// Offset returns the stream time of the first sample.
func (w Window) Offset() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(w.Start) * time.Second / time.Duration(w.SampleRate)
}

// End returns the absolute offset one past the last sample.
func (w Window) End() int64 { return w.Start + int64(len(w.Samples)) }

// Config controls window geometry and memory bounds.
type Config struct {
	SampleRate    int
	WindowSeconds float64
	OverlapRatio  float64 // fraction of a window shared with the next one, [0, 1)
	// MaxBufferSamples bounds the samples held between windows. Values
	// below the window size are raised to it. Zero means twice the window.
	MaxBufferSamples int
	// MinFlushSamples zero-pads the final window up to this length.
	MinFlushSamples int
}

// Windower accumulates samples and cuts windows.
type Windower struct {
	size    int
	overlap int
	hop     int
	max     int
	minTail int
	rate    int

	buf        []float32
	bufStart   int64 // absolute offset of buf[0]
	emittedEnd int64 // absolute end of the last emitted window
	seq        uint64
	dropped    int64
}

// New validates cfg and returns a Windower.
func New(cfg Config) (*Windower, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be > 0", ErrInvalidConfig)
	}
	if cfg.WindowSeconds <= 0 {
		return nil, fmt.Errorf("%w: window duration must be > 0", ErrInvalidConfig)
	}
	if cfg.OverlapRatio < 0 || cfg.OverlapRatio >= 1 {
		return nil, fmt.Errorf("%w: overlap ratio %g outside [0, 1)", ErrInvalidConfig, cfg.OverlapRatio)
	}
	size := int(math.Round(float64(cfg.SampleRate) * cfg.WindowSeconds))
	if size <= 0 {
		return nil, fmt.Errorf("%w: window of %gs is shorter than one sample", ErrInvalidConfig, cfg.WindowSeconds)
	}
	overlap := int(float64(size) * cfg.OverlapRatio)
	if overlap >= size {
		overlap = size - 1
	}

	maxBuf := cfg.MaxBufferSamples
	if maxBuf == 0 {
		maxBuf = 2 * size
	}
	maxBuf = max(maxBuf, size)

	return &Windower{
		size:    size,
		overlap: overlap,
		hop:     size - overlap,
		max:     maxBuf,
		minTail: cfg.MinFlushSamples,
		rate:    cfg.SampleRate,
		buf:     make([]float32, 0, size),
	}, nil
}

// Size returns the window length in samples.
func (w *Windower) Size() int { return w.size }

// Hop returns the distance in samples between consecutive window starts.
func (w *Windower) Hop() int { return w.hop }

// Overlap returns the number of samples shared by consecutive windows.
func (w *Windower) Overlap() int { return w.overlap }

// Buffered returns the number of samples waiting for the next window.
func (w *Windower) Buffered() int { return len(w.buf) }

// Dropped returns the number of samples discarded by the buffer bound.
func (w *Windower) Dropped() int64 { return w.dropped }

// Push appends samples and returns every window that became complete.
func (w *Windower) Push(samples []float32) []Window {
	w.buf = append(w.buf, samples...)

	if excess := len(w.buf) - w.max; excess > 0 {
		w.buf = append(w.buf[:0], w.buf[excess:]...)
		w.bufStart += int64(excess)
		w.dropped += int64(excess)
	}

	var out []Window
	for len(w.buf) >= w.size {
		out = append(out, w.cut(w.size, false))
		w.buf = append(w.buf[:0], w.buf[w.hop:]...)
		w.bufStart += int64(w.hop)
	}
	return out
}

// Flush emits the remaining audio as a final window when it holds at least
// one sample not covered by an earlier window. The buffer is emptied.
func (w *Windower) Flush() (Window, bool) {
	end := w.bufStart + int64(len(w.buf))
	if len(w.buf) == 0 || end <= w.emittedEnd {
		w.discard()
		return Window{}, false
	}
	win := w.cut(len(w.buf), true)
	if pad := w.minTail - len(win.Samples); pad > 0 {
		win.Samples = append(win.Samples, make([]float32, pad)...)
	}
	w.discard()
	return win, true
}

// Reset discards buffered audio and restarts sequence numbering and
// stream offsets from zero.
func (w *Windower) Reset() {
	w.buf = w.buf[:0]
	w.bufStart = 0
	w.emittedEnd = 0
	w.seq = 0
	w.dropped = 0
}

func (w *Windower) cut(n int, final bool) Window {
	samples := make([]float32, n)
	copy(samples, w.buf[:n])
	w.seq++
	win := Window{
		Seq:        w.seq,
		Start:      w.bufStart,
		Samples:    samples,
		SampleRate: w.rate,
		Final:      final,
	}
	w.emittedEnd = w.bufStart + int64(n)
	return win
}

func (w *Windower) discard() {
	w.bufStart += int64(len(w.buf))
	w.buf = w.buf[:0]
}

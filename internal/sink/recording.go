package sink

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chaz8081/stt-demo/internal/audio"
)

// Recording saves every captured frame of a session to a WAV file. It is
// attached to the pipeline with pipeline.WithFrameTap(rec.Tap).
type Recording struct {
	mu     sync.Mutex
	w      *audio.WAVWriter
	path   string
	failed bool
}

// NewRecording creates <dir>/recording-<timestamp>.wav.
func NewRecording(dir string, sampleRate int, now time.Time) (*Recording, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("sink: creating recording dir: %w", err)
	}
	path := filepath.Join(dir, "recording-"+now.Format("20060102-150405")+".wav")
	w, err := audio.CreateWAV(path, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}
	return &Recording{w: w, path: path}, nil
}

// Path returns the WAV file path.
func (r *Recording) Path() string { return r.path }

// Tap appends the frame to the recording. The first write error is logged
// and recording stops.
func (r *Recording) Tap(f audio.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil || r.failed {
		return
	}
	if err := r.w.Write(f.Samples); err != nil {
		r.failed = true
		slog.Error("recording stopped", "path", r.path, "error", err)
	}
}

// Duration returns the length of the recorded audio.
func (r *Recording) Duration(sampleRate int) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil || sampleRate <= 0 {
		return 0
	}
	return time.Duration(r.w.Samples()) * time.Second / time.Duration(sampleRate)
}

// Close finalises the WAV header.
func (r *Recording) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	err := r.w.Close()
	r.w = nil
	if err != nil {
		return fmt.Errorf("sink: closing recording: %w", err)
	}
	return nil
}

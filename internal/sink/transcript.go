package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chaz8081/stt-demo/internal/pipeline"
)

// Transcript appends results to a daily file
// <dir>/transcript-YYYY-MM-DD.txt.
type Transcript struct {
	dir string

	mu   sync.Mutex
	day  string
	file *os.File
}

// NewTranscript creates dir if needed and returns a transcript sink.
func NewTranscript(dir string) (*Transcript, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("sink: creating transcript dir: %w", err)
	}
	return &Transcript{dir: dir}, nil
}

// Path returns the transcript file for the day of t.
func (t *Transcript) Path(at time.Time) string {
	return filepath.Join(t.dir, "transcript-"+at.Format("2006-01-02")+".txt")
}

// Handle appends result events.
func (t *Transcript) Handle(ev pipeline.Event) error {
	if ev.Type != pipeline.EventResult {
		return nil
	}
	r := ev.Result

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.openLocked(r.Timestamp); err != nil {
		return err
	}
	line := fmt.Sprintf("[%s] [%s %.2f] %s\n", r.Timestamp.Format("15:04:05"), r.Backend, r.Confidence, r.Text)
	if _, err := t.file.WriteString(line); err != nil {
		return fmt.Errorf("sink: writing transcript: %w", err)
	}
	return nil
}

// openLocked opens the file for the day of at, rolling over at midnight.
func (t *Transcript) openLocked(at time.Time) error {
	day := at.Format("2006-01-02")
	if t.file != nil && t.day == day {
		return nil
	}
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
	f, err := os.OpenFile(t.Path(at), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("sink: opening transcript: %w", err)
	}
	t.file = f
	t.day = day
	return nil
}

// Close closes the current file.
func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	if err != nil {
		return fmt.Errorf("sink: closing transcript: %w", err)
	}
	return nil
}

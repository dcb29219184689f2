package sink

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chaz8081/stt-demo/internal/pipeline"
)

const meterWidth = 30

// Console prints results and errors to a terminal. With Meter set it also
// draws a level meter on the current line.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	meter   bool
	inMeter bool
}

// NewConsole creates a console sink writing to w.
func NewConsole(w io.Writer, meter bool) *Console {
	return &Console{w: w, meter: meter}
}

// Handle prints ev.
func (c *Console) Handle(ev pipeline.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	switch ev.Type {
	case pipeline.EventResult:
		r := ev.Result
		c.endMeter()
		_, err = fmt.Fprintf(c.w, "[%s] (%.2f) %s\n", r.Timestamp.Format("15:04:05"), r.Confidence, r.Text)
	case pipeline.EventError:
		c.endMeter()
		_, err = fmt.Fprintf(c.w, "ERROR: %s\n", ev.Error)
	case pipeline.EventState:
		c.endMeter()
		_, err = fmt.Fprintf(c.w, "-- %s (backend: %s, language: %s)\n", ev.State.State, ev.State.Backend, ev.State.Language)
	case pipeline.EventLevel:
		if c.meter {
			_, err = fmt.Fprintf(c.w, "\r%s", Meter(ev.Level.RMS, meterWidth))
			c.inMeter = true
		}
	}
	if err != nil {
		return fmt.Errorf("sink: console: %w", err)
	}
	return nil
}

// endMeter moves off a partially drawn meter line.
func (c *Console) endMeter() {
	if c.inMeter {
		fmt.Fprintln(c.w)
		c.inMeter = false
	}
}

// Close ends the meter line.
func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endMeter()
	return nil
}

// Meter renders level in [0, 1] as a bar of the given width.
func Meter(level float64, width int) string {
	n := int(min(max(level, 0), 1)*float64(width) + 0.5)
	return "[" + strings.Repeat("#", n) + strings.Repeat(" ", width-n) + "]"
}

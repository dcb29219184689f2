package sink

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"github.com/chaz8081/stt-demo/internal/pipeline"
)

const (
	appName       = "stt-demo"
	maxNotifyText = 100
)

// Notifier shows a desktop notification for each result and error.
type Notifier struct {
	notify func(title, message, icon string) error
}

// NewNotifier creates a notification sink backed by beeep.
func NewNotifier() *Notifier {
	return &Notifier{notify: beeep.Notify}
}

// Handle notifies on results and errors.
func (n *Notifier) Handle(ev pipeline.Event) error {
	var title, msg string
	switch ev.Type {
	case pipeline.EventResult:
		title, msg = appName, truncate(ev.Result.Text, maxNotifyText)
	case pipeline.EventError:
		title, msg = appName+": error", truncate(ev.Error, maxNotifyText)
	default:
		return nil
	}
	if err := n.notify(title, msg, ""); err != nil {
		return fmt.Errorf("sink: notify: %w", err)
	}
	return nil
}

// Close is a no-op.
func (n *Notifier) Close() error { return nil }

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

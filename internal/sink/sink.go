// Package sink delivers pipeline events to their destinations: the
// terminal, a transcript file, desktop notifications and a WAV recording.
package sink

import (
	"context"
	"errors"
	"log/slog"

	"github.com/chaz8081/stt-demo/internal/pipeline"
)

// Sink consumes pipeline events.
type Sink interface {
	Handle(ev pipeline.Event) error
	Close() error
}

// Run feeds events to every sink until events is closed or ctx ends.
// Sink errors are logged and do not stop delivery to other sinks.
func Run(ctx context.Context, events <-chan pipeline.Event, sinks ...Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			for _, s := range sinks {
				if err := s.Handle(ev); err != nil {
					slog.Warn("sink failed", "type", ev.Type, "error", err)
				}
			}
		}
	}
}

// CloseAll closes every sink and joins the errors.
func CloseAll(sinks ...Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

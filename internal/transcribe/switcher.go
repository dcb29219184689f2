package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chaz8081/stt-demo/internal/stt"
)

// Switcher holds the active Transcriber and replaces it at runtime
// (hot-swap). It implements stt.Transcriber by delegating to the
// current backend.
type Switcher struct {
	factory Factory

	mu      sync.RWMutex
	current stt.Transcriber
	opts    Options
}

// NewSwitcher loads the named backend. A nil factory uses New.
func NewSwitcher(name string, opts Options, factory Factory) (*Switcher, error) {
	if factory == nil {
		factory = New
	}
	t, err := factory(name, opts)
	if err != nil {
		return nil, err
	}
	return &Switcher{factory: factory, current: t, opts: opts}, nil
}

// Name returns the name of the current backend.
func (s *Switcher) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Name()
}

// Transcribe runs the current backend. A concurrent Swap waits for
// in-flight calls before closing the old backend.
func (s *Switcher) Transcribe(ctx context.Context, samples []float32) (stt.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return stt.Transcript{}, stt.ErrNotLoaded
	}
	return s.current.Transcribe(ctx, samples)
}

// Swap loads the named backend and replaces the current one. On error the
// current backend stays active.
func (s *Switcher) Swap(name string) error {
	s.mu.RLock()
	opts := s.opts
	s.mu.RUnlock()

	next, err := s.factory(name, opts)
	if err != nil {
		return fmt.Errorf("transcribe: switch to %s: %w", name, err)
	}

	s.mu.Lock()
	old := s.current
	s.current = next
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			slog.Warn("closing previous backend", "backend", old.Name(), "error", err)
		}
	}
	slog.Info("backend switched", "backend", name)
	return nil
}

// SetLanguage updates the language for the current and future backends.
func (s *Switcher) SetLanguage(lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Language = lang
	if ls, ok := s.current.(stt.LanguageSetter); ok {
		return ls.SetLanguage(lang)
	}
	return nil
}

// Language returns the configured language.
func (s *Switcher) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts.Language
}

// Close closes the current backend.
func (s *Switcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	err := s.current.Close()
	s.current = nil
	return err
}

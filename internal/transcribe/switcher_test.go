package transcribe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chaz8081/stt-demo/internal/stt"
)

// fakeBackend is a scripted stt.Transcriber for tests.
type fakeBackend struct {
	name   string
	delay  time.Duration
	closed atomic.Bool
	inUse  atomic.Int32
	lang   string
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Transcribe(ctx context.Context, samples []float32) (stt.Transcript, error) {
	if f.closed.Load() {
		return stt.Transcript{}, errors.New("use after close")
	}
	f.inUse.Add(1)
	defer f.inUse.Add(-1)
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return stt.Transcript{}, ctx.Err()
	}
	return stt.Transcript{Text: f.name, Confidence: 1}, nil
}

func (f *fakeBackend) SetLanguage(lang string) error {
	f.lang = lang
	return nil
}

func (f *fakeBackend) Close() error {
	if f.inUse.Load() != 0 {
		return errors.New("closed while in use")
	}
	f.closed.Store(true)
	return nil
}

type fakeFactory struct {
	mu       sync.Mutex
	created  map[string]*fakeBackend
	delay    time.Duration
	lastOpts Options
}

func (ff *fakeFactory) New(name string, opts Options) (stt.Transcriber, error) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if name == "broken" {
		return nil, errors.New("model missing")
	}
	if ff.created == nil {
		ff.created = map[string]*fakeBackend{}
	}
	b := &fakeBackend{name: name, delay: ff.delay}
	ff.created[name] = b
	ff.lastOpts = opts
	return b, nil
}

func TestSwitcherSwap(t *testing.T) {
	ff := &fakeFactory{}
	s, err := NewSwitcher("whisper", Options{Language: "ko"}, ff.New)
	if err != nil {
		t.Fatalf("NewSwitcher() error = %v", err)
	}
	defer s.Close()

	if s.Name() != "whisper" {
		t.Errorf("Name() = %q, want whisper", s.Name())
	}
	if err := s.Swap("vosk"); err != nil {
		t.Fatalf("Swap() error = %v", err)
	}
	if s.Name() != "vosk" {
		t.Errorf("Name() after swap = %q, want vosk", s.Name())
	}
	if !ff.created["whisper"].closed.Load() {
		t.Error("previous backend should be closed after swap")
	}

	got, err := s.Transcribe(context.Background(), []float32{0})
	if err != nil || got.Text != "vosk" {
		t.Errorf("Transcribe() = %q, %v; want vosk", got.Text, err)
	}
}

func TestSwitcherSwapFailureKeepsCurrent(t *testing.T) {
	ff := &fakeFactory{}
	s, err := NewSwitcher("whisper", Options{}, ff.New)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Swap("broken"); err == nil {
		t.Fatal("Swap() to a broken backend should fail")
	}
	if s.Name() != "whisper" || ff.created["whisper"].closed.Load() {
		t.Error("current backend should remain active after a failed swap")
	}
}

func TestSwitcherSwapWaitsForInFlight(t *testing.T) {
	ff := &fakeFactory{delay: 100 * time.Millisecond}
	s, err := NewSwitcher("whisper", Options{}, ff.New)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Transcribe(context.Background(), []float32{0})
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	if err := s.Swap("openai"); err != nil {
		t.Fatalf("Swap() error = %v", err)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("in-flight Transcribe() error = %v", err)
		}
	}
}

func TestSwitcherSetLanguage(t *testing.T) {
	ff := &fakeFactory{}
	s, err := NewSwitcher("whisper", Options{Language: "ko"}, ff.New)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetLanguage("en"); err != nil {
		t.Fatalf("SetLanguage() error = %v", err)
	}
	if ff.created["whisper"].lang != "en" {
		t.Errorf("backend language = %q, want en", ff.created["whisper"].lang)
	}
	if s.Language() != "en" {
		t.Errorf("Language() = %q, want en", s.Language())
	}

	// New backends are created with the updated language.
	if err := s.Swap("vosk"); err != nil {
		t.Fatal(err)
	}
	if ff.lastOpts.Language != "en" {
		t.Errorf("factory got language %q, want en", ff.lastOpts.Language)
	}
}

func TestSwitcherClosed(t *testing.T) {
	ff := &fakeFactory{}
	s, err := NewSwitcher("whisper", Options{}, ff.New)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := s.Transcribe(context.Background(), []float32{0}); !errors.Is(err, stt.ErrNotLoaded) {
		t.Errorf("Transcribe() after Close() error = %v, want ErrNotLoaded", err)
	}
	if err := s.SetLanguage("en"); err != nil {
		t.Errorf("SetLanguage() after Close() error = %v", err)
	}
}

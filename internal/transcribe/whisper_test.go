//go:build !nowhisper

package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chaz8081/stt-demo/internal/audio"
	"github.com/chaz8081/stt-demo/internal/stt"
)

const jfkTranscript = "And so my fellow Americans, ask not what your country can do for you, ask what you can do for your country."

// whisperModelPath resolves the path to the whisper model relative to the project root.
func whisperModelPath(t testing.TB) string {
	t.Helper()
	path := filepath.Join("..", "..", "models", "ggml-base.bin")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("model not found at %s (run 'stt-demo install whisper' first): %v", path, err)
	}
	return path
}

// jfkSamples loads the JFK sample WAV shipped with whisper.cpp as 16 kHz mono.
func jfkSamples(t testing.TB) []float32 {
	t.Helper()
	wavPath := filepath.Join("..", "..", "third_party", "whisper.cpp", "samples", "jfk.wav")
	samples, rate, err := audio.ReadWAV(wavPath)
	if err != nil {
		t.Skipf("JFK sample not available: %v", err)
	}
	return audio.Resample(samples, rate, stt.SampleRate)
}

func TestNewWhisperTranscriber(t *testing.T) {
	path := whisperModelPath(t)

	tr, err := NewWhisperTranscriber(path, "en", 2)
	if err != nil {
		t.Fatalf("NewWhisperTranscriber(%q) returned error: %v", path, err)
	}
	if tr.Name() != stt.EngineWhisper {
		t.Errorf("Name() = %q, want %q", tr.Name(), stt.EngineWhisper)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
	if _, err := tr.Transcribe(context.Background(), make([]float32, 16000)); !errors.Is(err, stt.ErrNotLoaded) {
		t.Errorf("Transcribe() after Close() error = %v, want ErrNotLoaded", err)
	}
}

func TestNewWhisperTranscriberBadPath(t *testing.T) {
	_, err := NewWhisperTranscriber("/nonexistent/model.bin", "en", 0)
	if err == nil {
		t.Fatal("NewWhisperTranscriber with bad path should return error")
	}
}

func TestWhisperTranscribeJFK(t *testing.T) {
	path := whisperModelPath(t)
	samples := jfkSamples(t)

	tr, err := NewWhisperTranscriber(path, "en", 0)
	if err != nil {
		t.Fatalf("NewWhisperTranscriber: %v", err)
	}
	defer func() { _ = tr.Close() }()

	got, err := tr.Transcribe(context.Background(), samples)
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}

	lower := strings.ToLower(got.Text)
	if !strings.Contains(lower, "ask not what your country") {
		t.Errorf("expected transcript to contain 'ask not what your country', got: %q", got.Text)
	}
	if got.Confidence <= 0.5 || got.Confidence > 1 {
		t.Errorf("Confidence = %f, want in (0.5, 1]", got.Confidence)
	}
	if len(got.Segments) == 0 {
		t.Error("expected at least one segment")
	}
	if wer := stt.ComputeWER(jfkTranscript, got.Text); wer.Rate > 0.2 {
		t.Errorf("WER = %s, want <= 20%%", wer)
	}
}

func TestWhisperTranscribeSilence(t *testing.T) {
	path := whisperModelPath(t)

	tr, err := NewWhisperTranscriber(path, "auto", 0)
	if err != nil {
		t.Fatalf("NewWhisperTranscriber: %v", err)
	}
	defer func() { _ = tr.Close() }()

	// Silent audio should not error, just return empty-ish text
	silence := make([]float32, 16000)
	if _, err := tr.Transcribe(context.Background(), silence); err != nil {
		t.Fatalf("Transcribe on silence returned error: %v", err)
	}

	if _, err := tr.Transcribe(context.Background(), nil); !errors.Is(err, stt.ErrEmptyAudio) {
		t.Errorf("Transcribe(nil) error = %v, want ErrEmptyAudio", err)
	}
}

func TestWhisperTranscribeCancelled(t *testing.T) {
	path := whisperModelPath(t)

	tr, err := NewWhisperTranscriber(path, "en", 0)
	if err != nil {
		t.Fatalf("NewWhisperTranscriber: %v", err)
	}
	defer func() { _ = tr.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	if _, err := tr.Transcribe(ctx, make([]float32, 32000)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Transcribe() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestIsSpecialToken(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"[_BEG_]", true},
		{"[_TT_150]", true},
		{"<|endoftext|>", true},
		{" ask", false},
		{"[music]", false},
	}
	for _, tt := range tests {
		if got := isSpecialToken(tt.text); got != tt.want {
			t.Errorf("isSpecialToken(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

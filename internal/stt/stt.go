// Package stt defines the contract between the audio pipeline and the
// speech-to-text backends, plus backend-neutral text utilities.
package stt

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Engine names.
const (
	EngineWhisper = "whisper"
	EngineVosk    = "vosk"
	EngineOpenAI  = "openai"
)

// SampleRate is the rate every backend expects.
const SampleRate = 16000

var (
	// ErrUnavailable is returned for backends not compiled into the binary.
	ErrUnavailable = errors.New("stt: backend not available in this build")
	// ErrNotLoaded is returned when no model is loaded.
	ErrNotLoaded = errors.New("stt: model not loaded")
	// ErrEmptyAudio is returned for a zero-length input.
	ErrEmptyAudio = errors.New("stt: empty audio")
)

// Segment is a timed piece of a transcript, in seconds from the window start.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the outcome of transcribing one window.
type Transcript struct {
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"` // [0, 1]
	Language   string    `json:"language,omitempty"`
	Segments   []Segment `json:"segments,omitempty"`
}

// Transcriber converts audio samples to text.
type Transcriber interface {
	// Name returns the engine name.
	Name() string
	// Transcribe converts mono 16kHz float32 samples to text.
	Transcribe(ctx context.Context, samples []float32) (Transcript, error)
	// Close releases backend resources.
	Close() error
}

// LanguageSetter is implemented by backends whose recognition language can
// change at runtime.
type LanguageSetter interface {
	SetLanguage(lang string) error
}

// Engines lists the known engine names.
func Engines() []string {
	return []string{EngineWhisper, EngineVosk, EngineOpenAI}
}

var (
	multiSpace   = regexp.MustCompile(`\s+`)
	spaceBeforeP = regexp.MustCompile(`\s+([.,?!])`)
)

// CleanText trims the text, collapses runs of whitespace and removes
// spaces before sentence punctuation.
func CleanText(text string) string {
	text = strings.TrimSpace(text)
	text = multiSpace.ReplaceAllString(text, " ")
	return spaceBeforeP.ReplaceAllString(text, "$1")
}

// Clamp01 limits a confidence value to [0, 1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

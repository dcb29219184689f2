// Package transcribe provides speech-to-text backends.
//
// Supported backends:
//   - whisper: whisper.cpp via Go bindings (default, disable with -tags nowhisper)
//   - vosk: Vosk via the vosk-api Go bindings (disable with -tags novosk)
//   - openai: the hosted OpenAI transcription API
package transcribe

import (
	"fmt"
	"net/http"

	"github.com/chaz8081/stt-demo/internal/config"
	"github.com/chaz8081/stt-demo/internal/stt"
)

// Options carries the settings every backend may need.
type Options struct {
	Language string // ISO 639-1 code or "auto"

	WhisperModelPath string
	WhisperThreads   int

	VoskModelPath string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	HTTPClient    *http.Client
}

// OptionsFromConfig collects backend options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Language:         cfg.Whisper.Language,
		WhisperModelPath: cfg.WhisperModelPath(),
		WhisperThreads:   cfg.Whisper.Threads,
		VoskModelPath:    cfg.VoskModelPath(),
		OpenAIKey:        cfg.OpenAI.APIKey,
		OpenAIBaseURL:    cfg.OpenAI.BaseURL,
		OpenAIModel:      cfg.OpenAI.Model,
	}
}

// Factory creates a Transcriber for an engine name.
type Factory func(name string, opts Options) (stt.Transcriber, error)

// New creates a Transcriber for the named engine.
func New(name string, opts Options) (stt.Transcriber, error) {
	switch name {
	case stt.EngineWhisper, "":
		t, err := NewWhisperTranscriber(opts.WhisperModelPath, opts.Language, opts.WhisperThreads)
		if err != nil {
			return nil, err
		}
		return t, nil
	case stt.EngineVosk:
		t, err := NewVoskTranscriber(opts.VoskModelPath)
		if err != nil {
			return nil, err
		}
		return t, nil
	case stt.EngineOpenAI:
		t, err := NewOpenAITranscriber(opts)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: whisper, vosk, openai)", name)
	}
}

// Compiled reports whether the named engine is built into this binary.
func Compiled(name string) bool {
	switch name {
	case stt.EngineWhisper:
		return whisperCompiled
	case stt.EngineVosk:
		return voskCompiled
	case stt.EngineOpenAI:
		return true
	}
	return false
}

// apiLanguage maps the configured language to what a backend accepts;
// "auto" becomes empty.
func apiLanguage(lang string) string {
	if lang == "auto" {
		return ""
	}
	return lang
}

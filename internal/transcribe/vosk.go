//go:build !novosk

package transcribe

import (
	"context"
	"fmt"
	"os"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"

	"github.com/chaz8081/stt-demo/internal/audio"
	"github.com/chaz8081/stt-demo/internal/stt"
)

const voskCompiled = true

// VoskTranscriber wraps a Vosk model and recognizer. The recognizer keeps
// state between calls, so access is serialised.
type VoskTranscriber struct {
	mu         sync.Mutex
	model      *vosk.VoskModel
	recognizer *vosk.VoskRecognizer
}

// NewVoskTranscriber loads the Vosk model directory at modelPath.
func NewVoskTranscriber(modelPath string) (*VoskTranscriber, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("transcribe: vosk model not found at %s: %w", modelPath, err)
	}

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load vosk model %q: %w", modelPath, err)
	}
	rec, err := vosk.NewRecognizer(model, float64(stt.SampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("transcribe: create vosk recognizer: %w", err)
	}
	rec.SetWords(1)

	return &VoskTranscriber{model: model, recognizer: rec}, nil
}

// Name returns "vosk".
func (v *VoskTranscriber) Name() string { return stt.EngineVosk }

// Transcribe feeds the window to the recognizer and returns its final result.
func (v *VoskTranscriber) Transcribe(ctx context.Context, samples []float32) (stt.Transcript, error) {
	if len(samples) == 0 {
		return stt.Transcript{}, stt.ErrEmptyAudio
	}
	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.recognizer == nil {
		return stt.Transcript{}, stt.ErrNotLoaded
	}

	if v.recognizer.AcceptWaveform(audio.Float32ToPCM16(samples)) < 0 {
		v.recognizer.Reset()
		return stt.Transcript{}, fmt.Errorf("transcribe: vosk rejected waveform")
	}
	raw := v.recognizer.FinalResult()
	v.recognizer.Reset()

	return parseVoskResult(raw)
}

// Close frees the recognizer and model.
func (v *VoskTranscriber) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.recognizer != nil {
		v.recognizer.Free()
		v.recognizer = nil
	}
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
	return nil
}

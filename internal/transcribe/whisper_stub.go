//go:build nowhisper

package transcribe

import (
	"context"

	"github.com/chaz8081/stt-demo/internal/stt"
)

const whisperCompiled = false

// WhisperTranscriber is unavailable in builds tagged nowhisper.
type WhisperTranscriber struct{}

// NewWhisperTranscriber always fails with stt.ErrUnavailable.
func NewWhisperTranscriber(modelPath, language string, threads int) (*WhisperTranscriber, error) {
	return nil, stt.ErrUnavailable
}

func (t *WhisperTranscriber) Name() string { return stt.EngineWhisper }

func (t *WhisperTranscriber) Transcribe(context.Context, []float32) (stt.Transcript, error) {
	return stt.Transcript{}, stt.ErrUnavailable
}

func (t *WhisperTranscriber) Close() error { return nil }

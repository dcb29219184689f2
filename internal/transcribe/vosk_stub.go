//go:build novosk

package transcribe

import (
	"context"

	"github.com/chaz8081/stt-demo/internal/stt"
)

const voskCompiled = false

// VoskTranscriber is unavailable in builds tagged novosk.
type VoskTranscriber struct{}

// NewVoskTranscriber always fails with stt.ErrUnavailable.
func NewVoskTranscriber(modelPath string) (*VoskTranscriber, error) {
	return nil, stt.ErrUnavailable
}

func (v *VoskTranscriber) Name() string { return stt.EngineVosk }

func (v *VoskTranscriber) Transcribe(context.Context, []float32) (stt.Transcript, error) {
	return stt.Transcript{}, stt.ErrUnavailable
}

func (v *VoskTranscriber) Close() error { return nil }

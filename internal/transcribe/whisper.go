//go:build !nowhisper

package transcribe

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/chaz8081/stt-demo/internal/stt"
)

const whisperCompiled = true

// WhisperTranscriber wraps a whisper.cpp model for speech-to-text.
type WhisperTranscriber struct {
	model   whisper.Model
	threads int

	mu       sync.Mutex
	language string
}

// NewWhisperTranscriber loads a whisper model from the given path.
// The caller must call Close() when done.
func NewWhisperTranscriber(modelPath, language string, threads int) (*WhisperTranscriber, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("transcribe: whisper model not found at %s: %w", modelPath, err)
	}
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", modelPath, err)
	}
	if language == "" {
		language = "auto"
	}
	return &WhisperTranscriber{model: model, language: language, threads: threads}, nil
}

// Name returns "whisper".
func (t *WhisperTranscriber) Name() string { return stt.EngineWhisper }

// SetLanguage changes the recognition language for subsequent windows.
func (t *WhisperTranscriber) SetLanguage(lang string) error {
	if lang == "" {
		lang = "auto"
	}
	t.mu.Lock()
	t.language = lang
	t.mu.Unlock()
	return nil
}

// Close releases the whisper model resources.
func (t *WhisperTranscriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.model != nil {
		err := t.model.Close()
		t.model = nil
		return err
	}
	return nil
}

// Transcribe converts mono 16kHz float32 audio samples to text. The
// context aborts the run before the encoder starts.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, samples []float32) (stt.Transcript, error) {
	if len(samples) == 0 {
		return stt.Transcript{}, stt.ErrEmptyAudio
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.model == nil {
		return stt.Transcript{}, stt.ErrNotLoaded
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("transcribe: create context: %w", err)
	}
	wctx.SetTranslate(false)
	if t.threads > 0 {
		wctx.SetThreads(uint(t.threads))
	}
	lang := t.language
	if t.model.IsMultilingual() {
		if err := wctx.SetLanguage(lang); err != nil {
			return stt.Transcript{}, fmt.Errorf("transcribe: set language %q: %w", lang, err)
		}
	} else {
		lang = "en"
	}

	proceed := func() bool { return ctx.Err() == nil }
	if err := wctx.Process(samples, proceed, nil, nil); err != nil {
		if ctx.Err() != nil {
			return stt.Transcript{}, ctx.Err()
		}
		return stt.Transcript{}, fmt.Errorf("transcribe: process: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, err
	}

	var (
		texts    []string
		segments []stt.Segment
		probSum  float64
		probN    int
	)
	for {
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stt.Transcript{}, fmt.Errorf("transcribe: next segment: %w", err)
		}
		texts = append(texts, seg.Text)
		segments = append(segments, stt.Segment{
			Start: seg.Start.Seconds(),
			End:   seg.End.Seconds(),
			Text:  strings.TrimSpace(seg.Text),
		})
		for _, tok := range seg.Tokens {
			if isSpecialToken(tok.Text) {
				continue
			}
			probSum += float64(tok.P)
			probN++
		}
	}

	text := strings.TrimSpace(strings.Join(texts, " "))
	return stt.Transcript{
		Text:       text,
		Confidence: tokenConfidence(text, probSum, probN),
		Language:   lang,
		Segments:   segments,
	}, nil
}

// isSpecialToken reports control tokens such as [_BEG_] or [_TT_150].
func isSpecialToken(text string) bool {
	return strings.HasPrefix(text, "[_") || strings.HasPrefix(text, "<|")
}

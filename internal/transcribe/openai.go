package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chaz8081/stt-demo/internal/audio"
	"github.com/chaz8081/stt-demo/internal/stt"
)

// OpenAITranscriber sends each window to the OpenAI transcription API.
// It is safe for concurrent use.
type OpenAITranscriber struct {
	client *openai.Client
	model  string

	mu       sync.RWMutex
	language string
}

// NewOpenAITranscriber creates a client for the hosted API. opts.OpenAIKey
// is required.
func NewOpenAITranscriber(opts Options) (*OpenAITranscriber, error) {
	if opts.OpenAIKey == "" {
		return nil, fmt.Errorf("transcribe: openai backend requires an API key")
	}
	cfg := openai.DefaultConfig(opts.OpenAIKey)
	if opts.OpenAIBaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.OpenAIBaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	model := opts.OpenAIModel
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAITranscriber{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		language: apiLanguage(opts.Language),
	}, nil
}

// Name returns "openai".
func (o *OpenAITranscriber) Name() string { return stt.EngineOpenAI }

// SetLanguage changes the language hint sent with each request.
func (o *OpenAITranscriber) SetLanguage(lang string) error {
	o.mu.Lock()
	o.language = apiLanguage(lang)
	o.mu.Unlock()
	return nil
}

// Transcribe uploads the window as a WAV file and converts the verbose
// response. Confidence is the mean speech probability of the segments.
func (o *OpenAITranscriber) Transcribe(ctx context.Context, samples []float32) (stt.Transcript, error) {
	if len(samples) == 0 {
		return stt.Transcript{}, stt.ErrEmptyAudio
	}
	wavData, err := audio.EncodeWAV(samples, stt.SampleRate)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("transcribe: %w", err)
	}

	o.mu.RLock()
	lang := o.language
	o.mu.RUnlock()

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: "window.wav",
		Reader:   bytes.NewReader(wavData),
		Language: lang,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("transcribe: openai request: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	tr := stt.Transcript{Text: text, Language: resp.Language}
	var sum float64
	for _, seg := range resp.Segments {
		sum += 1 - seg.NoSpeechProb
		tr.Segments = append(tr.Segments, stt.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	tr.Confidence = tokenConfidence(text, sum, len(resp.Segments))
	return tr, nil
}

// Close is a no-op; the HTTP client holds no exclusive resources.
func (o *OpenAITranscriber) Close() error { return nil }

package transcribe

import "github.com/chaz8081/stt-demo/internal/stt"

const (
	// fallbackConfidence is reported when a backend produced text but no
	// per-token or per-segment scores.
	fallbackConfidence = 0.7
	// voskFallbackConfidence is reported when Vosk returns text without word scores.
	voskFallbackConfidence = 0.5
)

// tokenConfidence averages n probabilities summing to sum.
func tokenConfidence(text string, sum float64, n int) float64 {
	if text == "" {
		return 0
	}
	if n == 0 {
		return fallbackConfidence
	}
	return stt.Clamp01(sum / float64(n))
}

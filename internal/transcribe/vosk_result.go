package transcribe

import (
	"encoding/json"
	"fmt"

	"github.com/chaz8081/stt-demo/internal/stt"
)

// voskResult is the JSON document returned by FinalResult with words enabled.
type voskResult struct {
	Text   string `json:"text"`
	Result []struct {
		Conf  float64 `json:"conf"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Word  string  `json:"word"`
	} `json:"result"`
}

func parseVoskResult(raw string) (stt.Transcript, error) {
	var res voskResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return stt.Transcript{}, fmt.Errorf("transcribe: parse vosk result: %w", err)
	}

	tr := stt.Transcript{Text: res.Text}
	if res.Text == "" {
		return tr, nil
	}
	var sum float64
	for _, w := range res.Result {
		sum += w.Conf
		tr.Segments = append(tr.Segments, stt.Segment{Start: w.Start, End: w.End, Text: w.Word})
	}
	if len(res.Result) == 0 {
		tr.Confidence = voskFallbackConfidence
	} else {
		tr.Confidence = stt.Clamp01(sum / float64(len(res.Result)))
	}
	return tr, nil
}

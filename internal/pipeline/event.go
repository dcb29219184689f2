package pipeline

import (
	"time"
)

// EventType identifies the payload of an Event.
type EventType string

// Event types published on the hub.
const (
	EventResult  EventType = "result"
	EventLevel   EventType = "level"
	EventVisual  EventType = "visual"
	EventState   EventType = "state"
	EventError   EventType = "error"
	EventDropped EventType = "dropped"
)

// State is the lifecycle state of a Pipeline.
type State string

// Pipeline states.
const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// Event is one message on the feed. Exactly one payload field is set,
// matching Type.
type Event struct {
	Type    EventType  `json:"type"`
	Time    time.Time  `json:"time"`
	Result  *Result    `json:"result,omitempty"`
	Level   *Level     `json:"level,omitempty"`
	Visual  *Visual    `json:"visual,omitempty"`
	State   *StateInfo `json:"state,omitempty"`
	Error   string     `json:"error,omitempty"`
	Dropped *Drop      `json:"dropped,omitempty"`
}

// Result is a published transcription of one window.
type Result struct {
	ID             string        `json:"id"`
	WindowSeq      uint64        `json:"window_seq"`
	Text           string        `json:"text"`
	Confidence     float64       `json:"confidence"`
	Language       string        `json:"language,omitempty"`
	Backend        string        `json:"backend"`
	ProcessingTime time.Duration `json:"processing_time_ns"`
	AudioOffset    time.Duration `json:"audio_offset_ns"` // stream time of the window start
	AudioDuration  time.Duration `json:"audio_duration_ns"`
	Timestamp      time.Time     `json:"timestamp"`
}

// Level is the loudness of one captured frame.
type Level struct {
	RMS  float64 `json:"rms"`
	Peak float64 `json:"peak"`
}

// Visual carries waveform and spectrum data for display.
type Visual struct {
	Waveform    []float32 `json:"waveform"`
	Spectrum    []float64 `json:"spectrum"`
	Frequencies []float64 `json:"frequencies"`
	Level       float64   `json:"level"`
}

// StateInfo describes the pipeline after a lifecycle or backend change.
type StateInfo struct {
	State    State  `json:"state"`
	Backend  string `json:"backend"`
	Language string `json:"language"`
}

// Drop describes a window that was not transcribed.
type Drop struct {
	WindowSeq uint64 `json:"window_seq"`
	Reason    string `json:"reason"`
}

func newEvent(t EventType) Event {
	return Event{Type: t, Time: time.Now()}
}

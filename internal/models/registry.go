// Package models downloads and locates the speech recognition models.
package models

import (
	"github.com/chaz8081/stt-demo/internal/stt"
)

// Info describes a downloadable model.
type Info struct {
	ID          string
	Engine      string // stt.EngineWhisper or stt.EngineVosk
	Size        string // whisper size name, e.g. "base"
	Description string
	URL         string
	// Name is the file (whisper) or directory (vosk) created in the
	// models directory.
	Name   string
	SizeMB int
	// Archive marks zip downloads that are extracted into Name.
	Archive bool
}

const (
	whisperBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"
	voskBaseURL    = "https://alphacephei.com/vosk/models/"
)

func whisperModel(size, desc string, mb int) Info {
	name := "ggml-" + size + ".bin"
	return Info{
		ID:          "whisper-" + size,
		Engine:      stt.EngineWhisper,
		Size:        size,
		Description: desc,
		URL:         whisperBaseURL + name,
		Name:        name,
		SizeMB:      mb,
	}
}

func voskModel(name, desc string, mb int) Info {
	return Info{
		ID:          name,
		Engine:      stt.EngineVosk,
		Description: desc,
		URL:         voskBaseURL + name + ".zip",
		Name:        name,
		SizeMB:      mb,
		Archive:     true,
	}
}

// Registry lists the known models.
var Registry = []Info{
	whisperModel("tiny", "fastest, lowest accuracy", 75),
	whisperModel("base", "good balance for real-time use", 142),
	whisperModel("small", "better accuracy, slower", 466),
	whisperModel("medium", "high accuracy, needs a fast CPU or GPU", 1500),
	whisperModel("large-v2", "highest accuracy (v2)", 2900),
	whisperModel("large-v3", "highest accuracy", 2900),
	voskModel("vosk-model-small-ko-0.22", "Korean, small", 82),
	voskModel("vosk-model-small-en-us-0.15", "English (US), small", 40),
}

// DefaultVosk is the Vosk model installed when none is named.
const DefaultVosk = "vosk-model-small-ko-0.22"

// Lookup finds a model by ID.
func Lookup(id string) (Info, bool) {
	for _, m := range Registry {
		if m.ID == id {
			return m, true
		}
	}
	return Info{}, false
}

// ForEngine returns the models of one engine in registry order.
func ForEngine(engine string) []Info {
	var out []Info
	for _, m := range Registry {
		if m.Engine == engine {
			out = append(out, m)
		}
	}
	return out
}

// Whisper finds a whisper model by size name. "large" means the newest
// large model.
func Whisper(size string) (Info, bool) {
	if size == "large" {
		size = "large-v3"
	}
	return Lookup("whisper-" + size)
}

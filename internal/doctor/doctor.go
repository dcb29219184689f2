// Package doctor checks that the environment can run the demo: config,
// models, compiled backends, audio devices and the log file.
package doctor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chaz8081/stt-demo/internal/audio"
	"github.com/chaz8081/stt-demo/internal/config"
	"github.com/chaz8081/stt-demo/internal/models"
	"github.com/chaz8081/stt-demo/internal/stt"
	"github.com/chaz8081/stt-demo/internal/transcribe"
)

// Status is the outcome of a check.
type Status int

const (
	OK Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case Warn:
		return "WARN"
	default:
		return "FAIL"
	}
}

// Result is the outcome of one named check.
type Result struct {
	Name   string
	Status Status
	Detail string
	Hint   string // what to do about a WARN or FAIL
}

// Doctor runs the checks against a config.
type Doctor struct {
	cfg         *config.Config
	listDevices func() ([]audio.DeviceInfo, error)
	compiled    func(string) bool
}

// New returns a Doctor for cfg.
func New(cfg *config.Config) *Doctor {
	return &Doctor{
		cfg:         cfg,
		listDevices: audio.ListInputDevices,
		compiled:    transcribe.Compiled,
	}
}

// Run executes every check in order.
func (d *Doctor) Run() []Result {
	return []Result{
		d.checkConfig(),
		d.checkBackends(),
		d.checkWhisperModel(),
		d.checkVoskModel(),
		d.checkOpenAI(),
		d.checkDevices(),
		d.checkLogFile(),
	}
}

func (d *Doctor) backend() string { return d.cfg.Processing.Backend }

func (d *Doctor) checkConfig() Result {
	r := Result{Name: "config"}
	if err := d.cfg.Validate(); err != nil {
		r.Status, r.Detail = Fail, err.Error()
		r.Hint = "fix the config file or run 'stt-demo config init' in a new directory"
		return r
	}
	r.Detail = fmt.Sprintf("backend %s, %d Hz, %.1fs windows", d.backend(), d.cfg.Audio.SampleRate, d.cfg.Audio.BufferSeconds)
	return r
}

func (d *Doctor) checkBackends() Result {
	r := Result{Name: "backends"}
	var have, missing []string
	for _, name := range stt.Engines() {
		if d.compiled(name) {
			have = append(have, name)
		} else {
			missing = append(missing, name)
		}
	}
	r.Detail = "compiled: " + strings.Join(have, ", ")
	if len(missing) == 0 {
		return r
	}
	r.Detail += "; not compiled: " + strings.Join(missing, ", ")
	r.Status = Warn
	r.Hint = "rebuild without the nowhisper/novosk tags to enable them"
	for _, m := range missing {
		if m == d.backend() {
			r.Status = Fail
		}
	}
	return r
}

// severity is Fail for the selected backend and Warn otherwise.
func (d *Doctor) severity(engine string) Status {
	if d.backend() == engine {
		return Fail
	}
	return Warn
}

func (d *Doctor) checkWhisperModel() Result {
	r := Result{Name: "whisper model"}
	path := d.cfg.WhisperModelPath()
	st, err := os.Stat(path)
	if err != nil || st.Size() == 0 {
		r.Status = d.severity(stt.EngineWhisper)
		r.Detail = "not found: " + path
		r.Hint = "run 'stt-demo install whisper --model " + d.cfg.Whisper.DefaultModel + "'"
		return r
	}
	r.Detail = fmt.Sprintf("%s (%.0f MB)", path, float64(st.Size())/(1024*1024))
	return r
}

func (d *Doctor) checkVoskModel() Result {
	r := Result{Name: "vosk model"}
	path := d.cfg.VoskModelPath()
	if err := models.ValidateVoskDir(path); err != nil {
		r.Status = d.severity(stt.EngineVosk)
		r.Detail = err.Error()
		r.Hint = "run 'stt-demo install vosk'"
		return r
	}
	r.Detail = path
	return r
}

func (d *Doctor) checkOpenAI() Result {
	r := Result{Name: "openai"}
	if d.cfg.OpenAI.APIKey == "" {
		r.Status = d.severity(stt.EngineOpenAI)
		r.Detail = "no API key"
		r.Hint = "set " + config.EnvOpenAI + " or openai.api_key"
		return r
	}
	r.Detail = "API key set, model " + d.cfg.OpenAI.Model
	return r
}

func (d *Doctor) checkDevices() Result {
	r := Result{Name: "audio devices"}
	devices, err := d.listDevices()
	if err != nil {
		r.Status, r.Detail = Fail, err.Error()
		r.Hint = "check that an audio backend (CoreAudio, ALSA, PulseAudio, WASAPI) is available"
		return r
	}
	if len(devices) == 0 {
		r.Status, r.Detail = Fail, "no input devices"
		r.Hint = "connect a microphone and grant microphone access to the terminal"
		return r
	}
	var names []string
	for _, dev := range devices {
		name := dev.Name
		if dev.Default {
			name += " (default)"
		}
		names = append(names, name)
	}
	r.Detail = strings.Join(names, ", ")
	if want := d.cfg.Audio.Device; want != "" {
		found := false
		for _, dev := range devices {
			if strings.Contains(strings.ToLower(dev.Name), strings.ToLower(want)) {
				found = true
				break
			}
		}
		if !found {
			r.Status = Fail
			r.Detail = fmt.Sprintf("configured device %q not found; have %s", want, r.Detail)
			r.Hint = "run 'stt-demo devices' and update audio.device"
		}
	}
	return r
}

func (d *Doctor) checkLogFile() Result {
	r := Result{Name: "log file"}
	path := d.cfg.Logging.LogFile
	if path == "" {
		r.Detail = "disabled"
		return r
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			r.Status, r.Detail = Fail, err.Error()
			return r
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		r.Status, r.Detail = Fail, err.Error()
		r.Hint = "choose a writable logging.log_file"
		return r
	}
	f.Close()
	r.Detail = path
	return r
}

// Report prints one line per result and returns true if any check failed.
func Report(w io.Writer, results []Result) bool {
	failed := false
	for _, r := range results {
		fmt.Fprintf(w, "  [%-4s] %-14s %s\n", r.Status, r.Name, r.Detail)
		if r.Status != OK && r.Hint != "" {
			fmt.Fprintf(w, "         %-14s -> %s\n", "", r.Hint)
		}
		if r.Status == Fail {
			failed = true
		}
	}
	return failed
}

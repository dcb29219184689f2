package doctor

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chaz8081/stt-demo/internal/audio"
	"github.com/chaz8081/stt-demo/internal/config"
)

// testDoctor returns a Doctor whose models all exist in a temp dir.
func testDoctor(t *testing.T) (*Doctor, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Whisper.ModelDir = dir
	if err := os.WriteFile(filepath.Join(dir, "ggml-base.bin"), []byte("model"), 0644); err != nil {
		t.Fatal(err)
	}
	vosk := filepath.Join(dir, "vosk")
	for _, rel := range []string{"am/final.mdl", "conf/model.conf"} {
		p := filepath.Join(vosk, rel)
		os.MkdirAll(filepath.Dir(p), 0755)
		os.WriteFile(p, []byte("x"), 0644)
	}
	cfg.Vosk.ModelPath = vosk
	cfg.Vosk.AlternativePaths = nil
	cfg.OpenAI.APIKey = "sk-test"
	cfg.Logging.LogFile = filepath.Join(dir, "logs", "stt_demo.log")

	d := New(cfg)
	d.listDevices = func() ([]audio.DeviceInfo, error) {
		return []audio.DeviceInfo{{Name: "Built-in Microphone", Default: true}, {Name: "USB Mic"}}, nil
	}
	d.compiled = func(string) bool { return true }
	return d, cfg
}

func byName(results []Result, name string) Result {
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	return Result{Name: "missing", Status: Fail}
}

func TestAllChecksPass(t *testing.T) {
	d, _ := testDoctor(t)
	results := d.Run()
	if len(results) != 7 {
		t.Fatalf("got %d results, want 7", len(results))
	}
	for _, r := range results {
		if r.Status != OK {
			t.Errorf("%s: %s %s", r.Name, r.Status, r.Detail)
		}
	}
	var buf bytes.Buffer
	if Report(&buf, results) {
		t.Errorf("Report() reported failure:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Built-in Microphone (default)") {
		t.Errorf("report missing device list:\n%s", buf.String())
	}
}

func TestChecks(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(d *Doctor, cfg *config.Config)
		check  string
		status Status
	}{
		{"invalid config", func(_ *Doctor, c *config.Config) { c.Audio.SampleRate = 12345 }, "config", Fail},
		{"missing whisper model selected", func(_ *Doctor, c *config.Config) { c.Whisper.DefaultModel = "tiny" }, "whisper model", Fail},
		{"missing whisper model unused", func(_ *Doctor, c *config.Config) {
			c.Whisper.DefaultModel = "tiny"
			c.Processing.Backend = "vosk"
		}, "whisper model", Warn},
		{"invalid vosk model", func(_ *Doctor, c *config.Config) { c.Vosk.ModelPath = c.Whisper.ModelDir }, "vosk model", Warn},
		{"invalid vosk model selected", func(_ *Doctor, c *config.Config) {
			c.Vosk.ModelPath = c.Whisper.ModelDir
			c.Processing.Backend = "vosk"
		}, "vosk model", Fail},
		{"no openai key", func(_ *Doctor, c *config.Config) { c.OpenAI.APIKey = "" }, "openai", Warn},
		{"vosk not compiled", func(d *Doctor, _ *config.Config) {
			d.compiled = func(name string) bool { return name != "vosk" }
		}, "backends", Warn},
		{"selected backend not compiled", func(d *Doctor, _ *config.Config) {
			d.compiled = func(name string) bool { return name != "whisper" }
		}, "backends", Fail},
		{"device error", func(d *Doctor, _ *config.Config) {
			d.listDevices = func() ([]audio.DeviceInfo, error) { return nil, errors.New("no backend") }
		}, "audio devices", Fail},
		{"no devices", func(d *Doctor, _ *config.Config) {
			d.listDevices = func() ([]audio.DeviceInfo, error) { return nil, nil }
		}, "audio devices", Fail},
		{"configured device found", func(_ *Doctor, c *config.Config) { c.Audio.Device = "usb" }, "audio devices", OK},
		{"configured device missing", func(_ *Doctor, c *config.Config) { c.Audio.Device = "Bluetooth" }, "audio devices", Fail},
		{"log disabled", func(_ *Doctor, c *config.Config) { c.Logging.LogFile = "" }, "log file", OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, cfg := testDoctor(t)
			tt.setup(d, cfg)
			r := byName(d.Run(), tt.check)
			if r.Status != tt.status {
				t.Errorf("%s = %s (%s), want %s", tt.check, r.Status, r.Detail, tt.status)
			}
		})
	}
}

func TestReportHints(t *testing.T) {
	var buf bytes.Buffer
	failed := Report(&buf, []Result{
		{Name: "a", Status: OK, Detail: "fine", Hint: "ignored"},
		{Name: "b", Status: Warn, Detail: "meh", Hint: "do this"},
	})
	if failed {
		t.Error("warnings reported as failure")
	}
	out := buf.String()
	if strings.Contains(out, "ignored") || !strings.Contains(out, "-> do this") {
		t.Errorf("unexpected report:\n%s", out)
	}
	if !Report(&bytes.Buffer{}, []Result{{Name: "c", Status: Fail}}) {
		t.Error("Report() missed a failure")
	}
}

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chaz8081/stt-demo/internal/config"
)

func TestNewWritesConsoleAndFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "stt_demo.log")
	var console bytes.Buffer

	logger, closer := New(config.LoggingConfig{
		Level:        "info",
		LogFile:      logFile,
		MaxLogSizeMB: 1,
		BackupCount:  1,
		Format:       "text",
	}, &console)

	logger.Info("window transcribed", "seq", 7)
	logger.Debug("not shown")

	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if !strings.Contains(console.String(), "window transcribed") {
		t.Errorf("console output missing record: %q", console.String())
	}
	if strings.Contains(console.String(), "not shown") {
		t.Errorf("debug record should be filtered at info level: %q", console.String())
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "seq=7") {
		t.Errorf("log file missing record: %q", data)
	}
}

func TestNewJSONFormat(t *testing.T) {
	var console bytes.Buffer
	logger, closer := New(config.LoggingConfig{Level: "debug", Format: "json"}, &console)
	defer closer.Close()

	logger.Debug("frame", "samples", 1024)

	var rec map[string]any
	if err := json.Unmarshal(console.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, console.String())
	}
	if rec["msg"] != "frame" {
		t.Errorf("msg = %v, want %q", rec["msg"], "frame")
	}
	if _, ok := rec["source"]; !ok {
		t.Error("debug level should include source location")
	}
}

func TestNewWithoutFile(t *testing.T) {
	var console bytes.Buffer
	logger, closer := New(config.LoggingConfig{Level: "warn"}, &console)
	if closer == nil {
		t.Fatal("closer should never be nil")
	}
	logger.Info("quiet")
	logger.Warn("loud")
	if err := closer.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if strings.Contains(console.String(), "quiet") || !strings.Contains(console.String(), "loud") {
		t.Errorf("unexpected output for warn level: %q", console.String())
	}
}

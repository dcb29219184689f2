// Package logging builds the application's slog logger.
//
// Records go to stderr and, when a log file is configured, to a
// size-rotated file (stt_demo.log by default).
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/chaz8081/stt-demo/internal/config"
)

// Setup creates a logger from cfg and installs it as the slog default.
// The returned closer flushes and closes the log file; it is never nil.
func Setup(cfg config.LoggingConfig) (*slog.Logger, io.Closer) {
	logger, closer := New(cfg, os.Stderr)
	slog.SetDefault(logger)
	return logger, closer
}

// New creates a logger writing to console and, if cfg.LogFile is set, to
// a rotating file.
func New(cfg config.LoggingConfig, console io.Writer) (*slog.Logger, io.Closer) {
	level := config.ParseLogLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var (
		out    io.Writer = console
		closer io.Closer = nopCloser{}
	)
	if cfg.LogFile != "" {
		if dir := filepath.Dir(cfg.LogFile); dir != "." {
			_ = os.MkdirAll(dir, 0755)
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    max(cfg.MaxLogSizeMB, 1),
			MaxBackups: cfg.BackupCount,
		}
		out = io.MultiWriter(console, rotator)
		closer = rotator
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

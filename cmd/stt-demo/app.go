package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/chaz8081/stt-demo/internal/config"
	"github.com/chaz8081/stt-demo/internal/logging"
	"github.com/chaz8081/stt-demo/internal/stt"
)

const micHint = "Ensure microphone access is granted (macOS: System Settings > Privacy & Security > Microphone) and that audio.device matches a name from 'stt-demo devices'."

// app is the loaded configuration and logger shared by the commands.
type app struct {
	cfg      *config.Config
	cfgPath  string
	logger   *slog.Logger
	closeLog io.Closer
}

// loadApp loads .env, the config file (writing defaults when missing),
// environment overrides and flag overrides, in that order, then sets up
// logging.
func loadApp(g globalFlags) (*app, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, created, err := config.LoadOrCreate(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.ApplyEnv()
	if g.backend != "" {
		cfg.Processing.Backend = g.backend
	}
	if g.language != "" {
		cfg.Whisper.Language = g.language
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}

	logger, closer := logging.Setup(cfg.Logging)
	if created {
		logger.Info("No config file found, wrote defaults", "path", g.configPath)
	} else {
		logger.Debug("Config loaded", "path", g.configPath)
	}
	return &app{cfg: cfg, cfgPath: g.configPath, logger: logger, closeLog: closer}, nil
}

func (a *app) Close() error {
	return a.closeLog.Close()
}

// hintError attaches an actionable hint to an error.
type hintError struct {
	err  error
	hint string
}

func (e *hintError) Error() string { return e.err.Error() }
func (e *hintError) Unwrap() error { return e.err }

func withHint(err error, hint string) error {
	if err == nil || hint == "" {
		return err
	}
	return &hintError{err: err, hint: hint}
}

// backendHint explains how to fix a failure to load the named backend.
func backendHint(name string, err error) string {
	switch {
	case errors.Is(err, stt.ErrUnavailable):
		return fmt.Sprintf("This binary was built without the %s backend. Rebuild without the nowhisper/novosk tags, or choose another with --backend.", name)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Sprintf("Download the model with 'stt-demo install %s'.", name)
	case name == stt.EngineOpenAI:
		return "Set " + config.EnvOpenAI + " or openai.api_key."
	}
	return ""
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	var he *hintError
	if errors.As(err, &he) {
		fmt.Fprintf(w, "\n%s\n", he.hint)
	}
}

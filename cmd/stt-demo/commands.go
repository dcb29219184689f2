package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/chaz8081/stt-demo/internal/audio"
	"github.com/chaz8081/stt-demo/internal/config"
	"github.com/chaz8081/stt-demo/internal/doctor"
	"github.com/chaz8081/stt-demo/internal/models"
)

// errCheckFailed is returned by check when a check fails. The report has
// already been printed.
var errCheckFailed = errors.New("check failed")

func runCheck(a *app, stdout io.Writer) error {
	fmt.Fprintf(stdout, "Checking %s (backend %s)\n\n", a.cfgPath, a.cfg.Processing.Backend)
	if doctor.Report(stdout, doctor.New(a.cfg).Run()) {
		fmt.Fprintln(stdout, "\nSome checks failed.")
		return errCheckFailed
	}
	fmt.Fprintln(stdout, "\nReady.")
	return nil
}

func runInstall(a *app, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("install", flag.ContinueOnError)
	size := fs.String("model", "", "whisper model size: tiny, base, small, medium, large-v2, large-v3 (default whisper.default_model)")
	voskID := fs.String("vosk-model", "", "vosk model id (default "+models.DefaultVosk+")")
	dir := fs.String("dir", "", "download directory (default whisper.model_dir)")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) > 1 {
		return errors.New("usage: stt-demo install [whisper|vosk|all] [--model SIZE] [--vosk-model ID] [--dir DIR]")
	}

	if *dir == "" {
		*dir = a.cfg.Whisper.ModelDir
	}
	m := models.NewManager(*dir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	whisperSize := installSize(*size, a.cfg.Whisper.DefaultModel)
	if len(positional) == 0 {
		return models.RunInteractive(ctx, m, whisperSize, stdin, stdout)
	}
	return models.Install(ctx, m, positional[0], whisperSize, *voskID, stdout)
}

// installSize picks the whisper model to download: the --model flag, else
// the configured default model so gui and check find the file.
func installSize(flagSize, defaultModel string) string {
	if flagSize != "" {
		return flagSize
	}
	return defaultModel
}

func runDevices(stdout io.Writer) error {
	devices, err := audio.ListInputDevices()
	if err != nil {
		return withHint(err, micHint)
	}
	if len(devices) == 0 {
		fmt.Fprintln(stdout, "No input devices found.")
		return nil
	}
	fmt.Fprintln(stdout, "Input devices:")
	for _, d := range devices {
		mark := " "
		if d.Default {
			mark = "*"
		}
		fmt.Fprintf(stdout, "  %s %s\n", mark, d.Name)
	}
	return nil
}

// runConfig handles "config init [PATH]".
func runConfig(g globalFlags, args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] != "init" || len(args) > 2 {
		return errors.New("usage: stt-demo config init [PATH]")
	}
	path := g.configPath
	if len(args) == 2 {
		path = args[1]
	}
	written, err := config.WriteDefault(path)
	if err != nil {
		return err
	}
	if written == "" {
		fmt.Fprintf(stdout, "%s already exists, leaving it unchanged\n", path)
		return nil
	}
	fmt.Fprintf(stdout, "Wrote default config to %s\n", written)
	return nil
}

// Command stt-demo is a real-time speech-to-text demo.
//
// It captures the microphone, cuts the stream into overlapping windows and
// transcribes them with whisper.cpp, Vosk or the OpenAI API. Results are
// printed, optionally saved, and streamed to display clients over a
// WebSocket feed.
//
// Usage:
//
//	stt-demo [--config config.json] [--backend whisper|vosk|openai] [command]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

const usage = `stt-demo - real-time speech-to-text demo

Usage:
  stt-demo [flags] [command] [args]

Commands:
  gui                       capture the microphone and transcribe live (default)
  check                     check config, models, backends and audio devices
  install [whisper|vosk|all] [--model SIZE]
                            download models (asks interactively without a target)
  transcribe FILE.wav [--reference TEXT]
                            transcribe a WAV file
  devices                   list audio input devices
  config init [PATH]        write the default config file
  help                      show this help

Flags:
`

// globalFlags apply to every command. Non-empty values override the
// config file and environment.
type globalFlags struct {
	configPath string
	backend    string
	language   string
	logLevel   string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var g globalFlags
	fs := flag.NewFlagSet("stt-demo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&g.configPath, "config", "config.json", "path to config file (JSON, or YAML by extension)")
	fs.StringVar(&g.backend, "backend", "", "transcription backend: whisper, vosk or openai")
	fs.StringVar(&g.language, "language", "", "recognition language (ISO 639-1 code or auto)")
	fs.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cmd, rest := "gui", fs.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}

	var err error
	switch cmd {
	case "help", "-h", "--help":
		fs.SetOutput(stdout)
		fs.Usage()
		return 0
	case "config":
		err = runConfig(g, rest, stdout)
	case "gui", "check", "install", "transcribe", "devices":
		err = runWithApp(cmd, g, rest, stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		fs.Usage()
		return 2
	}

	if err != nil {
		if errors.Is(err, errCheckFailed) {
			return 1
		}
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		printError(stderr, err)
		return 1
	}
	return 0
}

func runWithApp(cmd string, g globalFlags, args []string, stdout io.Writer) error {
	a, err := loadApp(g)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "gui":
		return runGUI(a, args, stdout)
	case "check":
		return runCheck(a, stdout)
	case "install":
		return runInstall(a, args, os.Stdin, stdout)
	case "transcribe":
		return runTranscribe(a, args, stdout)
	default:
		return runDevices(stdout)
	}
}

// parseArgs parses flags that may appear before, between or after
// positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

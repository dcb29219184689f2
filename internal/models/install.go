package models

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chaz8081/stt-demo/internal/stt"
)

// Install downloads the models for target ("whisper", "vosk" or "all").
// whisperSize picks the whisper model and voskID the Vosk model; empty
// values select "base" and DefaultVosk.
func Install(ctx context.Context, m *Manager, target, whisperSize, voskID string, out io.Writer) error {
	var todo []Info
	if target == stt.EngineWhisper || target == "all" {
		if whisperSize == "" {
			whisperSize = "base"
		}
		info, ok := Whisper(whisperSize)
		if !ok {
			return fmt.Errorf("models: unknown whisper model %q", whisperSize)
		}
		todo = append(todo, info)
	}
	if target == stt.EngineVosk || target == "all" {
		if voskID == "" {
			voskID = DefaultVosk
		}
		info, ok := Lookup(voskID)
		if !ok || info.Engine != stt.EngineVosk {
			return fmt.Errorf("models: unknown vosk model %q", voskID)
		}
		todo = append(todo, info)
	}
	if len(todo) == 0 {
		return fmt.Errorf("models: unknown install target %q (expected whisper, vosk, or all)", target)
	}

	for i, info := range todo {
		if len(todo) > 1 {
			fmt.Fprintf(out, "[%d/%d] %s:\n", i+1, len(todo), info.ID)
		}
		if _, err := m.Download(ctx, info, out); err != nil {
			return fmt.Errorf("%s download failed: %w", info.ID, err)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, "All models downloaded successfully!")
	return nil
}

// RunInteractive asks which models to download and installs them.
// defaultSize is offered for the whisper size prompt; empty means "base".
func RunInteractive(ctx context.Context, m *Manager, defaultSize string, in io.Reader, out io.Writer) error {
	if defaultSize == "" {
		defaultSize = "base"
	}
	sc := bufio.NewScanner(in)
	ask := func(prompt string) string {
		fmt.Fprint(out, prompt)
		if !sc.Scan() {
			return ""
		}
		return strings.TrimSpace(sc.Text())
	}

	fmt.Fprintln(out, "=== Model Download ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Models will be downloaded to: %s\n", m.Dir)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Which models would you like to download?")
	fmt.Fprintln(out, "  [1] Whisper - multilingual, CPU/GPU transcription")
	fmt.Fprintln(out, "  [2] Vosk (Korean small, ~82 MB) - lightweight offline recognition")
	fmt.Fprintln(out, "  [3] Both")
	fmt.Fprintln(out)
	choice := ask("Choice [1/2/3]: ")

	var target string
	switch choice {
	case "1":
		target = stt.EngineWhisper
	case "2":
		target = stt.EngineVosk
	case "3":
		target = "all"
	default:
		return fmt.Errorf("invalid choice: %q (expected 1, 2, or 3)", choice)
	}

	size := ""
	if target != stt.EngineVosk {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Whisper model size:")
		for _, info := range ForEngine(stt.EngineWhisper) {
			fmt.Fprintf(out, "  %-9s ~%d MB  %s\n", info.Size, info.SizeMB, info.Description)
		}
		size = ask(fmt.Sprintf("Size [%s]: ", defaultSize))
	}
	if size == "" {
		size = defaultSize
	}
	fmt.Fprintln(out)
	return Install(ctx, m, target, size, "", out)
}

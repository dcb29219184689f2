// Command vosk-mic transcribes the microphone with a Vosk model in
// fixed-length windows. Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/vosk-mic [--model ./vosk-model-small-ko-0.22] [--seconds 3]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaz8081/stt-demo/internal/audio"
	"github.com/chaz8081/stt-demo/internal/stt"
	"github.com/chaz8081/stt-demo/internal/transcribe"
)

func main() {
	model := flag.String("model", "./vosk-model-small-ko-0.22", "path to an unpacked Vosk model directory")
	seconds := flag.Float64("seconds", 3, "window length in seconds")
	driver := flag.String("driver", "malgo", "capture driver: malgo or portaudio")
	flag.Parse()

	fmt.Printf("Loading %s...\n", *model)
	t, err := transcribe.NewVoskTranscriber(*model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, stt.ErrUnavailable) {
			fmt.Fprintln(os.Stderr, "Rebuild without the novosk tag.")
		}
		os.Exit(1)
	}
	defer t.Close()

	src, err := audio.NewSource(*driver, audio.SourceConfig{SampleRate: stt.SampleRate, Channels: 1})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	windows := make(chan []float32, 2)
	size := int(*seconds * stt.SampleRate)
	var buf []float32
	err = src.Start(func(f audio.Frame) {
		buf = append(buf, f.Samples...)
		if len(buf) < size {
			return
		}
		select {
		case windows <- buf[:size]:
		default:
			fmt.Println("(busy, window dropped)")
		}
		buf = append([]float32(nil), buf[size:]...)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Listening in %.1fs windows. Press Ctrl+C to exit.\n", *seconds)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down...")
			_ = src.Stop()
			return
		case w := <-windows:
			tr, err := t.Transcribe(ctx, w)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			if tr.Text == "" {
				continue
			}
			fmt.Printf("[%s] (%.2f) %s\n", time.Now().Format("15:04:05"), tr.Confidence, tr.Text)
		}
	}
}

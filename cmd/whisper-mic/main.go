// Command whisper-mic transcribes the microphone with whisper.cpp in
// fixed-length windows, without the overlap and dispatch of stt-demo.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/whisper-mic [--model models/ggml-base.bin] [--language ko] [--seconds 3]
package main

import (
	"context"
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
	model := flag.String("model", "models/ggml-base.bin", "path to a ggml whisper model")
	language := flag.String("language", "ko", "recognition language or auto")
	seconds := flag.Float64("seconds", 3, "window length in seconds")
	threads := flag.Int("threads", 0, "inference threads (0 = whisper default)")
	flag.Parse()

	fmt.Printf("Loading %s...\n", *model)
	t, err := transcribe.NewWhisperTranscriber(*model, *language, *threads)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer t.Close()

	src, err := audio.NewSource("malgo", audio.SourceConfig{SampleRate: stt.SampleRate, Channels: 1})
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
			if audio.IsSilent(w, 0.01) {
				continue
			}
			start := time.Now()
			tr, err := t.Transcribe(ctx, w)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			if tr.Text == "" {
				continue
			}
			fmt.Printf("[%s] (%.2f, %s) %s\n", time.Now().Format("15:04:05"), tr.Confidence, time.Since(start).Round(time.Millisecond), tr.Text)
		}
	}
}

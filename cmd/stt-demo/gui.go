package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/chaz8081/stt-demo/internal/audio"
	"github.com/chaz8081/stt-demo/internal/config"
	"github.com/chaz8081/stt-demo/internal/metrics"
	"github.com/chaz8081/stt-demo/internal/pipeline"
	"github.com/chaz8081/stt-demo/internal/server"
	"github.com/chaz8081/stt-demo/internal/sink"
	"github.com/chaz8081/stt-demo/internal/transcribe"
)

// runGUI runs the live pipeline with the console sink and the feed server
// until interrupted.
func runGUI(a *app, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("gui", flag.ContinueOnError)
	listen := fs.String("listen", "", "feed server address (default gui.listen_addr)")
	meter := fs.Bool("meter", false, "draw a live input level meter")
	paused := fs.Bool("paused", false, "wait for a start command from a feed client")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	cfg := a.cfg
	if *listen != "" {
		cfg.GUI.ListenAddr = *listen
	}
	if err := cfg.Validate(); err != nil {
		return withHint(fmt.Errorf("config validation: %w", err), "Fix "+a.cfgPath+" or run 'stt-demo check'.")
	}
	printBanner(stdout, cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	a.logger.Info("Loading backend...", "backend", cfg.Processing.Backend)
	loadStart := time.Now()
	backend, err := transcribe.NewSwitcher(cfg.Processing.Backend, transcribe.OptionsFromConfig(cfg), nil)
	if err != nil {
		return withHint(err, backendHint(cfg.Processing.Backend, err))
	}
	defer backend.Close()
	a.logger.Info("Backend loaded", "backend", backend.Name(), "elapsed", time.Since(loadStart).Round(time.Millisecond))

	src, err := audio.NewSource(cfg.Audio.Driver, audio.SourceConfig{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		ChunkSize:  cfg.Audio.ChunkSize,
		Device:     cfg.Audio.Device,
	})
	if err != nil {
		return withHint(fmt.Errorf("initializing audio: %w", err), micHint)
	}
	defer src.Close()

	opts := []pipeline.Option{pipeline.WithMetrics(m), pipeline.WithLogger(a.logger)}
	var rec *sink.Recording
	if cfg.Audio.SaveRecording {
		rec, err = sink.NewRecording(cfg.GUI.SaveDirectory, cfg.Audio.SampleRate, time.Now())
		if err != nil {
			return err
		}
		defer rec.Close()
		opts = append(opts, pipeline.WithFrameTap(rec.Tap))
	}

	p, err := pipeline.New(src, backend, pipeline.ConfigFromApp(cfg), opts...)
	if err != nil {
		return err
	}

	sinks := []sink.Sink{sink.NewConsole(stdout, *meter)}
	if cfg.GUI.AutoSave {
		t, err := sink.NewTranscript(cfg.GUI.SaveDirectory)
		if err != nil {
			return err
		}
		sinks = append(sinks, t)
	}
	if cfg.GUI.Notify {
		sinks = append(sinks, sink.NewNotifier())
	}
	events, unsubscribe := p.Subscribe(256)
	sinksDone := make(chan struct{})
	go func() {
		sink.Run(context.Background(), events, sinks...)
		close(sinksDone)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.GUI.ListenAddr, p, cfg.GUI, reg, a.logger)
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Serve(ctx) }()

	if !*paused {
		// The pipeline outlives the signal context so Stop can drain it.
		if err := p.Start(context.WithoutCancel(ctx)); err != nil {
			stop()
			<-srvErr
			unsubscribe()
			<-sinksDone
			return withHint(err, micHint)
		}
		fmt.Fprintln(stdout, "Listening... Ctrl+C to quit.")
	} else {
		fmt.Fprintf(stdout, "Waiting for a start command on ws://%s/ws. Ctrl+C to quit.\n", cfg.GUI.ListenAddr)
	}

	var runErr error
	select {
	case <-ctx.Done():
		fmt.Fprintln(stdout, "\nShutting down...")
	case err := <-srvErr:
		srvErr = nil
		if err != nil {
			runErr = fmt.Errorf("feed server: %w", err)
		}
	}
	stop()

	if st := p.State(); st == pipeline.StateRunning || st == pipeline.StatePaused {
		if err := p.Stop(); err != nil {
			a.logger.Warn("stopping pipeline", "error", err)
		}
	}
	unsubscribe()
	<-sinksDone
	if err := sink.CloseAll(sinks...); err != nil {
		a.logger.Warn("closing sinks", "error", err)
	}
	if srvErr != nil {
		if err := <-srvErr; err != nil {
			a.logger.Warn("feed server", "error", err)
		}
	}

	printSummary(stdout, p.Stats())
	if rec != nil {
		fmt.Fprintf(stdout, "  Recording: %s (%s)\n", rec.Path(), rec.Duration(cfg.Audio.SampleRate).Round(time.Second))
	}
	return runErr
}

// printBanner displays the startup configuration summary.
func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "=== stt-demo ===")
	fmt.Fprintf(w, "  Backend:  %s\n", cfg.Processing.Backend)
	switch cfg.Processing.Backend {
	case "whisper":
		fmt.Fprintf(w, "  Model:    %s\n", cfg.WhisperModelPath())
	case "vosk":
		fmt.Fprintf(w, "  Model:    %s\n", cfg.VoskModelPath())
	case "openai":
		fmt.Fprintf(w, "  Model:    %s\n", cfg.OpenAI.Model)
	}
	fmt.Fprintf(w, "  Language: %s\n", cfg.Whisper.Language)
	fmt.Fprintf(w, "  Audio:    %dHz, %dch, %s\n", cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.Driver)
	fmt.Fprintf(w, "  Windows:  %.1fs, %.0f%% overlap\n", cfg.Audio.BufferSeconds, cfg.Audio.OverlapRatio*100)
	fmt.Fprintf(w, "  Feed:     http://%s\n", cfg.GUI.ListenAddr)
	fmt.Fprintf(w, "  Log:      %s (%s)\n", cfg.Logging.LogFile, cfg.Logging.Level)
	fmt.Fprintln(w, "================")
}

func printSummary(w io.Writer, st pipeline.Stats) {
	fmt.Fprintln(w, "=== Session ===")
	fmt.Fprintf(w, "  Transcribed: %d windows (%d results, %d filtered)\n", st.Processed, st.Published, st.Filtered)
	fmt.Fprintf(w, "  Skipped:     %d silent, %d dropped, %d failed\n", st.Skipped, st.WindowsDropped, st.Failed)
	if st.Processed > 0 {
		fmt.Fprintf(w, "  Avg time:    %s per window\n", st.AvgProcessingTime.Round(time.Millisecond))
	}
}

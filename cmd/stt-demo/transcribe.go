package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/chaz8081/stt-demo/internal/audio"
	"github.com/chaz8081/stt-demo/internal/pipeline"
	"github.com/chaz8081/stt-demo/internal/stt"
	"github.com/chaz8081/stt-demo/internal/transcribe"
)

// runTranscribe transcribes a WAV file through the same pipeline as the
// live mode. Windows do not overlap and none are dropped.
func runTranscribe(a *app, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("transcribe", flag.ContinueOnError)
	reference := fs.String("reference", "", "reference transcript for a WER/CER score")
	cer := fs.Bool("cer", false, "also report the character error rate (useful for Korean)")
	minConfidence := fs.Float64("min-confidence", -1, "override processing.confidence_threshold")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return errors.New("usage: stt-demo transcribe FILE.wav [--reference TEXT] [--cer]")
	}
	path := positional[0]

	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	src, err := audio.NewWAVSource(path, audio.SourceConfig{
		SampleRate: stt.SampleRate,
		Channels:   1,
		ChunkSize:  cfg.Audio.ChunkSize,
	})
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	defer src.Close()
	audioDur := time.Duration(src.Len()) * time.Second / stt.SampleRate

	backend, err := transcribe.New(cfg.Processing.Backend, transcribe.OptionsFromConfig(cfg))
	if err != nil {
		return withHint(err, backendHint(cfg.Processing.Backend, err))
	}
	defer backend.Close()

	pcfg := pipeline.ConfigFromApp(cfg)
	pcfg.SampleRate = stt.SampleRate
	pcfg.OverlapRatio = 0
	pcfg.Block = true
	pcfg.Workers = 1
	windowSamples := int(pcfg.WindowSeconds * stt.SampleRate)
	pcfg.HistorySize = src.Len()/max(windowSamples, 1) + 2
	if *minConfidence >= 0 {
		pcfg.ConfidenceThreshold = *minConfidence
	}

	p, err := pipeline.New(src, backend, pcfg, pipeline.WithLogger(a.logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(stdout, "Transcribing %s (%s, backend %s)...\n", path, audioDur.Round(100*time.Millisecond), backend.Name())
	start := time.Now()
	if err := p.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	select {
	case <-src.Done():
	case <-ctx.Done():
		fmt.Fprintln(stdout, "Interrupted.")
	}
	if err := p.Stop(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	results := p.Recent(0)
	slices.SortFunc(results, func(x, y pipeline.Result) int {
		return cmp.Compare(x.WindowSeq, y.WindowSeq)
	})
	texts := make([]string, 0, len(results))
	for _, r := range results {
		fmt.Fprintf(stdout, "[%s] (%.2f) %s\n", clock(r.AudioOffset), r.Confidence, r.Text)
		texts = append(texts, r.Text)
	}
	hypothesis := strings.Join(texts, " ")

	st := p.Stats()
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Transcript: %s\n", hypothesis)
	fmt.Fprintf(stdout, "Windows:    %d transcribed, %d silent, %d filtered, %d failed\n", st.Processed, st.Skipped, st.Filtered, st.Failed)
	if audioDur > 0 {
		fmt.Fprintf(stdout, "Time:       %s (RTF %.2f)\n", elapsed.Round(time.Millisecond), elapsed.Seconds()/audioDur.Seconds())
	}
	if *reference != "" {
		fmt.Fprintf(stdout, "WER:        %s\n", stt.ComputeWER(*reference, hypothesis))
		if *cer {
			fmt.Fprintf(stdout, "CER:        %s\n", stt.ComputeCER(*reference, hypothesis))
		}
	}
	if st.Failed > 0 && len(results) == 0 {
		return fmt.Errorf("all %d windows failed, see %s", st.Failed, a.cfg.Logging.LogFile)
	}
	return nil
}

// clock formats a stream offset as mm:ss.s.
func clock(d time.Duration) string {
	secs := d.Seconds()
	m := int(secs) / 60
	s := math.Mod(secs, 60)
	return fmt.Sprintf("%02d:%04.1f", m, s)
}

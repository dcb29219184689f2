// Package pipeline connects an audio source to a transcription backend.
//
// Frames from the source are cut into overlapping windows on the capture
// goroutine. Windows wait in a bounded queue and are transcribed by a
// fixed pool of workers. Everything observable (results, levels,
// visualisation data, state changes, errors and drops) is published as
// an Event on a Hub.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chaz8081/stt-demo/internal/audio"
	"github.com/chaz8081/stt-demo/internal/config"
	"github.com/chaz8081/stt-demo/internal/metrics"
	"github.com/chaz8081/stt-demo/internal/stt"
	"github.com/chaz8081/stt-demo/internal/window"
)

var (
	// ErrAlreadyRunning is returned by Start on a running pipeline.
	ErrAlreadyRunning = errors.New("pipeline: already running")
	// ErrNotRunning is returned by Stop, Pause and Resume on a stopped pipeline.
	ErrNotRunning = errors.New("pipeline: not running")
	// ErrNoSwap is returned by SetBackend when the backend cannot be replaced.
	ErrNoSwap = errors.New("pipeline: backend does not support switching")
)

// Config holds pipeline settings.
type Config struct {
	SampleRate       int
	WindowSeconds    float64
	OverlapRatio     float64
	MaxBufferSamples int

	QueueSize int
	Workers   int
	// Block makes the capture goroutine wait for queue space instead of
	// dropping the oldest window. Used for file transcription.
	Block bool

	Timeout             time.Duration
	SilenceThreshold    float64
	ConfidenceThreshold float64
	Preprocess          bool
	Postprocess         bool
	HistorySize         int
	Language            string

	VisualInterval time.Duration
}

// ConfigFromApp derives pipeline settings from the application config.
func ConfigFromApp(cfg *config.Config) Config {
	return Config{
		SampleRate:          cfg.Audio.SampleRate,
		WindowSeconds:       cfg.Audio.BufferSeconds,
		OverlapRatio:        cfg.Audio.OverlapRatio,
		MaxBufferSamples:    cfg.Performance.MaxAudioBufferMB * 1024 * 1024 / 4,
		QueueSize:           cfg.Performance.QueueSize,
		Workers:             cfg.Performance.ThreadPoolSize,
		Timeout:             time.Duration(cfg.Performance.ProcessingTimeoutSeconds) * time.Second,
		SilenceThreshold:    cfg.Processing.SilenceThreshold,
		ConfidenceThreshold: cfg.Processing.ConfidenceThreshold,
		Preprocess:          cfg.Processing.Preprocess,
		Postprocess:         cfg.Processing.Postprocess,
		HistorySize:         cfg.Processing.HistorySize,
		Language:            cfg.Whisper.Language,
		VisualInterval:      time.Duration(cfg.GUI.VisualizationUpdateMS) * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = stt.SampleRate
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 4
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 100
	}
	if c.VisualInterval <= 0 {
		c.VisualInterval = 100 * time.Millisecond
	}
	return c
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records pipeline activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithFrameTap registers fn to receive every captured frame on the
// capture goroutine. fn must not retain f.Samples.
func WithFrameTap(fn func(f audio.Frame)) Option {
	return func(p *Pipeline) { p.taps = append(p.taps, fn) }
}

// Pipeline runs capture, windowing and transcription.
type Pipeline struct {
	cfg     Config
	src     audio.Source
	backend stt.Transcriber
	hub     *Hub
	metrics *metrics.Metrics
	log     *slog.Logger
	taps    []func(audio.Frame)

	// mu guards lifecycle state and the windowing stage.
	mu         sync.Mutex
	state      State
	stopping   bool
	win        *window.Windower
	lastDrop   int64
	q          *queue
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	analyzer   *audio.Analyzer
	recent     []float32
	lastVisual time.Time

	statsMu  sync.Mutex
	stats    counters
	history  []Result
	language string
}

// New creates a stopped Pipeline. The pipeline does not own src or
// backend; the caller closes them after Stop.
func New(src audio.Source, backend stt.Transcriber, cfg Config, opts ...Option) (*Pipeline, error) {
	cfg = cfg.withDefaults()
	win, err := window.New(window.Config{
		SampleRate:       cfg.SampleRate,
		WindowSeconds:    cfg.WindowSeconds,
		OverlapRatio:     cfg.OverlapRatio,
		MaxBufferSamples: cfg.MaxBufferSamples,
		MinFlushSamples:  cfg.SampleRate, // backends need at least one second
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	p := &Pipeline{
		cfg:      cfg,
		src:      src,
		backend:  backend,
		state:    StateIdle,
		win:      win,
		analyzer: audio.NewAnalyzer(),
		language: cfg.Language,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.hub = NewHub(p.metrics)
	return p, nil
}

// Subscribe returns a feed of pipeline events and its cancel function.
func (p *Pipeline) Subscribe(buf int) (<-chan Event, func()) {
	return p.hub.Subscribe(buf)
}

// Hub returns the event hub.
func (p *Pipeline) Hub() *Hub { return p.hub }

// State returns the lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start begins capture and starts the workers. Cancelling ctx stops the
// workers but not the source; call Stop to end a session.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state == StateRunning || p.state == StatePaused || p.stopping {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}

	p.src.Resume()
	p.win.Reset()
	p.lastDrop = 0
	p.recent = p.recent[:0]
	p.q = newQueue(p.cfg.QueueSize)
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(p.ctx, p.q)
	}

	if err := p.src.Start(p.onFrame); err != nil {
		p.q.close()
		p.cancel()
		p.mu.Unlock()
		p.wg.Wait()
		return fmt.Errorf("pipeline: starting source: %w", err)
	}
	p.state = StateRunning
	p.mu.Unlock()

	p.log.Info("pipeline started",
		"backend", p.backend.Name(),
		"window", p.win.Size(),
		"hop", p.win.Hop(),
		"workers", p.cfg.Workers,
		"queue", p.cfg.QueueSize,
	)
	p.publishState(StateRunning)
	return nil
}

// Stop ends capture, transcribes the remaining audio as a final window and
// waits for queued windows to finish.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if p.state != StateRunning && p.state != StatePaused || p.stopping {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.stopping = true
	p.mu.Unlock()

	// The source delivers its last frame through onFrame, which takes mu.
	srcErr := p.src.Stop()

	p.mu.Lock()
	w, flushed := p.win.Flush()
	if flushed && !p.cfg.Block {
		p.enqueueLocked(w)
	}
	q, ctx := p.q, p.ctx
	p.mu.Unlock()
	if flushed && p.cfg.Block {
		p.enqueueWait(ctx, q, w)
	}
	q.close()

	p.wg.Wait()

	p.mu.Lock()
	p.cancel()
	p.state = StateStopped
	p.stopping = false
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.SetQueueDepth(0)
	}
	p.log.Info("pipeline stopped")
	p.publishState(StateStopped)
	if srcErr != nil {
		return fmt.Errorf("pipeline: stopping source: %w", srcErr)
	}
	return nil
}

// Pause stops delivering audio to the windowing stage. The device stays open.
func (p *Pipeline) Pause() error {
	p.mu.Lock()
	if p.state != StateRunning || p.stopping {
		st := p.state
		p.mu.Unlock()
		if st == StatePaused {
			return nil
		}
		return ErrNotRunning
	}
	p.src.Pause()
	p.state = StatePaused
	p.mu.Unlock()
	p.publishState(StatePaused)
	return nil
}

// Resume restarts delivery after Pause.
func (p *Pipeline) Resume() error {
	p.mu.Lock()
	if p.state != StatePaused || p.stopping {
		st := p.state
		p.mu.Unlock()
		if st == StateRunning {
			return nil
		}
		return ErrNotRunning
	}
	p.src.Resume()
	p.state = StateRunning
	p.mu.Unlock()
	p.publishState(StateRunning)
	return nil
}

// SetLanguage changes the recognition language of the backend.
func (p *Pipeline) SetLanguage(lang string) error {
	if ls, ok := p.backend.(stt.LanguageSetter); ok {
		if err := ls.SetLanguage(lang); err != nil {
			return fmt.Errorf("pipeline: set language: %w", err)
		}
	}
	p.statsMu.Lock()
	p.language = lang
	p.statsMu.Unlock()
	p.publishState(p.State())
	return nil
}

// Language returns the current recognition language.
func (p *Pipeline) Language() string {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.language
}

// SetBackend switches to the named backend while running. The backend
// given to New must support switching (transcribe.Switcher does).
func (p *Pipeline) SetBackend(name string) error {
	sw, ok := p.backend.(interface{ Swap(name string) error })
	if !ok {
		return ErrNoSwap
	}
	if err := sw.Swap(name); err != nil {
		return err
	}
	p.publishState(p.State())
	return nil
}

// Backend returns the name of the active backend.
func (p *Pipeline) Backend() string { return p.backend.Name() }

// onFrame runs on the capture goroutine.
func (p *Pipeline) onFrame(f audio.Frame) {
	for _, tap := range p.taps {
		tap(f)
	}

	level := Level{RMS: audio.RMS(f.Samples), Peak: audio.Peak(f.Samples)}
	if p.metrics != nil {
		p.metrics.RecordFrame(audio.VolumeLevel(f.Samples))
	}
	ev := newEvent(EventLevel)
	ev.Level = &level
	p.hub.Publish(ev)

	p.mu.Lock()
	if p.q == nil {
		p.mu.Unlock()
		return
	}
	visual := p.visualLocked(f)
	windows := p.win.Push(f.Samples)
	if d := p.win.Dropped(); d > p.lastDrop {
		if p.metrics != nil {
			p.metrics.RecordSamplesDropped(d - p.lastDrop)
		}
		p.statsMu.Lock()
		p.stats.samplesDropped += d - p.lastDrop
		p.statsMu.Unlock()
		p.lastDrop = d
	}
	if !p.cfg.Block {
		for _, w := range windows {
			p.enqueueLocked(w)
		}
	}
	q, ctx := p.q, p.ctx
	p.mu.Unlock()

	if p.cfg.Block {
		for _, w := range windows {
			p.enqueueWait(ctx, q, w)
		}
	}
	if visual != nil {
		ev := newEvent(EventVisual)
		ev.Visual = visual
		p.hub.Publish(ev)
	}
}

// visualLocked keeps the most recent samples and returns visualisation
// data at most once per VisualInterval.
func (p *Pipeline) visualLocked(f audio.Frame) *Visual {
	p.recent = append(p.recent, f.Samples...)
	if over := len(p.recent) - audio.SpectrumSize; over > 0 {
		p.recent = append(p.recent[:0], p.recent[over:]...)
	}

	now := time.Now()
	if now.Sub(p.lastVisual) < p.cfg.VisualInterval {
		return nil
	}
	p.lastVisual = now

	spec := p.analyzer.Compute(p.recent, f.SampleRate)
	return &Visual{
		Waveform:    audio.Waveform(p.recent, audio.SpectrumSize),
		Spectrum:    spec.Magnitudes,
		Frequencies: spec.Frequencies,
		Level:       audio.VolumeLevel(f.Samples),
	}
}

// enqueueLocked queues w, evicting the oldest pending window when full.
func (p *Pipeline) enqueueLocked(w window.Window) {
	if p.metrics != nil {
		p.metrics.RecordWindow()
	}
	evicted, ok := p.q.push(w)
	p.setQueueDepth(p.q.len())
	if !ok {
		return
	}

	p.statsMu.Lock()
	p.stats.dropped++
	p.statsMu.Unlock()
	if p.metrics != nil {
		p.metrics.RecordWindowDropped()
	}
	p.log.Debug("window dropped", "seq", evicted.Seq, "reason", "queue full")
	ev := newEvent(EventDropped)
	ev.Dropped = &Drop{WindowSeq: evicted.Seq, Reason: "queue full"}
	p.hub.Publish(ev)
}

// enqueueWait queues w, waiting for room. It must not be called with mu held.
func (p *Pipeline) enqueueWait(ctx context.Context, q *queue, w window.Window) {
	if p.metrics != nil {
		p.metrics.RecordWindow()
	}
	if q.pushWait(ctx, w) {
		p.setQueueDepth(q.len())
	}
}

func (p *Pipeline) setQueueDepth(n int) {
	if p.metrics != nil {
		p.metrics.SetQueueDepth(n)
	}
}

func (p *Pipeline) worker(ctx context.Context, q *queue) {
	defer p.wg.Done()
	for {
		w, ok := q.pop(ctx)
		if !ok {
			return
		}
		p.setQueueDepth(q.len())
		p.process(ctx, w)
	}
}

// process transcribes one window and publishes the outcome.
func (p *Pipeline) process(ctx context.Context, w window.Window) {
	if audio.IsSilent(w.Samples, p.cfg.SilenceThreshold) {
		p.statsMu.Lock()
		p.stats.skipped++
		p.statsMu.Unlock()
		if p.metrics != nil {
			p.metrics.RecordWindowSkipped()
		}
		p.log.Debug("silent window skipped", "seq", w.Seq)
		return
	}

	samples := w.Samples
	if w.SampleRate != stt.SampleRate {
		samples = audio.Resample(samples, w.SampleRate, stt.SampleRate)
	}
	if p.cfg.Preprocess {
		samples = Preprocess(samples)
	}

	backend := p.backend.Name()
	tctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	start := time.Now()
	tr, err := p.backend.Transcribe(tctx, samples)
	elapsed := time.Since(start)
	cancel()

	if err != nil {
		p.statsMu.Lock()
		p.stats.failed++
		p.statsMu.Unlock()
		if p.metrics != nil {
			p.metrics.RecordTranscriptionFailure(backend, elapsed.Seconds())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", p.cfg.Timeout, err)
		}
		p.log.Warn("transcription failed", "seq", w.Seq, "backend", backend, "error", err)
		ev := newEvent(EventError)
		ev.Error = fmt.Sprintf("window %d: %v", w.Seq, err)
		p.hub.Publish(ev)
		return
	}

	text := tr.Text
	if p.cfg.Postprocess {
		text = stt.CleanText(text)
	}
	outcome := metrics.OutcomePublished
	switch {
	case strings.TrimSpace(text) == "":
		outcome = metrics.OutcomeEmpty
	case tr.Confidence < p.cfg.ConfidenceThreshold:
		outcome = metrics.OutcomeFiltered
	}
	if p.metrics != nil {
		p.metrics.RecordTranscription(backend, outcome, elapsed.Seconds(), tr.Confidence)
	}
	p.statsMu.Lock()
	p.stats.processed++
	p.stats.processingTime += elapsed
	if outcome != metrics.OutcomePublished {
		p.stats.filtered++
	}
	p.statsMu.Unlock()
	if outcome != metrics.OutcomePublished {
		p.log.Debug("result filtered", "seq", w.Seq, "outcome", outcome, "confidence", tr.Confidence)
		return
	}

	lang := tr.Language
	if lang == "" {
		lang = p.Language()
	}
	res := Result{
		ID:             uuid.NewString(),
		WindowSeq:      w.Seq,
		Text:           text,
		Confidence:     tr.Confidence,
		Language:       lang,
		Backend:        backend,
		ProcessingTime: elapsed,
		AudioOffset:    w.Offset(),
		AudioDuration:  w.Duration(),
		Timestamp:      time.Now(),
	}
	p.record(res)

	p.log.Info("transcribed", "seq", w.Seq, "text", text, "confidence", fmt.Sprintf("%.2f", tr.Confidence), "elapsed", elapsed.Round(time.Millisecond))
	ev := newEvent(EventResult)
	ev.Result = &res
	p.hub.Publish(ev)
}

func (p *Pipeline) publishState(st State) {
	ev := newEvent(EventState)
	ev.State = &StateInfo{State: st, Backend: p.backend.Name(), Language: p.Language()}
	p.hub.Publish(ev)
}

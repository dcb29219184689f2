// Package metrics holds the Prometheus collectors of the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for stt-demo.
type Metrics struct {
	// Capture metrics
	FramesCaptured prometheus.Counter
	SamplesDropped prometheus.Counter
	AudioLevel     prometheus.Gauge

	// Windowing and dispatch metrics
	WindowsCreated prometheus.Counter
	WindowsDropped prometheus.Counter
	WindowsSkipped prometheus.Counter
	QueueDepth     prometheus.Gauge

	// Transcription metrics
	TranscriptionResults  *prometheus.CounterVec
	TranscriptionFailures *prometheus.CounterVec
	TranscriptionDuration *prometheus.HistogramVec
	ResultConfidence      prometheus.Histogram

	// Feed metrics
	EventsDropped prometheus.Counter
	Subscribers   prometheus.Gauge
}

// New creates all metrics and registers them with reg. A nil reg uses a
// fresh private registry, which keeps tests independent.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		FramesCaptured: f.NewCounter(prometheus.CounterOpts{
			Name: "stt_frames_captured_total",
			Help: "Total number of audio frames received from the source",
		}),
		SamplesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "stt_samples_dropped_total",
			Help: "Samples discarded because the window buffer was full",
		}),
		AudioLevel: f.NewGauge(prometheus.GaugeOpts{
			Name: "stt_audio_level",
			Help: "RMS level of the most recent frame",
		}),

		WindowsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "stt_windows_created_total",
			Help: "Total number of windows cut from the stream",
		}),
		WindowsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "stt_windows_dropped_total",
			Help: "Windows evicted from a full dispatch queue",
		}),
		WindowsSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "stt_windows_skipped_total",
			Help: "Windows skipped as silent",
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "stt_queue_depth",
			Help: "Windows waiting for a worker",
		}),

		TranscriptionResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_transcription_results_total",
			Help: "Transcriptions by backend and outcome (published, filtered, empty)",
		}, []string{"backend", "outcome"}),
		TranscriptionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_transcription_failures_total",
			Help: "Failed transcriptions by backend",
		}, []string{"backend"}),
		TranscriptionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stt_transcription_duration_seconds",
			Help:    "Time spent transcribing one window",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"backend"}),
		ResultConfidence: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_result_confidence",
			Help:    "Confidence of transcription results",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		}),

		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "stt_events_dropped_total",
			Help: "Events not delivered to slow subscribers",
		}),
		Subscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "stt_feed_subscribers",
			Help: "Current number of event subscribers",
		}),
	}
}

// RecordFrame records a captured frame and its level.
func (m *Metrics) RecordFrame(level float64) {
	m.FramesCaptured.Inc()
	m.AudioLevel.Set(level)
}

// RecordSamplesDropped adds n samples discarded by the window buffer.
func (m *Metrics) RecordSamplesDropped(n int64) {
	if n > 0 {
		m.SamplesDropped.Add(float64(n))
	}
}

// RecordWindow records a created window.
func (m *Metrics) RecordWindow() {
	m.WindowsCreated.Inc()
}

// RecordWindowDropped records a window evicted from the queue.
func (m *Metrics) RecordWindowDropped() {
	m.WindowsDropped.Inc()
}

// RecordWindowSkipped records a silent window.
func (m *Metrics) RecordWindowSkipped() {
	m.WindowsSkipped.Inc()
}

// SetQueueDepth updates the queue gauge.
func (m *Metrics) SetQueueDepth(n int) {
	m.QueueDepth.Set(float64(n))
}

// RecordTranscription records a completed transcription.
func (m *Metrics) RecordTranscription(backend, outcome string, durationSeconds, confidence float64) {
	m.TranscriptionResults.WithLabelValues(backend, outcome).Inc()
	m.TranscriptionDuration.WithLabelValues(backend).Observe(durationSeconds)
	if outcome == OutcomePublished {
		m.ResultConfidence.Observe(confidence)
	}
}

// RecordTranscriptionFailure records a failed transcription.
func (m *Metrics) RecordTranscriptionFailure(backend string, durationSeconds float64) {
	m.TranscriptionFailures.WithLabelValues(backend).Inc()
	m.TranscriptionDuration.WithLabelValues(backend).Observe(durationSeconds)
}

// RecordEventDropped records an event lost by a slow subscriber.
func (m *Metrics) RecordEventDropped() {
	m.EventsDropped.Inc()
}

// SetSubscribers updates the subscriber gauge.
func (m *Metrics) SetSubscribers(n int) {
	m.Subscribers.Set(float64(n))
}

// Transcription outcomes.
const (
	OutcomePublished = "published"
	OutcomeFiltered  = "filtered"
	OutcomeEmpty     = "empty"
)

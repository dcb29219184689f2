package pipeline

import (
	"time"
)

// counters are guarded by Pipeline.statsMu.
type counters struct {
	processed      int64
	filtered       int64
	skipped        int64
	failed         int64
	dropped        int64
	samplesDropped int64
	processingTime time.Duration
}

// Stats is a snapshot of pipeline activity since it was created.
type Stats struct {
	State             State         `json:"state"`
	Backend           string        `json:"backend"`
	Language          string        `json:"language"`
	Processed         int64         `json:"processed"` // completed transcriptions
	Published         int           `json:"published"` // results currently in history
	Filtered          int64         `json:"filtered"`  // empty or below the confidence threshold
	Skipped           int64         `json:"skipped"`   // silent windows
	Failed            int64         `json:"failed"`
	WindowsDropped    int64         `json:"windows_dropped"`
	SamplesDropped    int64         `json:"samples_dropped"`
	AvgProcessingTime time.Duration `json:"avg_processing_time_ns"`
	QueueDepth        int           `json:"queue_depth"`
	BufferedSamples   int           `json:"buffered_samples"`
	Subscribers       int           `json:"subscribers"`
	EventsDropped     int64         `json:"events_dropped"`
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	st := Stats{State: p.state}
	if p.q != nil {
		st.QueueDepth = p.q.len()
	}
	st.BufferedSamples = p.win.Buffered()
	p.mu.Unlock()

	p.statsMu.Lock()
	c := p.stats
	st.Published = len(p.history)
	st.Language = p.language
	p.statsMu.Unlock()

	st.Backend = p.backend.Name()
	st.Processed = c.processed
	st.Filtered = c.filtered
	st.Skipped = c.skipped
	st.Failed = c.failed
	st.WindowsDropped = c.dropped
	st.SamplesDropped = c.samplesDropped
	if c.processed > 0 {
		st.AvgProcessingTime = c.processingTime / time.Duration(c.processed)
	}
	st.Subscribers = p.hub.Len()
	st.EventsDropped = p.hub.Dropped()
	return st
}

// Recent returns up to n of the latest results, oldest first. n <= 0
// returns the whole history.
func (p *Pipeline) Recent(n int) []Result {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	if n <= 0 || n > len(p.history) {
		n = len(p.history)
	}
	out := make([]Result, n)
	copy(out, p.history[len(p.history)-n:])
	return out
}

// ClearHistory forgets all published results.
func (p *Pipeline) ClearHistory() {
	p.statsMu.Lock()
	p.history = nil
	p.statsMu.Unlock()
}

// record appends res to the bounded history.
func (p *Pipeline) record(res Result) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.history = append(p.history, res)
	if over := len(p.history) - p.cfg.HistorySize; over > 0 {
		p.history = append(p.history[:0], p.history[over:]...)
	}
}

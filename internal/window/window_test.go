package window

import (
	"errors"
	"testing"
	"time"
)

func ramp(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func mustNew(t *testing.T, cfg Config) *Windower {
	t.Helper()
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return w
}

func TestNewGeometry(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantSize    int
		wantOverlap int
		wantHop     int
	}{
		{"default 3s half overlap", Config{SampleRate: 16000, WindowSeconds: 3, OverlapRatio: 0.5}, 48000, 24000, 24000},
		{"no overlap", Config{SampleRate: 16000, WindowSeconds: 1}, 16000, 0, 16000},
		{"quarter overlap", Config{SampleRate: 8000, WindowSeconds: 0.5, OverlapRatio: 0.25}, 4000, 1000, 3000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := mustNew(t, tt.cfg)
			if w.Size() != tt.wantSize || w.Overlap() != tt.wantOverlap || w.Hop() != tt.wantHop {
				t.Errorf("size/overlap/hop = %d/%d/%d, want %d/%d/%d",
					w.Size(), w.Overlap(), w.Hop(), tt.wantSize, tt.wantOverlap, tt.wantHop)
			}
		})
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero rate", Config{WindowSeconds: 1}},
		{"zero duration", Config{SampleRate: 16000}},
		{"overlap one", Config{SampleRate: 16000, WindowSeconds: 1, OverlapRatio: 1}},
		{"negative overlap", Config{SampleRate: 16000, WindowSeconds: 1, OverlapRatio: -0.1}},
		{"sub-sample window", Config{SampleRate: 10, WindowSeconds: 0.01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestPushEmitsOverlappingWindows(t *testing.T) {
	w := mustNew(t, Config{SampleRate: 10, WindowSeconds: 1, OverlapRatio: 0.5, MaxBufferSamples: 1000})

	var got []Window
	// Push in uneven chunks to exercise accumulation.
	offset := 0
	for _, n := range []int{3, 7, 1, 9, 5} {
		got = append(got, w.Push(ramp(offset, n))...)
		offset += n
	}

	// 25 samples, size 10, hop 5: windows at 0, 5, 10, 15.
	if len(got) != 4 {
		t.Fatalf("got %d windows, want 4", len(got))
	}
	for i, win := range got {
		if win.Seq != uint64(i+1) {
			t.Errorf("window %d seq = %d, want %d", i, win.Seq, i+1)
		}
		if want := int64(i * 5); win.Start != want {
			t.Errorf("window %d start = %d, want %d", i, win.Start, want)
		}
		if len(win.Samples) != 10 {
			t.Errorf("window %d has %d samples, want 10", i, len(win.Samples))
		}
		if win.Samples[0] != float32(win.Start) {
			t.Errorf("window %d first sample = %f, want %d", i, win.Samples[0], win.Start)
		}
		if win.Final {
			t.Errorf("window %d should not be final", i)
		}
		if win.Duration() != time.Second {
			t.Errorf("window %d duration = %s, want 1s", i, win.Duration())
		}
	}
	if w.Buffered() != 5 {
		t.Errorf("Buffered() = %d, want 5", w.Buffered())
	}
	if w.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", w.Dropped())
	}
}

func TestWindowsDoNotAliasInput(t *testing.T) {
	w := mustNew(t, Config{SampleRate: 4, WindowSeconds: 1})
	in := ramp(0, 4)
	wins := w.Push(in)
	in[0] = 99
	if wins[0].Samples[0] != 0 {
		t.Error("window samples alias the pushed slice")
	}
}

func TestPushBoundDropsOldest(t *testing.T) {
	w := mustNew(t, Config{SampleRate: 10, WindowSeconds: 1, MaxBufferSamples: 12})

	wins := w.Push(ramp(0, 30))
	// Only the newest 12 samples survive; they yield one window starting at 18.
	if w.Dropped() != 18 {
		t.Errorf("Dropped() = %d, want 18", w.Dropped())
	}
	if len(wins) != 1 {
		t.Fatalf("got %d windows, want 1", len(wins))
	}
	if wins[0].Start != 18 || wins[0].Samples[0] != 18 {
		t.Errorf("window start = %d first = %f, want 18", wins[0].Start, wins[0].Samples[0])
	}

	// Every pushed sample is either in a window, still buffered or counted.
	accounted := int64(len(wins[0].Samples)+w.Buffered()) + w.Dropped()
	if accounted != 30 {
		t.Errorf("accounted samples = %d, want 30", accounted)
	}
}

func TestMaxBufferRaisedToWindowSize(t *testing.T) {
	w := mustNew(t, Config{SampleRate: 10, WindowSeconds: 1, MaxBufferSamples: 3})
	if wins := w.Push(ramp(0, 10)); len(wins) != 1 {
		t.Errorf("got %d windows, want 1", len(wins))
	}
	if w.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", w.Dropped())
	}
}

func TestFlush(t *testing.T) {
	tests := []struct {
		name      string
		push      int
		minFlush  int
		wantOK    bool
		wantStart int64
		wantLen   int
	}{
		{"empty", 0, 0, false, 0, 0},
		{"partial first window", 4, 0, true, 0, 4},
		{"padded to minimum", 4, 8, true, 0, 8},
		{"only overlap left", 10, 0, false, 0, 0},
		{"fresh samples after overlap", 12, 0, true, 5, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := mustNew(t, Config{SampleRate: 10, WindowSeconds: 1, OverlapRatio: 0.5, MinFlushSamples: tt.minFlush})
			emitted := len(w.Push(ramp(0, tt.push)))

			win, ok := w.Flush()
			if ok != tt.wantOK {
				t.Fatalf("Flush() ok = %v, want %v", ok, tt.wantOK)
			}
			if w.Buffered() != 0 {
				t.Errorf("Buffered() after Flush = %d, want 0", w.Buffered())
			}
			if !ok {
				return
			}
			if !win.Final {
				t.Error("flushed window should be final")
			}
			if win.Seq != uint64(emitted+1) {
				t.Errorf("seq = %d, want %d", win.Seq, emitted+1)
			}
			if win.Start != tt.wantStart {
				t.Errorf("start = %d, want %d", win.Start, tt.wantStart)
			}
			if len(win.Samples) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(win.Samples), tt.wantLen)
			}
		})
	}
}

func TestFlushTwiceEmitsOnce(t *testing.T) {
	w := mustNew(t, Config{SampleRate: 10, WindowSeconds: 1})
	w.Push(ramp(0, 3))
	if _, ok := w.Flush(); !ok {
		t.Fatal("first Flush() should emit")
	}
	if _, ok := w.Flush(); ok {
		t.Error("second Flush() should not emit")
	}

	// Offsets continue after a flush.
	wins := w.Push(ramp(3, 10))
	if len(wins) != 1 || wins[0].Start != 3 || wins[0].Seq != 2 {
		t.Errorf("post-flush window = %+v, want start 3 seq 2", wins)
	}
}

func TestReset(t *testing.T) {
	w := mustNew(t, Config{SampleRate: 10, WindowSeconds: 1, MaxBufferSamples: 10})
	w.Push(ramp(0, 25))
	w.Reset()

	if w.Buffered() != 0 || w.Dropped() != 0 {
		t.Errorf("after Reset: buffered %d dropped %d, want 0 0", w.Buffered(), w.Dropped())
	}
	wins := w.Push(ramp(0, 10))
	if len(wins) != 1 || wins[0].Seq != 1 || wins[0].Start != 0 {
		t.Errorf("after Reset: got %+v, want seq 1 at 0", wins)
	}
}

func TestWindowOffset(t *testing.T) {
	w := Window{Start: 24000, Samples: make([]float32, 16000), SampleRate: 16000}
	if got := w.Offset(); got != 1500*time.Millisecond {
		t.Errorf("Offset() = %v, want 1.5s", got)
	}
	if got := w.Duration(); got != time.Second {
		t.Errorf("Duration() = %v, want 1s", got)
	}
	if got := (Window{Start: 10}).Offset(); got != 0 {
		t.Errorf("Offset() without sample rate = %v, want 0", got)
	}
}

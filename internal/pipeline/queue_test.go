package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/chaz8081/stt-demo/internal/window"
)

func win(seq uint64) window.Window { return window.Window{Seq: seq} }

func TestQueueDropsOldest(t *testing.T) {
	q := newQueue(2)
	if _, ok := q.push(win(1)); ok {
		t.Fatal("push into empty queue evicted")
	}
	q.push(win(2))
	evicted, ok := q.push(win(3))
	if !ok || evicted.Seq != 1 {
		t.Fatalf("push into full queue evicted %d, %v; want 1, true", evicted.Seq, ok)
	}

	ctx := context.Background()
	for _, want := range []uint64{2, 3} {
		w, ok := q.pop(ctx)
		if !ok || w.Seq != want {
			t.Fatalf("pop() = %d, %v; want %d", w.Seq, ok, want)
		}
	}
}

func TestQueueCloseDrains(t *testing.T) {
	q := newQueue(4)
	q.push(win(1))
	q.push(win(2))
	q.close()

	if _, ok := q.push(win(3)); ok || q.len() != 2 {
		t.Fatal("push after close changed the queue")
	}
	ctx := context.Background()
	for _, want := range []uint64{1, 2} {
		if w, ok := q.pop(ctx); !ok || w.Seq != want {
			t.Fatalf("pop() = %d, %v; want %d", w.Seq, ok, want)
		}
	}
	if _, ok := q.pop(ctx); ok {
		t.Error("pop() on drained closed queue returned a window")
	}
}

func TestQueuePopWaits(t *testing.T) {
	q := newQueue(1)
	got := make(chan uint64)
	go func() {
		w, _ := q.pop(context.Background())
		got <- w.Seq
	}()

	time.Sleep(10 * time.Millisecond)
	q.push(win(7))
	select {
	case seq := <-got:
		if seq != 7 {
			t.Errorf("pop() = %d, want 7", seq)
		}
	case <-time.After(time.Second):
		t.Fatal("pop() did not wake up")
	}
}

func TestQueuePopCancelled(t *testing.T) {
	q := newQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := q.pop(ctx); ok {
		t.Error("pop() with cancelled context returned a window")
	}
}

func TestQueuePushWaitBlocksUntilRoom(t *testing.T) {
	q := newQueue(1)
	ctx := context.Background()
	q.push(win(1))

	done := make(chan bool)
	go func() { done <- q.pushWait(ctx, win(2)) }()

	select {
	case <-done:
		t.Fatal("pushWait() returned while the queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	if w, _ := q.pop(ctx); w.Seq != 1 {
		t.Fatalf("pop() = %d, want 1", w.Seq)
	}
	select {
	case ok := <-done:
		if !ok {
			t.Fatal("pushWait() = false")
		}
	case <-time.After(time.Second):
		t.Fatal("pushWait() did not wake up")
	}
	if w, _ := q.pop(ctx); w.Seq != 2 {
		t.Errorf("pop() = %d, want 2", w.Seq)
	}
}

func TestQueuePushWaitClosed(t *testing.T) {
	q := newQueue(1)
	q.push(win(1))
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.close()
	}()
	if q.pushWait(context.Background(), win(2)) {
		t.Error("pushWait() on closed queue = true")
	}
}

package pipeline

import (
	"context"
	"sync"

	"github.com/chaz8081/stt-demo/internal/window"
)

// queue is a bounded FIFO of windows shared by the workers. When full,
// push evicts the oldest window; pushWait blocks instead.
type queue struct {
	capacity int

	mu     sync.Mutex
	items  []window.Window
	closed bool

	ready chan struct{} // signalled when items are added
	space chan struct{} // signalled when items are removed
	done  chan struct{} // closed by close
}

func newQueue(capacity int) *queue {
	return &queue{
		capacity: max(capacity, 1),
		ready:    make(chan struct{}, 1),
		space:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// push appends w, evicting the oldest pending window when the queue is
// full. It reports the evicted window. Pushing to a closed queue is a no-op.
func (q *queue) push(w window.Window) (evicted window.Window, ok bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return window.Window{}, false
	}
	if len(q.items) >= q.capacity {
		evicted, ok = q.items[0], true
		q.items = append(q.items[:0], q.items[1:]...)
	}
	q.items = append(q.items, w)
	q.mu.Unlock()
	signal(q.ready)
	return evicted, ok
}

// pushWait appends w, waiting for room. It returns false if the queue is
// closed or ctx ends first.
func (q *queue) pushWait(ctx context.Context, w window.Window) bool {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return false
		}
		if len(q.items) < q.capacity {
			q.items = append(q.items, w)
			room := len(q.items) < q.capacity
			q.mu.Unlock()
			signal(q.ready)
			if room {
				signal(q.space)
			}
			return true
		}
		q.mu.Unlock()

		select {
		case <-q.space:
		case <-q.done:
		case <-ctx.Done():
			return false
		}
	}
}

// pop removes the oldest window, waiting until one is available. After
// close it drains the remaining windows and then returns false.
func (q *queue) pop(ctx context.Context) (window.Window, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			w := q.items[0]
			q.items = append(q.items[:0], q.items[1:]...)
			more := len(q.items) > 0
			q.mu.Unlock()
			signal(q.space)
			if more {
				signal(q.ready)
			}
			return w, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return window.Window{}, false
		}

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return window.Window{}, false
		}
	}
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// close stops accepting windows and wakes all waiters.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

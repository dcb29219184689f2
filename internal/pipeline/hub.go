package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/chaz8081/stt-demo/internal/metrics"
)

// Hub fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event and the loss is counted.
type Hub struct {
	metrics *metrics.Metrics

	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64
	closed bool

	dropped atomic.Int64
}

// NewHub creates a Hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{metrics: m, subs: make(map[uint64]chan Event)}
}

// Subscribe returns a channel receiving events and a function that
// unsubscribes and closes the channel. buf is the channel capacity.
func (h *Hub) Subscribe(buf int) (<-chan Event, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Event, buf)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	n := len(h.subs)
	h.mu.Unlock()
	h.setSubscribers(n)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
			n := len(h.subs)
			h.mu.Unlock()
			h.setSubscribers(n)
		})
	}
}

// Publish delivers ev to every subscriber with room in its buffer.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
			if h.metrics != nil {
				h.metrics.RecordEventDropped()
			}
		}
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns the number of undelivered events.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Close closes every subscriber channel. Later subscriptions receive a
// closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
	h.closed = true
	h.mu.Unlock()
	h.setSubscribers(0)
}

func (h *Hub) setSubscribers(n int) {
	if h.metrics != nil {
		h.metrics.SetSubscribers(n)
	}
}

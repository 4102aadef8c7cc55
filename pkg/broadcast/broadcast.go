// Package broadcast fans book snapshots and trade events out to concurrent
// subscribers. Publication never blocks the producer: a subscriber that
// falls behind loses its oldest buffered frames and observes a lag.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/aodr3w/order-book-engine/pkg/book"
	"github.com/aodr3w/order-book-engine/pkg/core"
)

// Frame types carried on the wire.
const (
	TypeBookSnapshot = "BookSnapshot"
	TypeTrade        = "Trade"
)

// Frame is one broadcast message, serialized as {"type": ..., "data": ...}.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SnapshotFrame wraps a post-state book snapshot.
func SnapshotFrame(s book.Snapshot) Frame {
	return Frame{Type: TypeBookSnapshot, Data: s}
}

// TradeFrame wraps one fill.
func TradeFrame(t core.Trade) Frame {
	return Frame{Type: TypeTrade, Data: t}
}

// Subscription is one subscriber's bounded frame buffer. The channel is
// closed when the subscription is closed.
type Subscription struct {
	frames chan Frame
	lag    atomic.Uint64

	b    *Broadcaster
	once sync.Once
}

// Frames returns the receive side of the buffer.
func (s *Subscription) Frames() <-chan Frame { return s.frames }

// Lag reports how many frames were dropped because the buffer was full.
// After a lag the next BookSnapshot is the authoritative state.
func (s *Subscription) Lag() uint64 { return s.lag.Load() }

// Close unregisters the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.b.unsubscribe(s) })
}

// Broadcaster is the per-pair fan-out point. One lives per registered pair;
// the matching engine publishes while still holding its command lock, so
// subscribers observe frames in engine order.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
}

// New creates a broadcaster whose subscribers buffer up to buffer frames.
func New(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber and queues the seed frame as its
// first delivery. The caller reads the seed snapshot under the engine lock
// so it is consistent with every subsequent frame.
func (b *Broadcaster) Subscribe(seed Frame) *Subscription {
	sub := &Subscription{
		frames: make(chan Frame, b.buffer),
		b:      b,
	}
	sub.frames <- seed

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

func (b *Broadcaster) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.frames)
	}
}

// Publish delivers the frame to every subscriber without blocking. When a
// buffer is full the oldest queued frame is dropped to make room and the
// subscriber's lag counter is bumped.
func (b *Broadcaster) Publish(f Frame) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.frames <- f:
			continue
		default:
		}
		// Buffer full: shed the oldest frame, then retry once. The retry
		// can still lose to a concurrent enqueue; drop the new frame then.
		select {
		case <-sub.frames:
			sub.lag.Add(1)
		default:
		}
		select {
		case sub.frames <- f:
		default:
			sub.lag.Add(1)
		}
	}
}

// Len returns the number of active subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

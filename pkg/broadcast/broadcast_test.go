package broadcast

import (
	"testing"

	"github.com/aodr3w/order-book-engine/pkg/book"
	"github.com/aodr3w/order-book-engine/pkg/core"
)

func seedFrame() Frame {
	return SnapshotFrame(book.Snapshot{Pair: "BTC-USD", Bids: []book.Level{}, Asks: []book.Level{}})
}

func TestSubscribeDeliversSeedFirst(t *testing.T) {
	b := New(8)
	sub := b.Subscribe(seedFrame())
	defer sub.Close()

	b.Publish(TradeFrame(core.Trade{Price: 52, Quantity: 1, Symbol: "BTC-USD"}))

	first := <-sub.Frames()
	if first.Type != TypeBookSnapshot {
		t.Fatalf("first frame must be the seed snapshot, got %s", first.Type)
	}
	second := <-sub.Frames()
	if second.Type != TypeTrade {
		t.Fatalf("expected trade after seed, got %s", second.Type)
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	b := New(16)
	sub := b.Subscribe(seedFrame())
	defer sub.Close()
	<-sub.Frames() // seed

	for i := 1; i <= 5; i++ {
		b.Publish(TradeFrame(core.Trade{Price: core.Price(i), Symbol: "BTC-USD"}))
	}

	for i := 1; i <= 5; i++ {
		f := <-sub.Frames()
		tr, ok := f.Data.(core.Trade)
		if !ok {
			t.Fatalf("frame %d is not a trade: %+v", i, f)
		}
		if tr.Price != core.Price(i) {
			t.Errorf("frame %d out of publish order: price %d", i, tr.Price)
		}
	}
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	b := New(2)
	sub := b.Subscribe(seedFrame())
	defer sub.Close()

	// Seed fills one slot; three more publishes overflow the two-slot buffer.
	for i := 1; i <= 3; i++ {
		b.Publish(TradeFrame(core.Trade{Price: core.Price(i), Symbol: "BTC-USD"}))
	}

	if sub.Lag() == 0 {
		t.Fatal("overflow must be recorded as lag")
	}

	// Newest frames survive; the oldest were shed.
	var last Frame
	for i := 0; i < 2; i++ {
		last = <-sub.Frames()
	}
	tr, ok := last.Data.(core.Trade)
	if !ok || tr.Price != 3 {
		t.Errorf("newest frame must survive the drop, got %+v", last)
	}
}

func TestCloseUnregistersAndClosesChannel(t *testing.T) {
	b := New(4)
	sub := b.Subscribe(seedFrame())
	if b.Len() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", b.Len())
	}

	sub.Close()
	sub.Close() // idempotent

	if b.Len() != 0 {
		t.Fatalf("expected 0 subscribers after close, got %d", b.Len())
	}
	// Drain: the channel must be closed, not just empty.
	for {
		if _, ok := <-sub.Frames(); !ok {
			return
		}
	}
}

func TestPublishAfterCloseDoesNotPanic(t *testing.T) {
	b := New(4)
	sub := b.Subscribe(seedFrame())
	sub.Close()

	b.Publish(TradeFrame(core.Trade{Price: 1, Symbol: "BTC-USD"}))
}

func TestIndependentSubscribers(t *testing.T) {
	b := New(4)
	a := b.Subscribe(seedFrame())
	c := b.Subscribe(seedFrame())
	defer a.Close()
	defer c.Close()
	<-a.Frames()
	<-c.Frames()

	b.Publish(TradeFrame(core.Trade{Price: 9, Symbol: "BTC-USD"}))

	for _, sub := range []*Subscription{a, c} {
		f := <-sub.Frames()
		if tr, ok := f.Data.(core.Trade); !ok || tr.Price != 9 {
			t.Errorf("subscriber missed frame: %+v", f)
		}
	}
}

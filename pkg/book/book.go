package book

import (
	"container/heap"
	"sort"

	"github.com/aodr3w/order-book-engine/pkg/core"
	"github.com/aodr3w/order-book-engine/pkg/instrument"
	"github.com/aodr3w/order-book-engine/pkg/util"
)

// locator records where a resting order sits, for O(log P) cancellation.
type locator struct {
	side  core.Side
	price core.Price
}

// Book holds the resting orders of one pair. It is not safe for concurrent
// use: the owning engine serializes Submit, Cancel and Snapshot under its
// own lock so that each command appears atomic to observers.
type Book struct {
	pair  instrument.Pair
	clock util.Clock

	// Heap-based best price tracking (O(1) peek).
	bidHeap *MaxPriceHeap
	askHeap *MinPriceHeap

	// Price level queues (FIFO matching at each price).
	bids map[core.Price][]*core.Order
	asks map[core.Price][]*core.Order

	// Order index for cancellation without scanning both sides.
	byID map[core.ID]locator

	// Per-engine arrival counter, assigned before matching.
	seq uint64
}

// New creates an empty book for pair. Trade timestamps are read from clock.
func New(pair instrument.Pair, clock util.Clock) *Book {
	bidHeap := &MaxPriceHeap{}
	askHeap := &MinPriceHeap{}
	heap.Init(bidHeap)
	heap.Init(askHeap)

	return &Book{
		pair:    pair,
		clock:   clock,
		bidHeap: bidHeap,
		askHeap: askHeap,
		bids:    make(map[core.Price][]*core.Order),
		asks:    make(map[core.Price][]*core.Order),
		byID:    make(map[core.ID]locator),
	}
}

func minQty(a, b core.Quantity) core.Quantity {
	if a < b {
		return a
	}
	return b
}

// bestBid returns the highest bid price.
func (b *Book) bestBid() (core.Price, bool) {
	if b.bidHeap.Len() == 0 {
		return 0, false
	}
	return b.bidHeap.Peek(), true
}

// bestAsk returns the lowest ask price.
func (b *Book) bestAsk() (core.Price, bool) {
	if b.askHeap.Len() == 0 {
		return 0, false
	}
	return b.askHeap.Peek(), true
}

func (b *Book) rest(o *core.Order) {
	side := b.bids
	if o.Side == core.Sell {
		side = b.asks
	}
	if len(side[o.Price]) == 0 {
		// New price level.
		if o.Side == core.Buy {
			heap.Push(b.bidHeap, o.Price)
		} else {
			heap.Push(b.askHeap, o.Price)
		}
	}
	side[o.Price] = append(side[o.Price], o)
	b.byID[o.ID] = locator{side: o.Side, price: o.Price}
}

// removeLevel drops an emptied price level from both the map and its heap.
func (b *Book) removeLevel(side core.Side, price core.Price) {
	if side == core.Buy {
		delete(b.bids, price)
		for i := 0; i < b.bidHeap.Len(); i++ {
			if (*b.bidHeap)[i] == price {
				heap.Remove(b.bidHeap, i)
				return
			}
		}
	} else {
		delete(b.asks, price)
		for i := 0; i < b.askHeap.Len(); i++ {
			if (*b.askHeap)[i] == price {
				heap.Remove(b.askHeap, i)
				return
			}
		}
	}
}

// crosses reports whether the incoming order is willing to trade at the
// opposing best price.
func crosses(o *core.Order, best core.Price) bool {
	if o.Kind == core.Market {
		return true
	}
	if o.Side == core.Buy {
		return o.Price >= best
	}
	return o.Price <= best
}

// Submit matches the incoming order against the opposite side by price-time
// priority, then rests any unfilled limit remainder. Market remainders are
// discarded. The arrival sequence is assigned here, before matching.
//
// The caller has already validated the order (quantity > 0, price present
// and > 0 on limits).
func (b *Book) Submit(o *core.Order) []core.Trade {
	b.seq++
	o.Seq = b.seq

	var trades []core.Trade
	for o.Quantity > 0 {
		var (
			best core.Price
			ok   bool
		)
		if o.Side == core.Buy {
			best, ok = b.bestAsk()
		} else {
			best, ok = b.bestBid()
		}
		if !ok || !crosses(o, best) {
			break
		}

		opposite := b.asks
		oppositeSide := core.Sell
		if o.Side == core.Sell {
			opposite = b.bids
			oppositeSide = core.Buy
		}
		level := opposite[best]
		maker := level[0]

		match := minQty(o.Quantity, maker.Quantity)
		o.Quantity -= match
		maker.Quantity -= match
		trades = append(trades, core.Trade{
			Price:     best, // maker price
			Quantity:  match,
			MakerID:   maker.ID,
			TakerID:   o.ID,
			Timestamp: core.Micros(b.clock.Now()),
			Symbol:    b.pair.Code(),
		})

		if maker.Quantity == 0 {
			opposite[best] = level[1:]
			delete(b.byID, maker.ID)
			if len(opposite[best]) == 0 {
				b.removeLevel(oppositeSide, best)
			}
		}
	}

	if o.Quantity > 0 && o.Kind == core.Limit {
		b.rest(o)
	}
	return trades
}

// Cancel removes a resting order. Returns false if the book does not hold
// the order (never accepted, already filled, or already cancelled).
func (b *Book) Cancel(id core.ID) bool {
	loc, ok := b.byID[id]
	if !ok {
		return false
	}

	side := b.bids
	if loc.side == core.Sell {
		side = b.asks
	}
	queue := side[loc.price]
	for i, o := range queue {
		if o.ID == id {
			side[loc.price] = append(queue[:i], queue[i+1:]...)
			if len(side[loc.price]) == 0 {
				b.removeLevel(loc.side, loc.price)
			}
			delete(b.byID, id)
			return true
		}
	}
	return false
}

// Snapshot aggregates resting quantity per level, best-first on both sides.
func (b *Book) Snapshot() Snapshot {
	return Snapshot{
		Pair: b.pair.Code(),
		Bids: levels(b.bids, func(i, j core.Price) bool { return i > j }),
		Asks: levels(b.asks, func(i, j core.Price) bool { return i < j }),
	}
}

func levels(side map[core.Price][]*core.Order, better func(i, j core.Price) bool) []Level {
	out := make([]Level, 0, len(side))
	for price, orders := range side {
		var total core.Quantity
		for _, o := range orders {
			total += o.Quantity
		}
		out = append(out, Level{Price: price, Qty: total})
	}
	sort.Slice(out, func(i, j int) bool { return better(out[i].Price, out[j].Price) })
	return out
}

// BestBid returns the highest resting bid price, if any.
func (b *Book) BestBid() (core.Price, bool) { return b.bestBid() }

// BestAsk returns the lowest resting ask price, if any.
func (b *Book) BestAsk() (core.Price, bool) { return b.bestAsk() }

// Len returns the number of resting orders. Used by tests and logging.
func (b *Book) Len() int { return len(b.byID) }

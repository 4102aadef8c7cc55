package exchange

import (
	"sync"

	"go.uber.org/zap"

	"github.com/aodr3w/order-book-engine/pkg/book"
	"github.com/aodr3w/order-book-engine/pkg/broadcast"
	"github.com/aodr3w/order-book-engine/pkg/core"
	"github.com/aodr3w/order-book-engine/pkg/instrument"
	"github.com/aodr3w/order-book-engine/pkg/store"
	"github.com/aodr3w/order-book-engine/pkg/util"
)

// SubmitRequest is a validated-on-entry order submission. Price must be set
// for limit orders and is ignored for market orders.
type SubmitRequest struct {
	Side     core.Side
	Kind     core.Kind
	Price    *core.Price
	Quantity core.Quantity
}

// SubmitResult carries the assigned order ID and the fills the submission
// produced, in match order.
type SubmitResult struct {
	OrderID core.ID      `json:"order_id"`
	Trades  []core.Trade `json:"trades"`
}

// Engine executes submit, cancel and snapshot for one pair. A single mutex
// is held across the whole command path, including the store append and the
// post-state snapshot broadcast, so every command appears atomic to
// observers and every broadcast snapshot reflects a consistent post-state.
// Distinct pairs run fully in parallel.
type Engine struct {
	pair instrument.Pair

	mu     sync.Mutex
	book   *book.Book
	store  store.TradeStore
	bc     *broadcast.Broadcaster
	log    *zap.SugaredLogger
	broken bool
}

// NewEngine wires a fresh book for pair to the shared store and the pair's
// broadcaster. The broadcaster is owned by the registry; the engine only
// publishes to it.
func NewEngine(pair instrument.Pair, st store.TradeStore, bc *broadcast.Broadcaster, clock util.Clock, log *zap.SugaredLogger) *Engine {
	return &Engine{
		pair:  pair,
		book:  book.New(pair, clock),
		store: st,
		bc:    bc,
		log:   log,
	}
}

// Pair returns the pair this engine trades.
func (e *Engine) Pair() instrument.Pair { return e.pair }

func validate(req SubmitRequest) error {
	if req.Quantity == 0 {
		return badRequest("quantity must be > 0")
	}
	if req.Kind == core.Limit && (req.Price == nil || *req.Price == 0) {
		return badRequest("limit orders require a positive price")
	}
	return nil
}

// Submit validates, matches, persists and broadcasts one order. Each trade
// is appended to the store before any frame is published: when a subscriber
// sees a Trade frame, a get_trades call can already observe that trade. A
// store write error aborts the command with nothing broadcast.
func (e *Engine) Submit(req SubmitRequest) (SubmitResult, error) {
	if err := validate(req); err != nil {
		return SubmitResult{}, err
	}

	order := &core.Order{
		ID:       core.NewID(),
		Side:     req.Side,
		Kind:     req.Kind,
		Quantity: req.Quantity,
		Pair:     e.pair,
	}
	if req.Kind == core.Limit {
		order.Price = *req.Price
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.broken {
		return SubmitResult{}, ErrInternal
	}

	trades := e.book.Submit(order)
	rested := order.Kind == core.Limit && order.Quantity > 0

	for _, t := range trades {
		if err := e.store.Append(t); err != nil {
			e.log.Errorw("trade_append_failed", "pair", e.pair.Code(), "err", err)
			return SubmitResult{}, &StoreError{Op: "append", Err: err}
		}
	}
	for _, t := range trades {
		e.bc.Publish(broadcast.TradeFrame(t))
	}
	if len(trades) > 0 || rested {
		e.bc.Publish(broadcast.SnapshotFrame(e.book.Snapshot()))
	}

	if err := e.checkInvariants(); err != nil {
		return SubmitResult{}, err
	}

	e.log.Infow("order_executed",
		"pair", e.pair.Code(),
		"order_id", order.ID.String(),
		"side", req.Side.String(),
		"kind", req.Kind.String(),
		"trades", len(trades),
		"rested", rested)

	if trades == nil {
		trades = []core.Trade{}
	}
	return SubmitResult{OrderID: order.ID, Trades: trades}, nil
}

// Cancel removes a resting order and broadcasts the post-state snapshot.
// A repeat cancel of the same ID yields ErrNotFound.
func (e *Engine) Cancel(id core.ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.broken {
		return ErrInternal
	}

	if !e.book.Cancel(id) {
		return ErrNotFound
	}
	e.bc.Publish(broadcast.SnapshotFrame(e.book.Snapshot()))
	e.log.Infow("order_cancelled", "pair", e.pair.Code(), "order_id", id.String())
	return nil
}

// Snapshot returns the aggregated book under the command lock.
func (e *Engine) Snapshot() book.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Snapshot()
}

// Subscribe registers a stream subscriber. The seed snapshot is read under
// the engine lock, so it is consistent with every frame that follows it.
func (e *Engine) Subscribe() *broadcast.Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bc.Subscribe(broadcast.SnapshotFrame(e.book.Snapshot()))
}

// checkInvariants verifies the book is not crossed at rest. A violation is
// fatal for the pair: the engine refuses further commands. Caller holds e.mu.
func (e *Engine) checkInvariants() error {
	bid, okBid := e.book.BestBid()
	ask, okAsk := e.book.BestAsk()
	if okBid && okAsk && bid >= ask {
		e.broken = true
		e.log.Errorw("book_crossed_at_rest", "pair", e.pair.Code(), "best_bid", bid, "best_ask", ask)
		return ErrInternal
	}
	return nil
}

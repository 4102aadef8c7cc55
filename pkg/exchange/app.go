package exchange

import (
	"errors"

	"go.uber.org/zap"

	"github.com/aodr3w/order-book-engine/pkg/broadcast"
	"github.com/aodr3w/order-book-engine/pkg/core"
	"github.com/aodr3w/order-book-engine/pkg/instrument"
	"github.com/aodr3w/order-book-engine/pkg/store"
	"github.com/aodr3w/order-book-engine/pkg/util"
)

// TradesPage is one page of historical trades. Next is null when the page
// is the last one. EffectiveLimit is the page size actually applied; the
// transport surfaces it as a response header.
type TradesPage struct {
	Items          []core.Trade `json:"items"`
	Next           *string      `json:"next"`
	EffectiveLimit int          `json:"-"`
}

// App is the symbol registry and application state: the fixed pair
// allow-list, one engine and one broadcaster per pair, and the shared trade
// store. It is constructed once at startup and shared by all callers.
type App struct {
	store        store.TradeStore
	engines      map[string]*Engine
	broadcasters map[string]*broadcast.Broadcaster
	log          *zap.SugaredLogger
}

// New builds an engine and broadcaster for every supported pair.
// subscriberBuffer bounds each stream subscriber's frame queue.
func New(st store.TradeStore, subscriberBuffer int, clock util.Clock, log *zap.SugaredLogger) *App {
	a := &App{
		store:        st,
		engines:      make(map[string]*Engine),
		broadcasters: make(map[string]*broadcast.Broadcaster),
		log:          log,
	}
	for _, pair := range instrument.Supported() {
		bc := broadcast.New(subscriberBuffer)
		a.broadcasters[pair.Code()] = bc
		a.engines[pair.Code()] = NewEngine(pair, st, bc, clock, log)
	}
	return a
}

// Engine resolves a symbol to its matching engine, or returns
// *instrument.UnsupportedSymbolError.
func (a *App) Engine(symbol string) (*Engine, error) {
	pair, err := instrument.Parse(symbol)
	if err != nil {
		return nil, err
	}
	return a.engines[pair.Code()], nil
}

// Trades pages through a pair's trade history in emission order. limit == 0
// is a bad request; limits above store.MaxPageLimit are soft-capped and the
// applied cap is reported in the result.
func (a *App) Trades(symbol string, limit int, after string) (TradesPage, error) {
	pair, err := instrument.Parse(symbol)
	if err != nil {
		return TradesPage{}, err
	}
	if limit < 1 {
		return TradesPage{}, badRequest("limit must be > 0")
	}
	effective := limit
	if effective > store.MaxPageLimit {
		effective = store.MaxPageLimit
	}

	page, err := a.store.List(pair.Code(), after, effective)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCursor) {
			return TradesPage{}, err
		}
		return TradesPage{}, &StoreError{Op: "list", Err: err}
	}

	out := TradesPage{Items: page.Items, EffectiveLimit: effective}
	if out.Items == nil {
		out.Items = []core.Trade{}
	}
	if page.Next != "" {
		out.Next = &page.Next
	}
	return out, nil
}

// Store exposes the shared trade store handle.
func (a *App) Store() store.TradeStore { return a.store }

// Close flushes and closes the trade store. Called once at shutdown.
func (a *App) Close() error { return a.store.Close() }

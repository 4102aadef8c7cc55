// Package store persists executed trades in an append-only, per-pair log
// with opaque-cursor forward pagination.
package store

import (
	"errors"

	"github.com/aodr3w/order-book-engine/pkg/core"
)

// MaxPageLimit is the soft cap applied to List page sizes.
const MaxPageLimit = 1000

var (
	// ErrInvalidCursor marks a malformed cursor or one produced for a
	// different pair.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrBadLimit marks a non-positive page limit.
	ErrBadLimit = errors.New("limit must be positive")
)

// Page is one forward page of trades. Next is empty when no trade exists
// beyond the page; otherwise it is an opaque cursor for the next call.
type Page struct {
	Items []core.Trade
	Next  string
}

// TradeStore is the durable trade log shared by all engines. Implementations
// must be safe for concurrent use; Append must not return until the trade
// would survive a crash, and List must observe each pair's trades in append
// order, never torn.
type TradeStore interface {
	// Append assigns the next sequence for the trade's pair and commits.
	Append(t core.Trade) error

	// List returns up to limit trades of one pair in ascending sequence
	// order, strictly after the cursor (or from the beginning when after
	// is empty). Limits above MaxPageLimit are capped.
	List(pairCode, after string, limit int) (Page, error)

	Close() error
}

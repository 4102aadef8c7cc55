package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aodr3w/order-book-engine/pkg/instrument"
)

// Price and Quantity are non-negative integer units. Quantity must be > 0
// for an order to be accepted.
type (
	Price    uint64
	Quantity uint64
)

// Side is the direction of an order.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "Buy"
	}
	return "Sell"
}

func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Side) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case "Buy":
		*s = Buy
	case "Sell":
		*s = Sell
	default:
		return fmt.Errorf("invalid side %q", v)
	}
	return nil
}

// Kind distinguishes limit orders (require a price, may rest) from market
// orders (price ignored, never rest).
type Kind uint8

const (
	Limit Kind = iota
	Market
)

func (k Kind) String() string {
	if k == Limit {
		return "Limit"
	}
	return "Market"
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case "Limit":
		*k = Limit
	case "Market":
		*k = Market
	default:
		return fmt.Errorf("invalid order type %q", v)
	}
	return nil
}

// Order is an accepted order inside one engine. Seq is the per-engine
// arrival counter assigned at acceptance; it is the tiebreaker within a
// price level (time priority).
type Order struct {
	ID       ID
	Side     Side
	Kind     Kind
	Price    Price // meaningful only for Kind == Limit
	Quantity Quantity
	Pair     instrument.Pair
	Seq      uint64
}

// Trade is one fill between a resting (maker) and incoming (taker) order.
// The price is always the maker's price. Timestamp is wall-clock
// microseconds since the Unix epoch, read at the moment of fill.
type Trade struct {
	Price     Price    `json:"price"`
	Quantity  Quantity `json:"quantity"`
	MakerID   ID       `json:"maker_id"`
	TakerID   ID       `json:"taker_id"`
	Timestamp int64    `json:"timestamp"`
	Symbol    string   `json:"symbol"`
}

// Micros converts a wall-clock reading to the trade timestamp unit.
func Micros(t time.Time) int64 { return t.UnixMicro() }

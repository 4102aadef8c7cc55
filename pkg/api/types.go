package api

import "github.com/aodr3w/order-book-engine/pkg/core"

// NewOrder is the payload for POST /orders.
//
//   - side: "Buy" or "Sell"
//   - order_type: "Limit" (price required) or "Market" (price ignored)
//   - quantity: units to trade, must be > 0
//   - symbol: trading pair code, e.g. "BTC-USD"
type NewOrder struct {
	Side      core.Side     `json:"side"`
	OrderType core.Kind     `json:"order_type"`
	Price     *core.Price   `json:"price"`
	Quantity  core.Quantity `json:"quantity"`
	Symbol    string        `json:"symbol"`
}

// OrderAck is the response for POST /orders: the generated order ID (a
// decimal string) and any trades the order produced, in match order.
type OrderAck struct {
	OrderID core.ID      `json:"order_id"`
	Trades  []core.Trade `json:"trades"`
}

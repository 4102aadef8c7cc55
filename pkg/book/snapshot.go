package book

import (
	"encoding/json"
	"fmt"

	"github.com/aodr3w/order-book-engine/pkg/core"
)

// Level is one aggregated price level. It serializes as a two-element
// [price, quantity] array.
type Level struct {
	Price core.Price
	Qty   core.Quantity
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint64{uint64(l.Price), uint64(l.Qty)})
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var pair [2]uint64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("level must be a [price, quantity] pair: %w", err)
	}
	l.Price = core.Price(pair[0])
	l.Qty = core.Quantity(pair[1])
	return nil
}

// Snapshot is an aggregated view of the book: every non-empty level exactly
// once, best-first (bids descending, asks ascending).
type Snapshot struct {
	Pair string  `json:"pair"`
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

package core

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// ID is a 128-bit identifier for orders and trade participants. IDs are
// opaque to clients and cross the external boundary as decimal strings so
// 53-bit floating-point consumers never truncate them.
type ID [16]byte

// NewID returns a fresh process-unique identifier (random v4 UUID bits).
func NewID() ID {
	return ID(uuid.New())
}

// IsZero reports whether the ID is the all-zero value.
func (id ID) IsZero() bool {
	return id == ID{}
}

// String renders the ID as an unsigned decimal integer.
func (id ID) String() string {
	return new(big.Int).SetBytes(id[:]).String()
}

// ParseID parses the decimal-string form produced by String.
func ParseID(s string) (ID, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 || n.BitLen() > 128 {
		return ID{}, fmt.Errorf("invalid id %q", s)
	}
	var id ID
	n.FillBytes(id[:])
	return id, nil
}

// MarshalJSON emits the decimal-string form.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON accepts only the string form; numeric IDs are rejected to
// keep clients from round-tripping them through floats.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("id must be a decimal string: %w", err)
	}
	parsed, err := ParseID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

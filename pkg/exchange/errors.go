package exchange

import (
	"errors"
	"fmt"
)

// BadRequestError rejects invalid input: non-positive quantity, missing
// price on a limit order, zero page limit. No state is mutated.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string { return e.Reason }

func badRequest(format string, args ...interface{}) error {
	return &BadRequestError{Reason: fmt.Sprintf(format, args...)}
}

// StoreError marks a failed read or write of the durable trade log.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("trade store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

var (
	// ErrNotFound means a cancel targeted an order the engine does not hold.
	ErrNotFound = errors.New("order not found")

	// ErrInternal marks an engine invariant violation. The engine refuses
	// further commands for its pair once this is returned.
	ErrInternal = errors.New("internal invariant violation")
)

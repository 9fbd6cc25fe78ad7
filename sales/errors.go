package sales

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is the category for lifecycle operations applied
	// to a sale or plot in the wrong state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrOverpayment is returned when a payment would push the total
	// received past the sale amount.
	ErrOverpayment = errors.New("payment exceeds sale amount")
)

// InvalidTransitionError reports the entity and states involved in a
// rejected lifecycle operation.
type InvalidTransitionError struct {
	Entity string // "sale" or "plot"
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %q: %s -> %s: %v", e.Entity, e.ID, e.From, e.To, ErrInvalidTransition)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

/*
errors.go - Error taxonomy for the commission engine

PURPOSE:
  All error types in one place. The engine performs no local recovery:
  any error is a hard failure the caller must treat as aborting the
  enclosing sale-confirmation transaction. A partial distribution would
  violate the conservation invariant, so there is no partial-success mode.

ERROR CATEGORIES:
  1. ReferenceNotFoundError - seller, rule role, or rule user unresolvable
  2. InvalidRuleError       - malformed rule (no target, bad type, negative value)
  3. InvalidAmountError     - negative sale amount or area, caught before
                              any rule evaluation begins

USAGE:
  if errors.Is(err, commission.ErrReferenceNotFound) { ... }

  var ruleErr *commission.InvalidRuleError
  if errors.As(err, &ruleErr) { log.Println(ruleErr.RuleID) }
*/
package commission

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrReferenceNotFound is the category for unresolved roles and users.
	ErrReferenceNotFound = errors.New("reference not found")

	// ErrInvalidRule is the category for malformed commission rules.
	// Malformed rules fail the whole distribution; silently skipping them
	// would under-pay commissions.
	ErrInvalidRule = errors.New("invalid commission rule")

	// ErrInvalidAmount is the category for malformed monetary inputs.
	ErrInvalidAmount = errors.New("invalid amount")
)

// =============================================================================
// TYPED ERRORS - Use with errors.As()
// =============================================================================

// ReferenceNotFoundError reports a role or user id that could not be
// resolved by the directories.
type ReferenceNotFoundError struct {
	Kind string // "role" or "user"
	ID   string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.ID, ErrReferenceNotFound)
}

func (e *ReferenceNotFoundError) Unwrap() error { return ErrReferenceNotFound }

// InvalidRuleError reports a rule that cannot participate in distribution.
type InvalidRuleError struct {
	RuleID RuleID
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("rule %q: %s: %v", e.RuleID, e.Reason, ErrInvalidRule)
}

func (e *InvalidRuleError) Unwrap() error { return ErrInvalidRule }

// InvalidAmountError reports a negative or malformed monetary input,
// rejected at context-construction time.
type InvalidAmountError struct {
	Field string
	Value decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Field, e.Value, ErrInvalidAmount)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

/*
calculator.go - Rule to currency amount conversion

PURPOSE:
  Converts one commission rule into a raw currency amount for a given
  sale. Pure function: no side effects, safe to call concurrently.

SEMANTICS BY TYPE:
  percentage:      amount = saleAmount * value / 100
  amount_per_sqft: amount = area * value
  flat:            amount = value

  An unsupported type is an error, never a silent zero. A zero-amount
  allocation for a malformed rule is indistinguishable from a correctly
  computed zero and would hide under-payment.
*/
package commission

import (
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// Calculate converts a rule into a non-negative currency amount for a sale
// with the given amount and area. Returns InvalidRuleError for an
// unsupported commission type.
func Calculate(rule CommissionRule, saleAmount, area decimal.Decimal) (decimal.Decimal, error) {
	switch rule.Type {
	case TypePercentage:
		return saleAmount.Mul(rule.Value).Div(oneHundred), nil
	case TypeAmountPerSqft:
		return area.Mul(rule.Value), nil
	case TypeFlat:
		return rule.Value, nil
	default:
		return decimal.Zero, &InvalidRuleError{
			RuleID: rule.ID,
			Reason: "unsupported commission type " + string(rule.Type),
		}
	}
}

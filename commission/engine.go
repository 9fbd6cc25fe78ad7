/*
engine.go - The commission distribution algorithm

PURPOSE:
  Given a sale context, a project's active rule set, and the seller's
  ancestor chain, produce the final list of per-recipient allocations.

PER-RULE RECIPIENT RESOLUTION (ordered decision list, first match wins):
  1. Fixed-user rule:  the literal user, bypassing hierarchy entirely
  2. Seller's own role: the seller
  3. Junior role:      absorbed (nobody below the seller in this chain)
  4. Senior-or-equal:  first ancestor holding that role, else absorbed

ABSORPTION:
  Absorbed amounts are tracked as one running pool and merged into the
  seller after all rules are processed. The seller is the sole fallback;
  absorption changes who receives value, never how much exists.

INVARIANTS:
  - Every active rule is credited to exactly one recipient
  - sum(allocation amounts) == sum(raw rule amounts)  (conservation)
  - One allocation per distinct recipient (merge is commutative summation)

STATE:
  None. All accumulation is local to one Distribute call; concurrent
  calls for different sales share nothing.
*/
package commission

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

// DistributionInput carries everything a distribution needs, fully loaded
// and in memory. Build one with Loader.Load, or by hand in tests.
type DistributionInput struct {
	Sale  SaleContext
	Rules []CommissionRule

	// Chain is the seller's ancestor chain, immediate manager first,
	// excluding the seller.
	Chain []User

	// Roles maps every role id referenced by the sale or a rule to its
	// record. A missing entry is a hard ReferenceNotFound failure.
	Roles map[RoleID]Role
}

// DistributionResult is the outcome of one distribution.
type DistributionResult struct {
	Allocations []Allocation
	Absorbed    AbsorbedSummary
}

// AbsorbedSummary records what the absorption pool collected before it was
// merged into the seller. Useful for audit trails and tests.
type AbsorbedSummary struct {
	Percentage decimal.Decimal
	Amount     decimal.Decimal
	Rules      int
}

// =============================================================================
// ENGINE
// =============================================================================

// DistributionEngine orchestrates rule resolution for one sale at a time.
// The zero value is ready to use.
type DistributionEngine struct{}

// Distribute evaluates every rule in the order supplied and returns the
// merged per-recipient allocations in first-credit order. Any unresolved
// reference or malformed rule fails the whole distribution.
func (e *DistributionEngine) Distribute(in DistributionInput) (*DistributionResult, error) {
	if in.Sale.SaleAmount.IsNegative() {
		return nil, &InvalidAmountError{Field: "sale amount", Value: in.Sale.SaleAmount}
	}
	if in.Sale.Area.IsNegative() {
		return nil, &InvalidAmountError{Field: "area", Value: in.Sale.Area}
	}
	if _, ok := in.Roles[in.Sale.SellerRoleID]; !ok {
		return nil, &ReferenceNotFoundError{Kind: "role", ID: string(in.Sale.SellerRoleID)}
	}

	acc := newAccumulator(in.Sale.SaleID)
	absorbed := AbsorbedSummary{Percentage: decimal.Zero, Amount: decimal.Zero}

	for _, rule := range in.Rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}

		amount, err := Calculate(rule, in.Sale.SaleAmount, in.Sale.Area)
		if err != nil {
			return nil, err
		}
		// The percentage column always carries the rule's configured value,
		// whatever the commission type.
		pct := rule.Value

		if rule.TargetsUser() {
			acc.credit(rule.UserID, rule.RoleID, pct, amount)
			continue
		}

		role, ok := in.Roles[rule.RoleID]
		if !ok {
			return nil, &ReferenceNotFoundError{Kind: "role", ID: string(rule.RoleID)}
		}

		switch Relate(role, in.Sale.SellerRoleID, in.Sale.SellerRoleLevel) {
		case RelationSelf:
			acc.credit(in.Sale.SellerID, in.Sale.SellerRoleID, pct, amount)

		case RelationJunior:
			absorbed.Percentage = absorbed.Percentage.Add(pct)
			absorbed.Amount = absorbed.Amount.Add(amount)
			absorbed.Rules++

		case RelationSeniorOrEqual:
			if ancestor, found := firstWithRole(in.Chain, rule.RoleID); found {
				acc.credit(ancestor.ID, rule.RoleID, pct, amount)
			} else {
				absorbed.Percentage = absorbed.Percentage.Add(pct)
				absorbed.Amount = absorbed.Amount.Add(amount)
				absorbed.Rules++
			}
		}
	}

	// Post-pass: the absorbed pool lands on the seller, making them whole
	// for every tier that had no other claimant.
	if absorbed.Percentage.IsPositive() {
		acc.credit(in.Sale.SellerID, in.Sale.SellerRoleID, absorbed.Percentage, absorbed.Amount)
	}

	return &DistributionResult{
		Allocations: acc.allocations(),
		Absorbed:    absorbed,
	}, nil
}

// firstWithRole returns the first user in the chain holding the role.
func firstWithRole(chain []User, roleID RoleID) (User, bool) {
	for _, u := range chain {
		if u.RoleID == roleID {
			return u, true
		}
	}
	return User{}, false
}

// =============================================================================
// ACCUMULATOR - Per-recipient merge, insertion ordered
// =============================================================================

type accumulator struct {
	saleID SaleID
	order  []UserID
	pct    map[UserID]decimal.Decimal
	amt    map[UserID]decimal.Decimal
	role   map[UserID]RoleID
}

func newAccumulator(saleID SaleID) *accumulator {
	return &accumulator{
		saleID: saleID,
		pct:    make(map[UserID]decimal.Decimal),
		amt:    make(map[UserID]decimal.Decimal),
		role:   make(map[UserID]RoleID),
	}
}

// credit adds a contribution for the recipient. The role recorded for the
// first contribution is retained; later contributions under a different
// role do not overwrite it.
func (a *accumulator) credit(user UserID, role RoleID, pct, amount decimal.Decimal) {
	if _, seen := a.pct[user]; !seen {
		a.order = append(a.order, user)
		a.pct[user] = decimal.Zero
		a.amt[user] = decimal.Zero
		a.role[user] = role
	}
	a.pct[user] = a.pct[user].Add(pct)
	a.amt[user] = a.amt[user].Add(amount)
}

func (a *accumulator) allocations() []Allocation {
	out := make([]Allocation, 0, len(a.order))
	for _, user := range a.order {
		out = append(out, Allocation{
			SaleID:      a.saleID,
			RecipientID: user,
			RoleID:      a.role[user],
			Percentage:  a.pct[user],
			Amount:      a.amt[user],
		})
	}
	return out
}

/*
Package commission provides the core commission distribution engine.

PURPOSE:
  This package contains the types and algorithms that split a confirmed
  sale's commission among the chain of people who sold and managed it.
  Per-project rules can target a role, a fixed user, or fall through to
  the seller when no qualifying recipient exists at a level ("absorption").

KEY CONCEPTS IN THIS FILE (types.go):
  - Role: Reference data with a numeric seniority level (smaller = more senior)
  - User: A sales-hierarchy participant; ManagerID links form a tree
  - CommissionRule: A project-scoped entry saying who gets how much
  - SaleContext: The per-sale facts the engine computes over
  - Allocation: One recipient's final, merged share of a sale's commission
  - RoleRelation: The explicit three-way seniority comparison result

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all money; no floating point
  2. Purity: The engine has no side effects and no stored state
  3. Conservation: Absorption moves value, it never creates or destroys it
  4. Fail fast: Unresolved references abort the whole distribution

SEE ALSO:
  - calculator.go: Rule -> raw amount conversion
  - engine.go: The distribution algorithm
  - loader.go: Builds DistributionInput from the directories
  - errors.go: Error taxonomy
*/
package commission

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RoleID string
type UserID string
type RuleID string
type ProjectID string
type SaleID string

// =============================================================================
// REFERENCE DATA - Roles and the sales hierarchy
// =============================================================================

// Role is immutable reference data. Level encodes seniority: smaller values
// are more senior (0 is typically the managing director).
type Role struct {
	ID    RoleID
	Level int
	Name  string
}

// User is a sales-hierarchy participant. ManagerID is empty for the top of
// the tree. The ancestor chain of a user is the sequence of managers
// obtained by following ManagerID until empty, most immediate first.
type User struct {
	ID        UserID
	Name      string
	RoleID    RoleID
	ManagerID UserID
}

// HasManager reports whether the user has a manager above them.
func (u User) HasManager() bool { return u.ManagerID != "" }

// =============================================================================
// COMMISSION RULES
// =============================================================================

// CommissionType determines how a rule's value converts into money.
type CommissionType string

const (
	// TypePercentage: amount = saleAmount * value / 100
	TypePercentage CommissionType = "percentage"

	// TypeAmountPerSqft: amount = area * value
	TypeAmountPerSqft CommissionType = "amount_per_sqft"

	// TypeFlat: amount = value, regardless of sale amount and area
	TypeFlat CommissionType = "flat"
)

// CommissionRule is a project-scoped configuration entry. A rule targets
// either a role (RoleID set) or a fixed user (UserID set); a fixed-user
// rule may additionally carry a RoleID recording the role under which the
// amount is attributed.
type CommissionRule struct {
	ID        RuleID
	ProjectID ProjectID
	RoleID    RoleID
	UserID    UserID
	Type      CommissionType
	Value     decimal.Decimal
	Priority  int
	Active    bool

	// Optional effective window. Zero pointers mean unbounded.
	EffectiveFrom *time.Time
	EffectiveTo   *time.Time
}

// TargetsUser reports whether this is a fixed-user override rule. Such
// rules bypass hierarchy resolution entirely.
func (r CommissionRule) TargetsUser() bool { return r.UserID != "" }

// InEffect reports whether the rule's effective window covers the instant.
func (r CommissionRule) InEffect(at time.Time) bool {
	if r.EffectiveFrom != nil && at.Before(*r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && at.After(*r.EffectiveTo) {
		return false
	}
	return true
}

// Validate checks the rule's internal consistency. It does not resolve
// references; the Loader does that against the directories.
func (r CommissionRule) Validate() error {
	if r.RoleID == "" && r.UserID == "" {
		return &InvalidRuleError{RuleID: r.ID, Reason: "rule targets neither a role nor a user"}
	}
	switch r.Type {
	case TypePercentage, TypeAmountPerSqft, TypeFlat:
	default:
		return &InvalidRuleError{RuleID: r.ID, Reason: "unsupported commission type " + string(r.Type)}
	}
	if r.Value.IsNegative() {
		return &InvalidRuleError{RuleID: r.ID, Reason: "negative commission value"}
	}
	return nil
}

// =============================================================================
// SALE CONTEXT - Derived per confirmation, never persisted
// =============================================================================

// SaleContext holds the per-sale facts the engine computes over. It is
// constructed fresh per sale-confirmation call and discarded after use.
type SaleContext struct {
	SaleID          SaleID
	ProjectID       ProjectID
	SellerID        UserID
	SellerRoleID    RoleID
	SellerRoleLevel int
	SaleAmount      decimal.Decimal
	Area            decimal.Decimal
}

// =============================================================================
// ALLOCATION - Output of distribution
// =============================================================================

// Allocation is one recipient's final share of a sale's commission.
// Repeated contributions to the same recipient are summed into a single
// allocation, never duplicated.
type Allocation struct {
	SaleID      SaleID
	RecipientID UserID
	RoleID      RoleID
	Percentage  decimal.Decimal
	Amount      decimal.Decimal
}

// =============================================================================
// ROLE RELATION - Explicit three-way seniority comparison
// =============================================================================

// RoleRelation classifies a rule's target role against the seller. Keeping
// this an explicit variant (rather than inline numeric comparisons) makes
// the engine's branch table testable in isolation.
type RoleRelation string

const (
	// RelationSelf: the rule targets the seller's own role.
	RelationSelf RoleRelation = "self"

	// RelationJunior: the rule targets a role organizationally below the
	// seller. There is by construction nobody below the seller in the
	// sale's chain, so such amounts are absorbed.
	RelationJunior RoleRelation = "junior"

	// RelationSeniorOrEqual: the rule targets a role at or above the
	// seller's level (but not the seller's own role); resolved by walking
	// the ancestor chain.
	RelationSeniorOrEqual RoleRelation = "senior_or_equal"
)

// Relate classifies ruleRole against the seller's role. Levels are
// compared numerically: a greater level means more junior.
func Relate(ruleRole Role, sellerRoleID RoleID, sellerRoleLevel int) RoleRelation {
	if ruleRole.ID == sellerRoleID {
		return RelationSelf
	}
	if ruleRole.Level > sellerRoleLevel {
		return RelationJunior
	}
	return RelationSeniorOrEqual
}

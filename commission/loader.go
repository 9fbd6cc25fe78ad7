/*
loader.go - Directory contracts and DistributionInput construction

PURPOSE:
  Defines the read-only lookup contracts the engine's caller satisfies
  (role directory, user directory, rule source) and the Loader that turns
  them into a fully validated DistributionInput.

VALIDATION ORDER:
  Malformed monetary inputs and unresolvable references are rejected here,
  before any rule evaluation begins, so failures never leave partial
  accumulation state behind.

IMPLEMENTATIONS:
  store/sqlite: production directories backed by SQLite
  commission/store: in-memory directories for tests and demos
*/
package commission

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DIRECTORY CONTRACTS
// =============================================================================

// RoleDirectory resolves role ids to role records. Implementations must
// fail with ReferenceNotFound for unknown ids and must never return a role
// with an undefined level.
type RoleDirectory interface {
	Role(ctx context.Context, id RoleID) (Role, error)
}

// UserDirectory resolves users and their manager chains.
type UserDirectory interface {
	User(ctx context.Context, id UserID) (User, error)

	// AncestorChain returns the manager chain starting from the immediate
	// manager, excluding the user. Empty if the user has no manager.
	AncestorChain(ctx context.Context, id UserID) ([]User, error)
}

// RuleSource returns the active commission rules configured for a project:
// rules flagged active and, if effective-dated, currently in effect.
type RuleSource interface {
	ActiveRules(ctx context.Context, projectID ProjectID) ([]CommissionRule, error)
}

// AllocationSink persists a sale's allocations. Called once per sale by
// the orchestrating transaction; must be idempotent-safe under retry.
type AllocationSink interface {
	SaveAllocations(ctx context.Context, allocations []Allocation) error
}

// =============================================================================
// LOADER
// =============================================================================

// Loader assembles a DistributionInput from the directories.
type Loader struct {
	Roles RoleDirectory
	Users UserDirectory
	Rules RuleSource
}

// Load builds and validates the input for one sale. The caller supplies
// the sale facts; the loader resolves the seller, the ancestor chain, the
// project's active rules, and every role the rules reference.
func (l *Loader) Load(ctx context.Context, saleID SaleID, projectID ProjectID, sellerID UserID, saleAmount, area decimal.Decimal) (DistributionInput, error) {
	var in DistributionInput

	if saleAmount.IsNegative() {
		return in, &InvalidAmountError{Field: "sale amount", Value: saleAmount}
	}
	if area.IsNegative() {
		return in, &InvalidAmountError{Field: "area", Value: area}
	}

	seller, err := l.Users.User(ctx, sellerID)
	if err != nil {
		return in, err
	}
	sellerRole, err := l.Roles.Role(ctx, seller.RoleID)
	if err != nil {
		return in, err
	}

	chain, err := l.Users.AncestorChain(ctx, sellerID)
	if err != nil {
		return in, err
	}

	rules, err := l.Rules.ActiveRules(ctx, projectID)
	if err != nil {
		return in, err
	}

	roles := map[RoleID]Role{sellerRole.ID: sellerRole}
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return in, err
		}
		if rule.RoleID != "" {
			if _, ok := roles[rule.RoleID]; !ok {
				role, err := l.Roles.Role(ctx, rule.RoleID)
				if err != nil {
					return in, err
				}
				roles[rule.RoleID] = role
			}
		}
		if rule.TargetsUser() {
			if _, err := l.Users.User(ctx, rule.UserID); err != nil {
				return in, err
			}
		}
	}

	return DistributionInput{
		Sale: SaleContext{
			SaleID:          saleID,
			ProjectID:       projectID,
			SellerID:        seller.ID,
			SellerRoleID:    sellerRole.ID,
			SellerRoleLevel: sellerRole.Level,
			SaleAmount:      saleAmount,
			Area:            area,
		},
		Rules: rules,
		Chain: chain,
		Roles: roles,
	}, nil
}

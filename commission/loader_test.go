package commission_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landmark/estate-engine/commission"
	"github.com/landmark/estate-engine/commission/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLoader() (*commission.Loader, *store.Memory) {
	mem := store.NewMemory()
	mem.PutRole(roleMD)
	mem.PutRole(rolePM)
	mem.PutRole(rolePA)
	mem.PutRole(roleAgent)
	mem.PutUser(userMD)
	mem.PutUser(userPM)
	mem.PutUser(userPA)

	return &commission.Loader{Roles: mem, Users: mem, Rules: mem}, mem
}

func TestLoader_BuildsContextAndChain(t *testing.T) {
	// GIVEN: PA seller managed by PM managed by MD, one active PA rule
	// WHEN: Loading the distribution input
	// THEN: Seller role level is resolved and the chain is PM then MD

	loader, mem := newTestLoader()
	rule := pctRule("r1", rolePA.ID, "20")
	rule.ProjectID = "proj-1"
	mem.PutRule(rule)

	in, err := loader.Load(context.Background(), "sale-1", "proj-1", userPA.ID, dec("500000"), dec("900"))
	require.NoError(t, err)

	assert.Equal(t, rolePA.ID, in.Sale.SellerRoleID)
	assert.Equal(t, rolePA.Level, in.Sale.SellerRoleLevel)
	require.Len(t, in.Chain, 2)
	assert.Equal(t, userPM.ID, in.Chain[0].ID, "immediate manager first")
	assert.Equal(t, userMD.ID, in.Chain[1].ID)
	require.Len(t, in.Rules, 1)
	assert.Contains(t, in.Roles, rolePA.ID)
}

func TestLoader_InactiveAndExpiredRulesExcluded(t *testing.T) {
	loader, mem := newTestLoader()

	inactive := pctRule("r-off", rolePA.ID, "20")
	inactive.ProjectID = "proj-1"
	inactive.Active = false
	mem.PutRule(inactive)

	past := time.Now().Add(-24 * time.Hour)
	expired := pctRule("r-expired", rolePA.ID, "10")
	expired.ProjectID = "proj-1"
	expired.EffectiveTo = &past
	mem.PutRule(expired)

	in, err := loader.Load(context.Background(), "sale-1", "proj-1", userPA.ID, dec("500000"), dec("900"))
	require.NoError(t, err)
	assert.Empty(t, in.Rules)
}

func TestLoader_UnknownSeller_ReferenceNotFound(t *testing.T) {
	loader, _ := newTestLoader()

	_, err := loader.Load(context.Background(), "sale-1", "proj-1", "ghost", dec("1"), dec("1"))
	assert.ErrorIs(t, err, commission.ErrReferenceNotFound)
}

func TestLoader_RuleReferencingUnknownRole_ReferenceNotFound(t *testing.T) {
	loader, mem := newTestLoader()
	rule := pctRule("r1", "ghost-role", "5")
	rule.ProjectID = "proj-1"
	mem.PutRule(rule)

	_, err := loader.Load(context.Background(), "sale-1", "proj-1", userPA.ID, dec("1"), dec("1"))
	assert.ErrorIs(t, err, commission.ErrReferenceNotFound)
}

func TestLoader_FixedUserRuleWithUnknownUser_ReferenceNotFound(t *testing.T) {
	loader, mem := newTestLoader()
	mem.PutRule(commission.CommissionRule{
		ID: "r1", ProjectID: "proj-1", UserID: "ghost",
		Type: commission.TypePercentage, Value: dec("5"), Active: true,
	})

	_, err := loader.Load(context.Background(), "sale-1", "proj-1", userPA.ID, dec("1"), dec("1"))
	assert.ErrorIs(t, err, commission.ErrReferenceNotFound)
}

func TestLoader_NegativeInputs_RejectedBeforeResolution(t *testing.T) {
	loader, _ := newTestLoader()

	_, err := loader.Load(context.Background(), "sale-1", "proj-1", userPA.ID, dec("-5"), dec("1"))
	assert.ErrorIs(t, err, commission.ErrInvalidAmount)

	_, err = loader.Load(context.Background(), "sale-1", "proj-1", userPA.ID, dec("5"), dec("-1"))
	assert.ErrorIs(t, err, commission.ErrInvalidAmount)
}

func TestLoader_MalformedRule_InvalidRule(t *testing.T) {
	loader, mem := newTestLoader()
	mem.PutRule(commission.CommissionRule{
		ID: "r1", ProjectID: "proj-1", RoleID: rolePA.ID,
		Type: commission.TypePercentage, Value: dec("-5"), Active: true,
	})

	_, err := loader.Load(context.Background(), "sale-1", "proj-1", userPA.ID, dec("1"), dec("1"))
	assert.ErrorIs(t, err, commission.ErrInvalidRule)
}

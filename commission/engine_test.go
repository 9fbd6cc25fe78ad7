package commission_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/landmark/estate-engine/commission"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Standard test hierarchy: MD (level 0) > PM (level 2) > PA (level 3),
// with a FIELD_AGENT role (level 4) junior to the PA seller.
var (
	roleMD    = commission.Role{ID: "md", Level: 0, Name: "Managing Director"}
	rolePM    = commission.Role{ID: "pm", Level: 2, Name: "Project Manager"}
	rolePA    = commission.Role{ID: "pa", Level: 3, Name: "Project Associate"}
	roleAgent = commission.Role{ID: "field_agent", Level: 4, Name: "Field Agent"}

	userMD = commission.User{ID: "u-md", Name: "Mo", RoleID: "md"}
	userPM = commission.User{ID: "u-pm", Name: "Pia", RoleID: "pm", ManagerID: "u-md"}
	userPA = commission.User{ID: "u-pa", Name: "Pat", RoleID: "pa", ManagerID: "u-pm"}
)

func testRoles() map[commission.RoleID]commission.Role {
	return map[commission.RoleID]commission.Role{
		roleMD.ID: roleMD, rolePM.ID: rolePM, rolePA.ID: rolePA, roleAgent.ID: roleAgent,
	}
}

func paSale(amount string) commission.SaleContext {
	return commission.SaleContext{
		SaleID:          "sale-1",
		ProjectID:       "proj-1",
		SellerID:        userPA.ID,
		SellerRoleID:    rolePA.ID,
		SellerRoleLevel: rolePA.Level,
		SaleAmount:      dec(amount),
		Area:            dec("1200"),
	}
}

func pctRule(id string, role commission.RoleID, value string) commission.CommissionRule {
	return commission.CommissionRule{
		ID:     commission.RuleID(id),
		RoleID: role,
		Type:   commission.TypePercentage,
		Value:  dec(value),
		Active: true,
	}
}

func findAllocation(t *testing.T, allocs []commission.Allocation, user commission.UserID) commission.Allocation {
	t.Helper()
	for _, a := range allocs {
		if a.RecipientID == user {
			return a
		}
	}
	t.Fatalf("no allocation for %s", user)
	return commission.Allocation{}
}

// =============================================================================
// SCENARIO TESTS
// =============================================================================

func TestDistribute_FullChain_NoAbsorption(t *testing.T) {
	// GIVEN: PA seller (level 3), rules for PA 20%, PM 10%, MD 5%,
	//        chain [PM-user, MD-user]
	// WHEN: Distributing a 1,000,000 sale
	// THEN: PA gets 20%, PM gets 10%, MD gets 5%; nothing absorbed

	engine := &commission.DistributionEngine{}

	result, err := engine.Distribute(commission.DistributionInput{
		Sale: paSale("1000000"),
		Rules: []commission.CommissionRule{
			pctRule("r1", rolePA.ID, "20"),
			pctRule("r2", rolePM.ID, "10"),
			pctRule("r3", roleMD.ID, "5"),
		},
		Chain: []commission.User{userPM, userMD},
		Roles: testRoles(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Allocations) != 3 {
		t.Fatalf("expected 3 allocations, got %d", len(result.Allocations))
	}
	if got := findAllocation(t, result.Allocations, userPA.ID); !got.Amount.Equal(dec("200000")) {
		t.Errorf("PA: expected 200000, got %v", got.Amount)
	}
	if got := findAllocation(t, result.Allocations, userPM.ID); !got.Amount.Equal(dec("100000")) {
		t.Errorf("PM: expected 100000, got %v", got.Amount)
	}
	if got := findAllocation(t, result.Allocations, userMD.ID); !got.Amount.Equal(dec("50000")) {
		t.Errorf("MD: expected 50000, got %v", got.Amount)
	}
	if !result.Absorbed.Amount.IsZero() {
		t.Errorf("expected no absorption, got %v", result.Absorbed.Amount)
	}
}

func TestDistribute_JuniorRole_AbsorbedIntoSeller(t *testing.T) {
	// GIVEN: PA seller, rules for PA 20% and FIELD_AGENT (level 4) 10%
	// WHEN: Distributing
	// THEN: Seller receives 30% total as one merged allocation

	engine := &commission.DistributionEngine{}

	result, err := engine.Distribute(commission.DistributionInput{
		Sale: paSale("1000000"),
		Rules: []commission.CommissionRule{
			pctRule("r1", rolePA.ID, "20"),
			pctRule("r2", roleAgent.ID, "10"),
		},
		Chain: []commission.User{userPM, userMD},
		Roles: testRoles(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Allocations) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(result.Allocations))
	}
	got := result.Allocations[0]
	if got.RecipientID != userPA.ID {
		t.Errorf("expected seller recipient, got %s", got.RecipientID)
	}
	if !got.Percentage.Equal(dec("30")) {
		t.Errorf("expected 30%%, got %v", got.Percentage)
	}
	if !got.Amount.Equal(dec("300000")) {
		t.Errorf("expected 300000, got %v", got.Amount)
	}
	if result.Absorbed.Rules != 1 {
		t.Errorf("expected 1 absorbed rule, got %d", result.Absorbed.Rules)
	}
}

func TestDistribute_SeniorRoleMissingFromChain_Absorbed(t *testing.T) {
	// GIVEN: PA seller whose chain holds only an MD (no PM)
	// WHEN: Distributing a PM 10% rule
	// THEN: 10% is absorbed into the seller; the MD receives nothing

	engine := &commission.DistributionEngine{}

	result, err := engine.Distribute(commission.DistributionInput{
		Sale:  paSale("1000000"),
		Rules: []commission.CommissionRule{pctRule("r1", rolePM.ID, "10")},
		Chain: []commission.User{userMD},
		Roles: testRoles(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Allocations) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(result.Allocations))
	}
	got := result.Allocations[0]
	if got.RecipientID != userPA.ID {
		t.Errorf("expected seller, got %s", got.RecipientID)
	}
	if !got.Amount.Equal(dec("100000")) {
		t.Errorf("expected 100000, got %v", got.Amount)
	}
}

func TestDistribute_FixedUserOverride_IgnoresHierarchy(t *testing.T) {
	// GIVEN: A rule targeting a fixed owner who is nowhere in the chain
	// WHEN: Distributing
	// THEN: The owner receives the share regardless of all other variables

	engine := &commission.DistributionEngine{}

	owner := commission.CommissionRule{
		ID:     "r-owner",
		UserID: "u-owner",
		RoleID: roleMD.ID,
		Type:   commission.TypePercentage,
		Value:  dec("5"),
		Active: true,
	}

	result, err := engine.Distribute(commission.DistributionInput{
		Sale:  paSale("1000000"),
		Rules: []commission.CommissionRule{pctRule("r1", rolePA.ID, "20"), owner},
		Chain: []commission.User{userPM, userMD},
		Roles: testRoles(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := findAllocation(t, result.Allocations, "u-owner")
	if !got.Amount.Equal(dec("50000")) {
		t.Errorf("expected 50000, got %v", got.Amount)
	}
	if got.RoleID != roleMD.ID {
		t.Errorf("expected attribution under md role, got %s", got.RoleID)
	}
}

// =============================================================================
// PROPERTY TESTS
// =============================================================================

func TestDistribute_Conservation_MixedTypes(t *testing.T) {
	// GIVEN: Rules of all three commission types, some absorbing
	// WHEN: Distributing
	// THEN: sum(allocation amounts) == sum(raw rule amounts)

	engine := &commission.DistributionEngine{}

	rules := []commission.CommissionRule{
		pctRule("r1", rolePA.ID, "20"),
		pctRule("r2", roleAgent.ID, "10"), // absorbs
		{ID: "r3", RoleID: rolePM.ID, Type: commission.TypeAmountPerSqft, Value: dec("15"), Active: true},
		{ID: "r4", RoleID: roleMD.ID, Type: commission.TypeFlat, Value: dec("25000"), Active: true},
	}
	sale := paSale("1000000")

	result, err := engine.Distribute(commission.DistributionInput{
		Sale:  sale,
		Rules: rules,
		Chain: []commission.User{userPM, userMD},
		Roles: testRoles(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw := decimal.Zero
	for _, rule := range rules {
		amount, err := commission.Calculate(rule, sale.SaleAmount, sale.Area)
		if err != nil {
			t.Fatalf("calculate: %v", err)
		}
		raw = raw.Add(amount)
	}

	allocated := decimal.Zero
	for _, a := range result.Allocations {
		allocated = allocated.Add(a.Amount)
	}

	if !allocated.Equal(raw) {
		t.Errorf("conservation violated: allocated %v, raw %v", allocated, raw)
	}
}

func TestDistribute_SameRecipientTwice_MergedNotDuplicated(t *testing.T) {
	// GIVEN: Two rules that both resolve to the PM ancestor
	// WHEN: Distributing
	// THEN: One allocation whose totals are the sum of both rules

	engine := &commission.DistributionEngine{}

	result, err := engine.Distribute(commission.DistributionInput{
		Sale: paSale("1000000"),
		Rules: []commission.CommissionRule{
			pctRule("r1", rolePM.ID, "10"),
			pctRule("r2", rolePM.ID, "4"),
		},
		Chain: []commission.User{userPM, userMD},
		Roles: testRoles(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Allocations) != 1 {
		t.Fatalf("expected 1 merged allocation, got %d", len(result.Allocations))
	}
	got := result.Allocations[0]
	if !got.Percentage.Equal(dec("14")) {
		t.Errorf("expected 14%%, got %v", got.Percentage)
	}
	if !got.Amount.Equal(dec("140000")) {
		t.Errorf("expected 140000, got %v", got.Amount)
	}
}

func TestDistribute_AbsorptionOnly_SellerHasNoDirectRule(t *testing.T) {
	// GIVEN: Only a junior-role rule; the seller has no rule of their own
	// WHEN: Distributing
	// THEN: The seller still receives the absorbed pool (sole fallback)

	engine := &commission.DistributionEngine{}

	result, err := engine.Distribute(commission.DistributionInput{
		Sale:  paSale("1000000"),
		Rules: []commission.CommissionRule{pctRule("r1", roleAgent.ID, "10")},
		Chain: nil,
		Roles: testRoles(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Allocations) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(result.Allocations))
	}
	if result.Allocations[0].RecipientID != userPA.ID {
		t.Errorf("absorbed pool must land on the seller")
	}
}

func TestDistribute_EmptyRuleSet_EmptyResult(t *testing.T) {
	engine := &commission.DistributionEngine{}

	result, err := engine.Distribute(commission.DistributionInput{
		Sale:  paSale("1000000"),
		Roles: testRoles(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Allocations) != 0 {
		t.Errorf("expected no allocations, got %d", len(result.Allocations))
	}
}

func TestDistribute_RoleRecordedForFirstContributionWins(t *testing.T) {
	// GIVEN: The seller gets a direct PA rule first, then absorption
	// WHEN: Distributing
	// THEN: The seller's allocation stays attributed to the PA role

	engine := &commission.DistributionEngine{}

	result, err := engine.Distribute(commission.DistributionInput{
		Sale: paSale("1000000"),
		Rules: []commission.CommissionRule{
			pctRule("r1", rolePA.ID, "20"),
			pctRule("r2", roleAgent.ID, "10"),
		},
		Chain: nil,
		Roles: testRoles(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := findAllocation(t, result.Allocations, userPA.ID)
	if got.RoleID != rolePA.ID {
		t.Errorf("expected pa attribution, got %s", got.RoleID)
	}
}

// =============================================================================
// FAILURE TESTS
// =============================================================================

func TestDistribute_UnknownCommissionType_FailsWholeDistribution(t *testing.T) {
	engine := &commission.DistributionEngine{}

	bad := commission.CommissionRule{
		ID: "r-bad", RoleID: rolePA.ID, Type: "lottery", Value: dec("5"), Active: true,
	}

	_, err := engine.Distribute(commission.DistributionInput{
		Sale:  paSale("1000000"),
		Rules: []commission.CommissionRule{pctRule("r1", rolePA.ID, "20"), bad},
		Roles: testRoles(),
	})
	if err == nil {
		t.Fatal("expected error for unsupported commission type")
	}
}

func TestDistribute_UnresolvedRuleRole_FailsWholeDistribution(t *testing.T) {
	engine := &commission.DistributionEngine{}

	_, err := engine.Distribute(commission.DistributionInput{
		Sale:  paSale("1000000"),
		Rules: []commission.CommissionRule{pctRule("r1", "ghost-role", "5")},
		Roles: testRoles(),
	})
	if err == nil {
		t.Fatal("expected error for unresolved role")
	}
}

func TestDistribute_RuleWithoutTarget_Rejected(t *testing.T) {
	engine := &commission.DistributionEngine{}

	empty := commission.CommissionRule{
		ID: "r-empty", Type: commission.TypePercentage, Value: dec("5"), Active: true,
	}

	_, err := engine.Distribute(commission.DistributionInput{
		Sale:  paSale("1000000"),
		Rules: []commission.CommissionRule{empty},
		Roles: testRoles(),
	})
	if err == nil {
		t.Fatal("expected error for rule with no target")
	}
}

func TestDistribute_NegativeSaleAmount_Rejected(t *testing.T) {
	engine := &commission.DistributionEngine{}

	sale := paSale("1000000")
	sale.SaleAmount = dec("-1")

	_, err := engine.Distribute(commission.DistributionInput{Sale: sale, Roles: testRoles()})
	if err == nil {
		t.Fatal("expected error for negative sale amount")
	}
}

// =============================================================================
// ROLE RELATION BRANCH TABLE
// =============================================================================

func TestRelate_BranchTable(t *testing.T) {
	cases := []struct {
		name string
		role commission.Role
		want commission.RoleRelation
	}{
		{"own role", rolePA, commission.RelationSelf},
		{"junior role", roleAgent, commission.RelationJunior},
		{"senior role", rolePM, commission.RelationSeniorOrEqual},
		{"most senior role", roleMD, commission.RelationSeniorOrEqual},
		{"equal level different role", commission.Role{ID: "pa2", Level: 3}, commission.RelationSeniorOrEqual},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := commission.Relate(tc.role, rolePA.ID, rolePA.Level)
			if got != tc.want {
				t.Errorf("Relate(%s) = %s, want %s", tc.role.ID, got, tc.want)
			}
		})
	}
}

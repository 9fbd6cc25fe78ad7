/*
Package factory provides JSON to Go commission rule conversion.

PURPOSE:
  Converts JSON rule definitions into commission.CommissionRule values.
  This enables rule configuration without code changes - operations staff
  can define a project's commission structure in JSON, and the factory
  produces validated rules ready to store.

JSON SCHEMA:
  {
    "project_id": "lakeview-1",
    "rules": [
      {
        "id": "lakeview-pa",
        "role_id": "pa",
        "type": "percentage",
        "value": "2.5",
        "priority": 0
      },
      {
        "id": "lakeview-referrer",
        "user_id": "u-referrer",
        "type": "flat",
        "value": "25000"
      }
    ]
  }

KEY FEATURES:
  - Values parse as exact decimal strings, never floats
  - Every rule is validated before it leaves the factory
  - Effective windows use plain dates ("2026-01-01")
  - Omitted "active" defaults to true

USAGE:
  factory := NewRuleFactory()
  rules, err := factory.ParseRuleSet(jsonString)
  for _, rule := range rules {
      store.SaveRule(ctx, rule)
  }

SEE ALSO:
  - commission/types.go: CommissionRule and its validation
  - api/seed.go: demo rule sets built through this factory
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/landmark/estate-engine/commission"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleSetJSON is the JSON representation of a project's rule set.
type RuleSetJSON struct {
	ProjectID string     `json:"project_id"`
	Rules     []RuleJSON `json:"rules"`
}

// RuleJSON is the JSON representation of one commission rule. Value is a
// string so the decimal survives the trip exactly.
type RuleJSON struct {
	ID            string `json:"id"`
	RoleID        string `json:"role_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Type          string `json:"type"`
	Value         string `json:"value"`
	Priority      int    `json:"priority,omitempty"`
	Active        *bool  `json:"active,omitempty"` // default true
	EffectiveFrom string `json:"effective_from,omitempty"`
	EffectiveTo   string `json:"effective_to,omitempty"`
}

// =============================================================================
// RULE FACTORY
// =============================================================================

// RuleFactory converts JSON rule sets to validated CommissionRules.
type RuleFactory struct{}

// NewRuleFactory creates a new rule factory.
func NewRuleFactory() *RuleFactory {
	return &RuleFactory{}
}

// ParseRuleSet parses a JSON string into validated rules.
func (f *RuleFactory) ParseRuleSet(jsonStr string) ([]commission.CommissionRule, error) {
	var rs RuleSetJSON
	if err := json.Unmarshal([]byte(jsonStr), &rs); err != nil {
		return nil, fmt.Errorf("failed to parse rule set JSON: %w", err)
	}
	return f.FromJSON(rs)
}

// FromJSON converts a RuleSetJSON to validated CommissionRules.
func (f *RuleFactory) FromJSON(rs RuleSetJSON) ([]commission.CommissionRule, error) {
	if rs.ProjectID == "" {
		return nil, fmt.Errorf("rule set missing project_id")
	}

	rules := make([]commission.CommissionRule, 0, len(rs.Rules))
	for i, rj := range rs.Rules {
		rule, err := f.parseRule(commission.ProjectID(rs.ProjectID), i, rj)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (f *RuleFactory) parseRule(projectID commission.ProjectID, index int, rj RuleJSON) (commission.CommissionRule, error) {
	var rule commission.CommissionRule

	if rj.ID == "" {
		return rule, fmt.Errorf("rule %d: missing id", index)
	}

	value, err := decimal.NewFromString(rj.Value)
	if err != nil {
		return rule, fmt.Errorf("rule %q: invalid value %q: %w", rj.ID, rj.Value, err)
	}

	active := true
	if rj.Active != nil {
		active = *rj.Active
	}

	rule = commission.CommissionRule{
		ID:        commission.RuleID(rj.ID),
		ProjectID: projectID,
		RoleID:    commission.RoleID(rj.RoleID),
		UserID:    commission.UserID(rj.UserID),
		Type:      commission.CommissionType(rj.Type),
		Value:     value,
		Priority:  rj.Priority,
		Active:    active,
	}

	rule.EffectiveFrom, err = parseDate(rj.EffectiveFrom)
	if err != nil {
		return rule, fmt.Errorf("rule %q: invalid effective_from: %w", rj.ID, err)
	}
	rule.EffectiveTo, err = parseDate(rj.EffectiveTo)
	if err != nil {
		return rule, fmt.Errorf("rule %q: invalid effective_to: %w", rj.ID, err)
	}

	if err := rule.Validate(); err != nil {
		return rule, err
	}
	return rule, nil
}

// ToJSON converts stored rules back to the JSON schema.
func (f *RuleFactory) ToJSON(projectID commission.ProjectID, rules []commission.CommissionRule) RuleSetJSON {
	rs := RuleSetJSON{ProjectID: string(projectID)}
	for _, rule := range rules {
		active := rule.Active
		rs.Rules = append(rs.Rules, RuleJSON{
			ID:            string(rule.ID),
			RoleID:        string(rule.RoleID),
			UserID:        string(rule.UserID),
			Type:          string(rule.Type),
			Value:         rule.Value.String(),
			Priority:      rule.Priority,
			Active:        &active,
			EffectiveFrom: formatDate(rule.EffectiveFrom),
			EffectiveTo:   formatDate(rule.EffectiveTo),
		})
	}
	return rs
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// =============================================================================
// PRESET RULE SETS
// =============================================================================

// StandardHierarchyJSON builds the common three-tier percentage structure:
// the selling associate plus their project manager and managing director.
func StandardHierarchyJSON(projectID, paPct, pmPct, mdPct string) string {
	rs := RuleSetJSON{
		ProjectID: projectID,
		Rules: []RuleJSON{
			{ID: projectID + "-pa", RoleID: "pa", Type: string(commission.TypePercentage), Value: paPct, Priority: 0},
			{ID: projectID + "-pm", RoleID: "pm", Type: string(commission.TypePercentage), Value: pmPct, Priority: 1},
			{ID: projectID + "-md", RoleID: "md", Type: string(commission.TypePercentage), Value: mdPct, Priority: 2},
		},
	}
	out, _ := json.Marshal(rs)
	return string(out)
}

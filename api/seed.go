/*
seed.go - Demo dataset loader for testing and demonstrations

PURPOSE:
  Populates the database with a realistic demo dataset: a three-level
  sales hierarchy, login accounts, one project with plot inventory, and
  a commission rule set covering the hierarchy plus a fixed-user
  referrer.

HOW THE SEED WORKS:
 1. Reset database (clear all data)
 2. Create roles and the reporting chain
 3. Create login accounts (password "demo1234" for every user)
 4. Create a project and its plots
 5. Upload the commission rule set via the factory

USAGE VIA API:

	POST /api/seed

NOTE:

	The seed resets the database. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: LoadSeed handler registration
  - factory/rule.go: rule set JSON definitions
*/
package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/landmark/estate-engine/auth"
	"github.com/landmark/estate-engine/commission"
	"github.com/landmark/estate-engine/factory"
	"github.com/landmark/estate-engine/sales"
	"github.com/landmark/estate-engine/store/sqlite"
)

// LoadSeed resets the database and loads the demo dataset.
func (h *Handler) LoadSeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := h.Store.WithTx(ctx, func(tx sales.Store) error {
		return loadDemoData(ctx, tx.(*sqlite.Store), h.Rules)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load seed data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"login":    "meera@landmark.example",
		"password": "demo1234",
	})
}

func loadDemoData(ctx context.Context, store *sqlite.Store, rules *factory.RuleFactory) error {
	if err := store.Reset(ctx); err != nil {
		return err
	}

	roles := []commission.Role{
		{ID: "md", Level: 0, Name: "Managing Director"},
		{ID: "gm", Level: 1, Name: "General Manager"},
		{ID: "pm", Level: 2, Name: "Project Manager"},
		{ID: "pa", Level: 3, Name: "Project Associate"},
	}
	for _, role := range roles {
		if err := store.SaveRole(ctx, role); err != nil {
			return err
		}
	}

	users := []commission.User{
		{ID: "u-meera", Name: "Meera Nair", RoleID: "md"},
		{ID: "u-prakash", Name: "Prakash Rao", RoleID: "pm", ManagerID: "u-meera"},
		{ID: "u-asha", Name: "Asha Verma", RoleID: "pa", ManagerID: "u-prakash"},
		{ID: "u-dev", Name: "Dev Kulkarni", RoleID: "pa", ManagerID: "u-prakash"},
	}
	emails := map[commission.UserID]string{
		"u-meera":   "meera@landmark.example",
		"u-prakash": "prakash@landmark.example",
		"u-asha":    "asha@landmark.example",
		"u-dev":     "dev@landmark.example",
	}
	for _, user := range users {
		if err := store.SaveUser(ctx, user); err != nil {
			return err
		}
		account := auth.Account{UserID: user.ID, Email: emails[user.ID]}
		if err := account.SetPassword("demo1234"); err != nil {
			return err
		}
		if err := store.SaveAccount(ctx, account); err != nil {
			return err
		}
	}

	project := sales.Project{ID: "lakeview-1", Name: "Lakeview Phase 1", Location: "Whitefield"}
	if err := store.SaveProject(ctx, project); err != nil {
		return err
	}

	plots := []struct {
		id, number, area, price string
	}{
		{"lv1-a12", "A-12", "1200", "4800000"},
		{"lv1-a14", "A-14", "1200", "4800000"},
		{"lv1-b02", "B-02", "1500", "6150000"},
		{"lv1-b07", "B-07", "2400", "9900000"},
	}
	for _, p := range plots {
		plot := sales.Plot{
			ID: p.id, ProjectID: project.ID, Number: p.number,
			AreaSqft: mustDecimal(p.area), Price: mustDecimal(p.price),
			Status: sales.PlotAvailable,
		}
		if err := store.SavePlot(ctx, plot); err != nil {
			return err
		}
	}

	// Hierarchy percentages plus a fixed flat fee for the land referrer.
	// Note the GM role is configured but unstaffed: confirmations will
	// absorb its share into the seller, which is the demo's point.
	ruleSet := factory.RuleSetJSON{
		ProjectID: string(project.ID),
		Rules: []factory.RuleJSON{
			{ID: "lv1-pa", RoleID: "pa", Type: string(commission.TypePercentage), Value: "2", Priority: 0},
			{ID: "lv1-pm", RoleID: "pm", Type: string(commission.TypePercentage), Value: "1", Priority: 1},
			{ID: "lv1-gm", RoleID: "gm", Type: string(commission.TypePercentage), Value: "0.75", Priority: 2},
			{ID: "lv1-md", RoleID: "md", Type: string(commission.TypePercentage), Value: "0.5", Priority: 3},
			{ID: "lv1-referrer", UserID: "u-dev", Type: string(commission.TypeFlat), Value: "25000", Priority: 4},
		},
	}
	parsed, err := rules.FromJSON(ruleSet)
	if err != nil {
		return err
	}
	for _, rule := range parsed {
		if err := store.SaveRule(ctx, rule); err != nil {
			return err
		}
	}

	return nil
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

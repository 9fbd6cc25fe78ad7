package sales_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landmark/estate-engine/commission"
	"github.com/landmark/estate-engine/commission/store"
	"github.com/landmark/estate-engine/sales"
)

// =============================================================================
// TEST STORE - commission memory directories plus sales entities
// =============================================================================

type memStore struct {
	*store.Memory
	projects map[commission.ProjectID]sales.Project
	plots    map[string]sales.Plot
	sales    map[commission.SaleID]sales.Sale
	payments map[commission.SaleID][]sales.Payment
	visits   []sales.SiteVisit
}

func newMemStore() *memStore {
	return &memStore{
		Memory:   store.NewMemory(),
		projects: make(map[commission.ProjectID]sales.Project),
		plots:    make(map[string]sales.Plot),
		sales:    make(map[commission.SaleID]sales.Sale),
		payments: make(map[commission.SaleID][]sales.Payment),
	}
}

func (m *memStore) Project(_ context.Context, id commission.ProjectID) (sales.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return sales.Project{}, &commission.ReferenceNotFoundError{Kind: "project", ID: string(id)}
	}
	return p, nil
}

func (m *memStore) SaveProject(_ context.Context, p sales.Project) error {
	m.projects[p.ID] = p
	return nil
}

func (m *memStore) Plot(_ context.Context, id string) (sales.Plot, error) {
	p, ok := m.plots[id]
	if !ok {
		return sales.Plot{}, &commission.ReferenceNotFoundError{Kind: "plot", ID: id}
	}
	return p, nil
}

func (m *memStore) SavePlot(_ context.Context, p sales.Plot) error {
	m.plots[p.ID] = p
	return nil
}

func (m *memStore) Sale(_ context.Context, id commission.SaleID) (sales.Sale, error) {
	s, ok := m.sales[id]
	if !ok {
		return sales.Sale{}, &commission.ReferenceNotFoundError{Kind: "sale", ID: string(id)}
	}
	return s, nil
}

func (m *memStore) SaveSale(_ context.Context, s sales.Sale) error {
	m.sales[s.ID] = s
	return nil
}

func (m *memStore) SavePayment(_ context.Context, p sales.Payment) error {
	m.payments[p.SaleID] = append(m.payments[p.SaleID], p)
	return nil
}

func (m *memStore) PaymentsBySale(_ context.Context, saleID commission.SaleID) ([]sales.Payment, error) {
	return m.payments[saleID], nil
}

func (m *memStore) SaveSiteVisit(_ context.Context, v sales.SiteVisit) error {
	m.visits = append(m.visits, v)
	return nil
}

func (m *memStore) WithTx(_ context.Context, fn func(sales.Store) error) error {
	return fn(m)
}

// =============================================================================
// FIXTURES
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// newFixture seeds a three-level hierarchy (MD -> PM -> PA), one project
// with one available plot, and percentage rules for all three roles.
func newFixture() (*sales.Service, *memStore) {
	m := newMemStore()

	m.PutRole(commission.Role{ID: "md", Level: 0, Name: "Managing Director"})
	m.PutRole(commission.Role{ID: "pm", Level: 2, Name: "Project Manager"})
	m.PutRole(commission.Role{ID: "pa", Level: 3, Name: "Project Associate"})

	m.PutUser(commission.User{ID: "u-md", Name: "Meera", RoleID: "md"})
	m.PutUser(commission.User{ID: "u-pm", Name: "Prakash", RoleID: "pm", ManagerID: "u-md"})
	m.PutUser(commission.User{ID: "u-pa", Name: "Asha", RoleID: "pa", ManagerID: "u-pm"})

	for i, r := range []struct {
		id   commission.RuleID
		role commission.RoleID
		pct  string
	}{
		{"r-pa", "pa", "2"},
		{"r-pm", "pm", "1"},
		{"r-md", "md", "0.5"},
	} {
		m.PutRule(commission.CommissionRule{
			ID: r.id, ProjectID: "proj-1", RoleID: r.role,
			Type: commission.TypePercentage, Value: dec(r.pct),
			Priority: i, Active: true,
		})
	}

	m.SaveProject(context.Background(), sales.Project{ID: "proj-1", Name: "Lakeview Phase 1"})
	m.SavePlot(context.Background(), sales.Plot{
		ID: "plot-1", ProjectID: "proj-1", Number: "A-12",
		AreaSqft: dec("1200"), Price: dec("1000000"), Status: sales.PlotAvailable,
	})

	return sales.NewService(m), m
}

func reserve(t *testing.T, svc *sales.Service) sales.Sale {
	t.Helper()
	sale, err := svc.CreateSale(context.Background(), sales.NewSaleInput{
		PlotID: "plot-1", SellerID: "u-pa", BuyerName: "Buyer", BuyerPhone: "555-0100",
	}, "u-pm")
	require.NoError(t, err)
	return sale
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestCreateSale_ReservesPlotAtListPrice(t *testing.T) {
	// GIVEN: An available plot priced at 1,000,000
	// WHEN: Creating a sale without an amount override
	// THEN: The sale is reserved at list price and the plot is held

	svc, m := newFixture()
	sale := reserve(t, svc)

	assert.Equal(t, sales.SaleReserved, sale.Status)
	assert.True(t, sale.Amount.Equal(dec("1000000")))
	assert.Equal(t, commission.UserID("u-pm"), sale.CreatedBy)

	plot, err := m.Plot(context.Background(), "plot-1")
	require.NoError(t, err)
	assert.Equal(t, sales.PlotReserved, plot.Status)
}

func TestCreateSale_PlotAlreadyReserved_Rejected(t *testing.T) {
	svc, _ := newFixture()
	reserve(t, svc)

	_, err := svc.CreateSale(context.Background(), sales.NewSaleInput{
		PlotID: "plot-1", SellerID: "u-pa", BuyerName: "Other",
	}, "u-pm")
	assert.ErrorIs(t, err, sales.ErrInvalidTransition)
}

func TestConfirmSale_RunsDistributionAndPersistsAllocations(t *testing.T) {
	// GIVEN: A reserved sale of 1,000,000 by a PA under rules PA 2% / PM 1% / MD 0.5%
	// WHEN: Confirming the sale
	// THEN: Allocations land for all three, the sale is confirmed, the plot sold

	svc, m := newFixture()
	sale := reserve(t, svc)

	result, err := svc.ConfirmSale(context.Background(), sale.ID, "u-md")
	require.NoError(t, err)
	require.Len(t, result.Allocations, 3)

	stored, err := m.AllocationsBySale(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	total := decimal.Zero
	for _, a := range stored {
		total = total.Add(a.Amount)
	}
	assert.True(t, total.Equal(dec("35000")), "3.5 percent of 1,000,000 across three roles")

	confirmed, err := m.Sale(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.SaleConfirmed, confirmed.Status)
	assert.Equal(t, commission.UserID("u-md"), confirmed.ConfirmedBy)
	require.NotNil(t, confirmed.ConfirmedAt)

	plot, err := m.Plot(context.Background(), "plot-1")
	require.NoError(t, err)
	assert.Equal(t, sales.PlotSold, plot.Status)
}

func TestConfirmSale_AlreadyConfirmed_Rejected(t *testing.T) {
	svc, _ := newFixture()
	sale := reserve(t, svc)

	_, err := svc.ConfirmSale(context.Background(), sale.ID, "u-md")
	require.NoError(t, err)

	_, err = svc.ConfirmSale(context.Background(), sale.ID, "u-md")
	assert.ErrorIs(t, err, sales.ErrInvalidTransition)
}

func TestConfirmSale_BrokenRuleRole_FailsWholeConfirmation(t *testing.T) {
	// GIVEN: A rule referencing a role the directory cannot resolve
	// WHEN: Confirming
	// THEN: Confirmation fails and the sale stays reserved with no allocations

	svc, m := newFixture()
	m.PutRule(commission.CommissionRule{
		ID: "r-ghost", ProjectID: "proj-1", RoleID: "ghost",
		Type: commission.TypePercentage, Value: dec("1"), Active: true,
	})
	sale := reserve(t, svc)

	_, err := svc.ConfirmSale(context.Background(), sale.ID, "u-md")
	assert.ErrorIs(t, err, commission.ErrReferenceNotFound)

	stored, err := m.Sale(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.SaleReserved, stored.Status)

	allocs, err := m.AllocationsBySale(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Empty(t, allocs)
}

func TestCancelSale_FreesPlot(t *testing.T) {
	svc, m := newFixture()
	sale := reserve(t, svc)

	require.NoError(t, svc.CancelSale(context.Background(), sale.ID, "u-pm"))

	plot, err := m.Plot(context.Background(), "plot-1")
	require.NoError(t, err)
	assert.Equal(t, sales.PlotAvailable, plot.Status)
}

func TestCancelSale_ConfirmedSale_Rejected(t *testing.T) {
	svc, _ := newFixture()
	sale := reserve(t, svc)
	_, err := svc.ConfirmSale(context.Background(), sale.ID, "u-md")
	require.NoError(t, err)

	err = svc.CancelSale(context.Background(), sale.ID, "u-pm")
	assert.ErrorIs(t, err, sales.ErrInvalidTransition)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestRecordPayment_AccumulatesUpToSaleAmount(t *testing.T) {
	svc, _ := newFixture()
	sale := reserve(t, svc)

	_, err := svc.RecordPayment(context.Background(), sale.ID, dec("600000"), "bank", "TX-1", "u-pm")
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), sale.ID, dec("400000"), "bank", "TX-2", "u-pm")
	require.NoError(t, err)
}

func TestRecordPayment_Overpayment_Rejected(t *testing.T) {
	svc, _ := newFixture()
	sale := reserve(t, svc)

	_, err := svc.RecordPayment(context.Background(), sale.ID, dec("600000"), "bank", "TX-1", "u-pm")
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), sale.ID, dec("400001"), "bank", "TX-2", "u-pm")
	assert.ErrorIs(t, err, sales.ErrOverpayment)
}

func TestRecordPayment_NonPositiveAmount_Rejected(t *testing.T) {
	svc, _ := newFixture()
	sale := reserve(t, svc)

	_, err := svc.RecordPayment(context.Background(), sale.ID, dec("0"), "cash", "", "u-pm")
	assert.ErrorIs(t, err, commission.ErrInvalidAmount)
}

// =============================================================================
// SITE VISITS
// =============================================================================

func TestScheduleVisit(t *testing.T) {
	svc, m := newFixture()

	visit, err := svc.ScheduleVisit(context.Background(), "proj-1", "Walk In", "555-0199", "u-pa", time.Now().Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, sales.VisitScheduled, visit.Status)
	assert.Len(t, m.visits, 1)
}

func TestScheduleVisit_UnknownProject_Rejected(t *testing.T) {
	svc, _ := newFixture()

	_, err := svc.ScheduleVisit(context.Background(), "ghost", "Walk In", "", "u-pa", time.Now())
	assert.ErrorIs(t, err, commission.ErrReferenceNotFound)
}

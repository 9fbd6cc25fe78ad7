// Package sales implements the sale lifecycle over project plot inventory:
// reservation, confirmation (which runs commission distribution), payments
// and site visits. It uses the commission engine for the money split.
package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/landmark/estate-engine/commission"
)

// =============================================================================
// PROJECTS AND PLOT INVENTORY
// =============================================================================

// Project is a development whose plots are sold under one rule set.
type Project struct {
	ID        commission.ProjectID
	Name      string
	Location  string
	CreatedAt time.Time
}

// PlotStatus tracks a plot through the inventory lifecycle.
type PlotStatus string

const (
	PlotAvailable PlotStatus = "available"
	PlotReserved  PlotStatus = "reserved"
	PlotSold      PlotStatus = "sold"
)

// Plot is one sellable unit of a project.
type Plot struct {
	ID        string
	ProjectID commission.ProjectID
	Number    string
	AreaSqft  decimal.Decimal
	Price     decimal.Decimal
	Status    PlotStatus
}

// =============================================================================
// SALES
// =============================================================================

// SaleStatus tracks a sale from reservation to confirmation.
type SaleStatus string

const (
	// SaleReserved: the plot is held for the buyer, no commission yet.
	SaleReserved SaleStatus = "reserved"

	// SaleConfirmed: the sale is final and its allocations are persisted.
	// A sale is never left confirmed without allocations; both are written
	// in the same transaction.
	SaleConfirmed SaleStatus = "confirmed"

	// SaleCancelled: the reservation was abandoned and the plot freed.
	SaleCancelled SaleStatus = "cancelled"
)

// Sale records one plot sold by one seller to one buyer.
type Sale struct {
	ID         commission.SaleID
	ProjectID  commission.ProjectID
	PlotID     string
	SellerID   commission.UserID
	BuyerName  string
	BuyerPhone string
	Amount     decimal.Decimal
	AreaSqft   decimal.Decimal
	Status     SaleStatus

	// Audit fields. Actor ids are explicit parameters, never ambient.
	CreatedBy   commission.UserID
	ConfirmedBy commission.UserID
	ConfirmedAt *time.Time
	CreatedAt   time.Time
}

// =============================================================================
// PAYMENTS
// =============================================================================

// Payment is one instalment received against a sale.
type Payment struct {
	ID         string
	SaleID     commission.SaleID
	Amount     decimal.Decimal
	Method     string
	Reference  string
	RecordedBy commission.UserID
	PaidAt     time.Time
}

// =============================================================================
// SITE VISITS
// =============================================================================

// VisitStatus tracks a prospect's site visit.
type VisitStatus string

const (
	VisitScheduled VisitStatus = "scheduled"
	VisitCompleted VisitStatus = "completed"
	VisitCancelled VisitStatus = "cancelled"
)

// SiteVisit records a prospect being shown a project.
type SiteVisit struct {
	ID           string
	ProjectID    commission.ProjectID
	VisitorName  string
	VisitorPhone string
	EscortedBy   commission.UserID
	ScheduledAt  time.Time
	Status       VisitStatus
	Notes        string
	CreatedAt    time.Time
}

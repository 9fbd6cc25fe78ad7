/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Every monetary field is a JSON string holding the exact decimal form
  ("2.5", "1000000"). Numbers would round-trip through float64 in most
  clients and corrupt the amounts the engine worked to keep exact.

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rule.go: RuleJSON, the rule wire format
*/
package api

import (
	"time"

	"github.com/landmark/estate-engine/commission"
	"github.com/landmark/estate-engine/factory"
	"github.com/landmark/estate-engine/sales"
	"github.com/landmark/estate-engine/store/sqlite"
)

// =============================================================================
// AUTH
// =============================================================================

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// =============================================================================
// DIRECTORY
// =============================================================================

// RoleDTO represents a role in API responses.
type RoleDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	RoleID    string `json:"role_id"`
	ManagerID string `json:"manager_id,omitempty"`
}

// CreateUserRequest creates a user and, when email is set, a login
// account alongside it.
type CreateUserRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	RoleID    string `json:"role_id"`
	ManagerID string `json:"manager_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password,omitempty"`
}

// =============================================================================
// PROJECTS AND PLOTS
// =============================================================================

type ProjectDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

type PlotDTO struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Number    string `json:"number"`
	AreaSqft  string `json:"area_sqft"`
	Price     string `json:"price"`
	Status    string `json:"status"`
}

type CreatePlotRequest struct {
	ID       string `json:"id"`
	Number   string `json:"number"`
	AreaSqft string `json:"area_sqft"`
	Price    string `json:"price"`
}

// =============================================================================
// SALES
// =============================================================================

type SaleDTO struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	PlotID      string  `json:"plot_id"`
	SellerID    string  `json:"seller_id"`
	BuyerName   string  `json:"buyer_name"`
	BuyerPhone  string  `json:"buyer_phone,omitempty"`
	Amount      string  `json:"amount"`
	AreaSqft    string  `json:"area_sqft"`
	Status      string  `json:"status"`
	CreatedBy   string  `json:"created_by"`
	ConfirmedBy string  `json:"confirmed_by,omitempty"`
	ConfirmedAt *string `json:"confirmed_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type CreateSaleRequest struct {
	PlotID     string `json:"plot_id"`
	SellerID   string `json:"seller_id"`
	BuyerName  string `json:"buyer_name"`
	BuyerPhone string `json:"buyer_phone,omitempty"`
	Amount     string `json:"amount,omitempty"` // empty = list price
}

// AllocationDTO represents one recipient's share of a sale.
type AllocationDTO struct {
	SaleID      string `json:"sale_id"`
	RecipientID string `json:"recipient_id"`
	RoleID      string `json:"role_id,omitempty"`
	Percentage  string `json:"percentage"`
	Amount      string `json:"amount"`
}

// ConfirmSaleResponse returns the sale plus what the distribution did,
// including what the seller absorbed from unfilled roles.
type ConfirmSaleResponse struct {
	Sale               SaleDTO         `json:"sale"`
	Allocations        []AllocationDTO `json:"allocations"`
	AbsorbedPercentage string          `json:"absorbed_percentage"`
	AbsorbedAmount     string          `json:"absorbed_amount"`
	AbsorbedRules      int             `json:"absorbed_rules"`
}

// =============================================================================
// PAYMENTS AND VISITS
// =============================================================================

type PaymentDTO struct {
	ID         string `json:"id"`
	SaleID     string `json:"sale_id"`
	Amount     string `json:"amount"`
	Method     string `json:"method,omitempty"`
	Reference  string `json:"reference,omitempty"`
	RecordedBy string `json:"recorded_by"`
	PaidAt     string `json:"paid_at"`
}

type CreatePaymentRequest struct {
	Amount    string `json:"amount"`
	Method    string `json:"method,omitempty"`
	Reference string `json:"reference,omitempty"`
}

type VisitDTO struct {
	ID           string `json:"id"`
	ProjectID    string `json:"project_id"`
	VisitorName  string `json:"visitor_name"`
	VisitorPhone string `json:"visitor_phone,omitempty"`
	EscortedBy   string `json:"escorted_by"`
	ScheduledAt  string `json:"scheduled_at"`
	Status       string `json:"status"`
	Notes        string `json:"notes,omitempty"`
}

type CreateVisitRequest struct {
	VisitorName  string `json:"visitor_name"`
	VisitorPhone string `json:"visitor_phone,omitempty"`
	EscortedBy   string `json:"escorted_by"`
	ScheduledAt  string `json:"scheduled_at"` // RFC3339
}

// =============================================================================
// RULES AND DASHBOARD
// =============================================================================

// Rule payloads reuse the factory's wire format so stored and uploaded
// rule sets share one schema.
type RuleSetDTO = factory.RuleSetJSON

type DashboardDTO struct {
	Projects         int    `json:"projects"`
	PlotsAvailable   int    `json:"plots_available"`
	PlotsSold        int    `json:"plots_sold"`
	SalesReserved    int    `json:"sales_reserved"`
	SalesConfirmed   int    `json:"sales_confirmed"`
	RevenueConfirmed string `json:"revenue_confirmed"`
	CommissionTotal  string `json:"commission_total"`
	PaymentsReceived string `json:"payments_received"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRoleDTO(r commission.Role) RoleDTO {
	return RoleDTO{ID: string(r.ID), Name: r.Name, Level: r.Level}
}

func toUserDTO(u commission.User) UserDTO {
	return UserDTO{
		ID: string(u.ID), Name: u.Name,
		RoleID: string(u.RoleID), ManagerID: string(u.ManagerID),
	}
}

func toProjectDTO(p sales.Project) ProjectDTO {
	return ProjectDTO{ID: string(p.ID), Name: p.Name, Location: p.Location}
}

func toPlotDTO(p sales.Plot) PlotDTO {
	return PlotDTO{
		ID: p.ID, ProjectID: string(p.ProjectID), Number: p.Number,
		AreaSqft: p.AreaSqft.String(), Price: p.Price.String(), Status: string(p.Status),
	}
}

func toSaleDTO(s sales.Sale) SaleDTO {
	dto := SaleDTO{
		ID:          string(s.ID),
		ProjectID:   string(s.ProjectID),
		PlotID:      s.PlotID,
		SellerID:    string(s.SellerID),
		BuyerName:   s.BuyerName,
		BuyerPhone:  s.BuyerPhone,
		Amount:      s.Amount.String(),
		AreaSqft:    s.AreaSqft.String(),
		Status:      string(s.Status),
		CreatedBy:   string(s.CreatedBy),
		ConfirmedBy: string(s.ConfirmedBy),
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
	if s.ConfirmedAt != nil {
		formatted := s.ConfirmedAt.Format(time.RFC3339)
		dto.ConfirmedAt = &formatted
	}
	return dto
}

func toAllocationDTOs(allocations []commission.Allocation) []AllocationDTO {
	dtos := make([]AllocationDTO, 0, len(allocations))
	for _, a := range allocations {
		dtos = append(dtos, AllocationDTO{
			SaleID:      string(a.SaleID),
			RecipientID: string(a.RecipientID),
			RoleID:      string(a.RoleID),
			Percentage:  a.Percentage.String(),
			Amount:      a.Amount.String(),
		})
	}
	return dtos
}

func toPaymentDTO(p sales.Payment) PaymentDTO {
	return PaymentDTO{
		ID: p.ID, SaleID: string(p.SaleID), Amount: p.Amount.String(),
		Method: p.Method, Reference: p.Reference,
		RecordedBy: string(p.RecordedBy), PaidAt: p.PaidAt.Format(time.RFC3339),
	}
}

func toVisitDTO(v sales.SiteVisit) VisitDTO {
	return VisitDTO{
		ID: v.ID, ProjectID: string(v.ProjectID),
		VisitorName: v.VisitorName, VisitorPhone: v.VisitorPhone,
		EscortedBy: string(v.EscortedBy), ScheduledAt: v.ScheduledAt.Format(time.RFC3339),
		Status: string(v.Status), Notes: v.Notes,
	}
}

func toDashboardDTO(stats sqlite.DashboardStats) DashboardDTO {
	return DashboardDTO{
		Projects:         stats.Projects,
		PlotsAvailable:   stats.PlotsAvailable,
		PlotsSold:        stats.PlotsSold,
		SalesReserved:    stats.SalesReserved,
		SalesConfirmed:   stats.SalesConfirmed,
		RevenueConfirmed: stats.RevenueConfirmed.String(),
		CommissionTotal:  stats.CommissionTotal.String(),
		PaymentsReceived: stats.PaymentsReceived.String(),
	}
}

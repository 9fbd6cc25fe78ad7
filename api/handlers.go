/*
handlers.go - HTTP API handlers for the estate sales backend

PURPOSE:
  Exposes the sales and commission engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Auth:
    POST   /api/auth/login                Exchange credentials for a token

  Directory:
    GET    /api/roles                     List roles
    POST   /api/roles                     Create/update role
    GET    /api/users                     List users
    POST   /api/users                     Create user (+ optional account)
    GET    /api/users/{id}/chain          Manager chain
    GET    /api/users/{id}/allocations    Commission earnings
    GET    /api/users/{id}/sales          Sales by seller

  Projects:
    GET/POST /api/projects                Projects
    GET/POST /api/projects/{id}/plots     Plot inventory
    GET/POST /api/projects/{id}/rules     Commission rule sets
    GET/POST /api/projects/{id}/visits    Site visits
    DELETE /api/rules/{id}                Deactivate a rule

  Sales:
    GET/POST /api/sales                   Reserve plots
    POST   /api/sales/{id}/confirm        Run distribution, finalize
    POST   /api/sales/{id}/cancel         Free the plot
    GET    /api/sales/{id}/allocations    Stored distribution
    GET/POST /api/sales/{id}/payments     Instalments

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (sales service, store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid rules/amounts
  - 404: Reference not found
  - 409: Lifecycle conflicts (wrong state, overpayment)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - seed.go: Demo dataset loader
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/landmark/estate-engine/auth"
	"github.com/landmark/estate-engine/commission"
	"github.com/landmark/estate-engine/factory"
	"github.com/landmark/estate-engine/sales"
	"github.com/landmark/estate-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
	Sales *sales.Service
	Auth  *auth.Service
	Rules *factory.RuleFactory
}

// NewHandler wires the handler dependencies over one store.
func NewHandler(store *sqlite.Store, authSvc *auth.Service) *Handler {
	return &Handler{
		Store: store,
		Sales: sales.NewService(store),
		Auth:  authSvc,
		Rules: factory.NewRuleFactory(),
	}
}

// actor returns the authenticated user id for audit fields.
func actor(r *http.Request) commission.UserID {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return claims.UserID
	}
	return ""
}

// =============================================================================
// HEALTH AND AUTH
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	token, user, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: toUserDTO(user)})
}

// =============================================================================
// ROLES
// =============================================================================

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Store.ListRoles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list roles", err)
		return
	}

	dtos := make([]RoleDTO, 0, len(roles))
	for _, role := range roles {
		dtos = append(dtos, toRoleDTO(role))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req RoleDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Role id and name are required", nil)
		return
	}

	role := commission.Role{ID: commission.RoleID(req.ID), Name: req.Name, Level: req.Level}
	if err := h.Store.SaveRole(r.Context(), role); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save role", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoleDTO(role))
}

// =============================================================================
// USERS
// =============================================================================

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, 0, len(users))
	for _, user := range users {
		dtos = append(dtos, toUserDTO(user))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Store.User(r.Context(), commission.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" || req.RoleID == "" {
		writeError(w, http.StatusBadRequest, "User id, name and role_id are required", nil)
		return
	}

	ctx := r.Context()
	if _, err := h.Store.Role(ctx, commission.RoleID(req.RoleID)); err != nil {
		writeDomainError(w, err)
		return
	}
	if req.ManagerID != "" {
		if _, err := h.Store.User(ctx, commission.UserID(req.ManagerID)); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	user := commission.User{
		ID:        commission.UserID(req.ID),
		Name:      req.Name,
		RoleID:    commission.RoleID(req.RoleID),
		ManagerID: commission.UserID(req.ManagerID),
	}

	err := h.Store.WithTx(ctx, func(tx sales.Store) error {
		store := tx.(*sqlite.Store)
		if err := store.SaveUser(ctx, user); err != nil {
			return err
		}
		if req.Email == "" {
			return nil
		}
		account := auth.Account{
			UserID: user.ID,
			Email:  strings.ToLower(strings.TrimSpace(req.Email)),
		}
		if err := account.SetPassword(req.Password); err != nil {
			return err
		}
		return store.SaveAccount(ctx, account)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

func (h *Handler) GetUserChain(w http.ResponseWriter, r *http.Request) {
	chain, err := h.Store.AncestorChain(r.Context(), commission.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]UserDTO, 0, len(chain))
	for _, user := range chain {
		dtos = append(dtos, toUserDTO(user))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetUserAllocations(w http.ResponseWriter, r *http.Request) {
	allocations, err := h.Store.AllocationsByUser(r.Context(), commission.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list allocations", err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTOs(allocations))
}

func (h *Handler) GetUserSales(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.SalesBySeller(r.Context(), commission.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sales", err)
		return
	}

	dtos := make([]SaleDTO, 0, len(list))
	for _, sale := range list {
		dtos = append(dtos, toSaleDTO(sale))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PROJECTS AND PLOTS
// =============================================================================

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}

	dtos := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, toProjectDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Project id and name are required", nil)
		return
	}

	project := sales.Project{
		ID:       commission.ProjectID(req.ID),
		Name:     req.Name,
		Location: req.Location,
	}
	if err := h.Store.SaveProject(r.Context(), project); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save project", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(project))
}

func (h *Handler) ListPlots(w http.ResponseWriter, r *http.Request) {
	plots, err := h.Store.PlotsByProject(r.Context(), commission.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list plots", err)
		return
	}

	dtos := make([]PlotDTO, 0, len(plots))
	for _, p := range plots {
		dtos = append(dtos, toPlotDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreatePlot(w http.ResponseWriter, r *http.Request) {
	projectID := commission.ProjectID(chi.URLParam(r, "id"))

	var req CreatePlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	area, err := decimal.NewFromString(req.AreaSqft)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid area_sqft", err)
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid price", err)
		return
	}
	if req.ID == "" || req.Number == "" {
		writeError(w, http.StatusBadRequest, "Plot id and number are required", nil)
		return
	}

	if _, err := h.Store.Project(r.Context(), projectID); err != nil {
		writeDomainError(w, err)
		return
	}

	plot := sales.Plot{
		ID: req.ID, ProjectID: projectID, Number: req.Number,
		AreaSqft: area, Price: price, Status: sales.PlotAvailable,
	}
	if err := h.Store.SavePlot(r.Context(), plot); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save plot", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlotDTO(plot))
}

// =============================================================================
// COMMISSION RULES
// =============================================================================

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	projectID := commission.ProjectID(chi.URLParam(r, "id"))
	rules, err := h.Store.RulesByProject(r.Context(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Rules.ToJSON(projectID, rules))
}

// UploadRuleSet replaces nothing; it upserts the uploaded rules. Existing
// rules keep working until deactivated.
func (h *Handler) UploadRuleSet(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")

	var req RuleSetDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ProjectID = projectID

	rules, err := h.Rules.FromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule set", err)
		return
	}

	ctx := r.Context()
	err = h.Store.WithTx(ctx, func(tx sales.Store) error {
		store := tx.(*sqlite.Store)
		for _, rule := range rules {
			if rule.RoleID != "" {
				if _, err := store.Role(ctx, rule.RoleID); err != nil {
					return err
				}
			}
			if rule.TargetsUser() {
				if _, err := store.User(ctx, rule.UserID); err != nil {
					return err
				}
			}
			if err := store.SaveRule(ctx, rule); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Rules.ToJSON(commission.ProjectID(projectID), rules))
}

func (h *Handler) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeactivateRule(r.Context(), commission.RuleID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// =============================================================================
// SALES LIFECYCLE
// =============================================================================

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.ListSales(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sales", err)
		return
	}

	dtos := make([]SaleDTO, 0, len(list))
	for _, sale := range list {
		dtos = append(dtos, toSaleDTO(sale))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Store.Sale(r.Context(), commission.SaleID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(sale))
}

func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PlotID == "" || req.SellerID == "" || req.BuyerName == "" {
		writeError(w, http.StatusBadRequest, "plot_id, seller_id and buyer_name are required", nil)
		return
	}

	input := sales.NewSaleInput{
		PlotID:     req.PlotID,
		SellerID:   commission.UserID(req.SellerID),
		BuyerName:  req.BuyerName,
		BuyerPhone: req.BuyerPhone,
	}
	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount", err)
			return
		}
		input.Amount = amount
	}

	sale, err := h.Sales.CreateSale(r.Context(), input, actor(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(sale))
}

func (h *Handler) ConfirmSale(w http.ResponseWriter, r *http.Request) {
	saleID := commission.SaleID(chi.URLParam(r, "id"))

	result, err := h.Sales.ConfirmSale(r.Context(), saleID, actor(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	sale, err := h.Store.Sale(r.Context(), saleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ConfirmSaleResponse{
		Sale:               toSaleDTO(sale),
		Allocations:        toAllocationDTOs(result.Allocations),
		AbsorbedPercentage: result.Absorbed.Percentage.String(),
		AbsorbedAmount:     result.Absorbed.Amount.String(),
		AbsorbedRules:      result.Absorbed.Rules,
	})
}

func (h *Handler) CancelSale(w http.ResponseWriter, r *http.Request) {
	saleID := commission.SaleID(chi.URLParam(r, "id"))
	if err := h.Sales.CancelSale(r.Context(), saleID, actor(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) GetSaleAllocations(w http.ResponseWriter, r *http.Request) {
	allocations, err := h.Store.AllocationsBySale(r.Context(), commission.SaleID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list allocations", err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTOs(allocations))
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Store.PaymentsBySale(r.Context(), commission.SaleID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		dtos = append(dtos, toPaymentDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	saleID := commission.SaleID(chi.URLParam(r, "id"))

	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	payment, err := h.Sales.RecordPayment(r.Context(), saleID, amount, req.Method, req.Reference, actor(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(payment))
}

// =============================================================================
// SITE VISITS
// =============================================================================

func (h *Handler) ListVisits(w http.ResponseWriter, r *http.Request) {
	visits, err := h.Store.VisitsByProject(r.Context(), commission.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list visits", err)
		return
	}

	dtos := make([]VisitDTO, 0, len(visits))
	for _, v := range visits {
		dtos = append(dtos, toVisitDTO(v))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ScheduleVisit(w http.ResponseWriter, r *http.Request) {
	projectID := commission.ProjectID(chi.URLParam(r, "id"))

	var req CreateVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.VisitorName == "" || req.EscortedBy == "" {
		writeError(w, http.StatusBadRequest, "visitor_name and escorted_by are required", nil)
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid scheduled_at (use RFC3339)", err)
		return
	}

	visit, err := h.Sales.ScheduleVisit(r.Context(), projectID,
		req.VisitorName, req.VisitorPhone, commission.UserID(req.EscortedBy), scheduledAt)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVisitDTO(visit))
}

// =============================================================================
// DASHBOARD
// =============================================================================

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.Dashboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(stats))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the domain error taxonomy to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, commission.ErrReferenceNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, commission.ErrInvalidRule),
		errors.Is(err, commission.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case errors.Is(err, sales.ErrInvalidTransition),
		errors.Is(err, sales.ErrOverpayment):
		writeError(w, http.StatusConflict, "Conflict", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

/*
service.go - Sale lifecycle orchestration

PURPOSE:
  Wraps the commission engine with the sale lifecycle: reserving a plot
  creates a sale, confirming a sale runs commission distribution and
  persists the allocations, cancelling frees the plot. Payments and site
  visits ride along as supporting records.

TRANSACTION BOUNDARY:
  ConfirmSale is the critical path. The status flip, the distribution run
  and the allocation writes all happen inside one store transaction, so a
  sale is never observed confirmed without its allocations (and never the
  reverse).

SEE ALSO:
  commission/engine.go: the distribution algorithm itself
  store/sqlite:         the production Store implementation
*/
package sales

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/landmark/estate-engine/commission"
)

// =============================================================================
// STORE CONTRACT
// =============================================================================

// Store is the persistence surface the service runs on. It embeds the
// commission directories so that distribution, when run inside WithTx,
// reads rules and hierarchy from the same transaction as the sale update.
type Store interface {
	commission.RoleDirectory
	commission.UserDirectory
	commission.RuleSource
	commission.AllocationSink

	Project(ctx context.Context, id commission.ProjectID) (Project, error)
	SaveProject(ctx context.Context, p Project) error

	Plot(ctx context.Context, id string) (Plot, error)
	SavePlot(ctx context.Context, p Plot) error

	Sale(ctx context.Context, id commission.SaleID) (Sale, error)
	SaveSale(ctx context.Context, s Sale) error

	SavePayment(ctx context.Context, p Payment) error
	PaymentsBySale(ctx context.Context, saleID commission.SaleID) ([]Payment, error)

	SaveSiteVisit(ctx context.Context, v SiteVisit) error

	AllocationsBySale(ctx context.Context, saleID commission.SaleID) ([]commission.Allocation, error)

	// WithTx runs fn against a transaction-scoped view of the store,
	// committing on nil and rolling back on error.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// SERVICE
// =============================================================================

// Service orchestrates the sale lifecycle over a Store.
type Service struct {
	store  Store
	engine *commission.DistributionEngine
}

func NewService(store Store) *Service {
	return &Service{store: store, engine: &commission.DistributionEngine{}}
}

// NewSaleInput carries the facts needed to reserve a plot for a buyer.
type NewSaleInput struct {
	PlotID     string
	SellerID   commission.UserID
	BuyerName  string
	BuyerPhone string

	// Amount overrides the plot's list price when positive. Zero means
	// sell at list price.
	Amount decimal.Decimal
}

// CreateSale reserves a plot and opens a sale against it. The plot must be
// available; the seller must resolve in the user directory.
func (s *Service) CreateSale(ctx context.Context, in NewSaleInput, actorID commission.UserID) (Sale, error) {
	var sale Sale
	err := s.store.WithTx(ctx, func(tx Store) error {
		plot, err := tx.Plot(ctx, in.PlotID)
		if err != nil {
			return err
		}
		if plot.Status != PlotAvailable {
			return &InvalidTransitionError{Entity: "plot", ID: plot.ID, From: string(plot.Status), To: string(PlotReserved)}
		}
		if _, err := tx.User(ctx, in.SellerID); err != nil {
			return err
		}

		amount := plot.Price
		if in.Amount.IsPositive() {
			amount = in.Amount
		}

		sale = Sale{
			ID:         commission.SaleID(uuid.NewString()),
			ProjectID:  plot.ProjectID,
			PlotID:     plot.ID,
			SellerID:   in.SellerID,
			BuyerName:  strings.TrimSpace(in.BuyerName),
			BuyerPhone: strings.TrimSpace(in.BuyerPhone),
			Amount:     amount,
			AreaSqft:   plot.AreaSqft,
			Status:     SaleReserved,
			CreatedBy:  actorID,
			CreatedAt:  time.Now().UTC(),
		}
		if err := tx.SaveSale(ctx, sale); err != nil {
			return err
		}

		plot.Status = PlotReserved
		return tx.SavePlot(ctx, plot)
	})
	if err != nil {
		return Sale{}, err
	}
	return sale, nil
}

// ConfirmSale finalizes a reserved sale: it runs commission distribution
// and, in the same transaction, persists the allocations, marks the sale
// confirmed and the plot sold. Any distribution failure rolls the whole
// confirmation back.
func (s *Service) ConfirmSale(ctx context.Context, saleID commission.SaleID, actorID commission.UserID) (*commission.DistributionResult, error) {
	var result *commission.DistributionResult
	err := s.store.WithTx(ctx, func(tx Store) error {
		sale, err := tx.Sale(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status != SaleReserved {
			return &InvalidTransitionError{Entity: "sale", ID: string(sale.ID), From: string(sale.Status), To: string(SaleConfirmed)}
		}

		loader := &commission.Loader{Roles: tx, Users: tx, Rules: tx}
		in, err := loader.Load(ctx, sale.ID, sale.ProjectID, sale.SellerID, sale.Amount, sale.AreaSqft)
		if err != nil {
			return err
		}
		result, err = s.engine.Distribute(in)
		if err != nil {
			return err
		}
		if err := tx.SaveAllocations(ctx, result.Allocations); err != nil {
			return err
		}

		now := time.Now().UTC()
		sale.Status = SaleConfirmed
		sale.ConfirmedBy = actorID
		sale.ConfirmedAt = &now
		if err := tx.SaveSale(ctx, sale); err != nil {
			return err
		}

		plot, err := tx.Plot(ctx, sale.PlotID)
		if err != nil {
			return err
		}
		plot.Status = PlotSold
		return tx.SavePlot(ctx, plot)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelSale abandons a reserved sale and frees its plot. Confirmed sales
// cannot be cancelled; their allocations are already committed.
func (s *Service) CancelSale(ctx context.Context, saleID commission.SaleID, actorID commission.UserID) error {
	return s.store.WithTx(ctx, func(tx Store) error {
		sale, err := tx.Sale(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status != SaleReserved {
			return &InvalidTransitionError{Entity: "sale", ID: string(sale.ID), From: string(sale.Status), To: string(SaleCancelled)}
		}

		sale.Status = SaleCancelled
		if err := tx.SaveSale(ctx, sale); err != nil {
			return err
		}

		plot, err := tx.Plot(ctx, sale.PlotID)
		if err != nil {
			return err
		}
		plot.Status = PlotAvailable
		return tx.SavePlot(ctx, plot)
	})
}

// RecordPayment records an instalment against a sale. Payments are allowed
// from reservation onward, but the running total may never exceed the sale
// amount.
func (s *Service) RecordPayment(ctx context.Context, saleID commission.SaleID, amount decimal.Decimal, method, reference string, actorID commission.UserID) (Payment, error) {
	var payment Payment
	err := s.store.WithTx(ctx, func(tx Store) error {
		sale, err := tx.Sale(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status == SaleCancelled {
			return &InvalidTransitionError{Entity: "sale", ID: string(sale.ID), From: string(sale.Status), To: "paid"}
		}
		if !amount.IsPositive() {
			return &commission.InvalidAmountError{Field: "payment amount", Value: amount}
		}

		prior, err := tx.PaymentsBySale(ctx, saleID)
		if err != nil {
			return err
		}
		total := amount
		for _, p := range prior {
			total = total.Add(p.Amount)
		}
		if total.GreaterThan(sale.Amount) {
			return ErrOverpayment
		}

		payment = Payment{
			ID:         uuid.NewString(),
			SaleID:     saleID,
			Amount:     amount,
			Method:     method,
			Reference:  reference,
			RecordedBy: actorID,
			PaidAt:     time.Now().UTC(),
		}
		return tx.SavePayment(ctx, payment)
	})
	if err != nil {
		return Payment{}, err
	}
	return payment, nil
}

// ScheduleVisit books a site visit for a prospect on a project.
func (s *Service) ScheduleVisit(ctx context.Context, projectID commission.ProjectID, visitorName, visitorPhone string, escortID commission.UserID, at time.Time) (SiteVisit, error) {
	if _, err := s.store.Project(ctx, projectID); err != nil {
		return SiteVisit{}, err
	}
	if _, err := s.store.User(ctx, escortID); err != nil {
		return SiteVisit{}, err
	}

	visit := SiteVisit{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		VisitorName:  strings.TrimSpace(visitorName),
		VisitorPhone: strings.TrimSpace(visitorPhone),
		EscortedBy:   escortID,
		ScheduledAt:  at,
		Status:       VisitScheduled,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.SaveSiteVisit(ctx, visit); err != nil {
		return SiteVisit{}, err
	}
	return visit, nil
}

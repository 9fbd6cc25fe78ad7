/*
scheduler.go - Automated reservation expiry

PURPOSE:
  Periodically cancels sales that have sat in reserved state past their
  hold window, freeing the plots for other buyers. Reservations without
  a confirmation are holds, not commitments.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Detects reserved sales older than the hold window
  - Cancels through the sales service so plots are freed atomically
  - Skips sales that received a payment; a paying buyer keeps the hold

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - HoldWindow:    How long a reservation lasts (default: 14 days)
  - Enabled:       Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewReservationSweeper(store, handler.Sales)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - sales/service.go: CancelSale semantics
  - cmd/server/main.go: startup wiring
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/landmark/estate-engine/sales"
	"github.com/landmark/estate-engine/store/sqlite"
)

// sweeperActor is the audit actor recorded on automatic cancellations.
const sweeperActor = "system-sweeper"

// ReservationSweeper cancels expired reservations in the background.
type ReservationSweeper struct {
	Store         *sqlite.Store
	Sales         *sales.Service
	CheckInterval time.Duration
	HoldWindow    time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReservationSweeper creates a sweeper with default intervals.
func NewReservationSweeper(store *sqlite.Store, svc *sales.Service) *ReservationSweeper {
	return &ReservationSweeper{
		Store:         store,
		Sales:         svc,
		CheckInterval: 1 * time.Hour,
		HoldWindow:    14 * 24 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the sweeper.
func (rs *ReservationSweeper) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)
	go rs.run()

	log.Printf("[Sweeper] Started with check interval %v, hold window %v", rs.CheckInterval, rs.HoldWindow)
}

// Stop stops the sweeper and waits for the current pass to finish.
func (rs *ReservationSweeper) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Sweeper] Stopped")
	}
}

func (rs *ReservationSweeper) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.sweep()

	for {
		select {
		case <-rs.ticker.C:
			rs.sweep()
		case <-rs.stop:
			return
		}
	}
}

// sweep cancels reserved sales older than the hold window. Sales with at
// least one payment are left alone.
func (rs *ReservationSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	list, err := rs.Store.ListSales(ctx)
	if err != nil {
		log.Printf("[Sweeper] Failed to list sales: %v", err)
		return
	}

	cutoff := time.Now().Add(-rs.HoldWindow)
	for _, sale := range list {
		if sale.Status != sales.SaleReserved || sale.CreatedAt.After(cutoff) {
			continue
		}

		payments, err := rs.Store.PaymentsBySale(ctx, sale.ID)
		if err != nil {
			log.Printf("[Sweeper] Failed to check payments for sale %s: %v", sale.ID, err)
			continue
		}
		if len(payments) > 0 {
			continue
		}

		if err := rs.Sales.CancelSale(ctx, sale.ID, sweeperActor); err != nil {
			log.Printf("[Sweeper] Failed to cancel sale %s: %v", sale.ID, err)
			continue
		}
		log.Printf("[Sweeper] Cancelled expired reservation %s (plot %s)", sale.ID, sale.PlotID)
	}
}

/*
scheduler.go - Periodic balance reconciliation

PURPOSE:
  Runs the GetStatus self-heal for every stored balance of the current
  year on a ticker, so drifted "used" counters are corrected even for
  users who never open their status page.

DESIGN:
  - One background goroutine, first pass immediately on Start
  - During January the previous year is reconciled too, since
    December requests are often approved after New Year
  - Errors are logged; the next tick retries

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - Enabled:       false, or a zero interval, keeps it from starting

USAGE:
  scheduler := NewReconciliationScheduler(ledger, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: POST /api/vacations/reconcile (manual run)
  - vacation/status.go: ReconcileYear
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/vacation-ledger/vacation"
)

// ReconciliationScheduler heals balance counters on a fixed interval.
type ReconciliationScheduler struct {
	Ledger        *vacation.Ledger
	CheckInterval time.Duration
	Enabled       bool
	Now           func() time.Time

	logger *slog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewReconciliationScheduler(ledger *vacation.Ledger, logger *slog.Logger) *ReconciliationScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconciliationScheduler{
		Ledger:        ledger,
		CheckInterval: time.Hour,
		Enabled:       true,
		Now:           time.Now,
		logger:        logger.With("component", "scheduler"),
	}
}

// Start begins the scheduler.
func (rs *ReconciliationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled || rs.CheckInterval <= 0 {
		rs.logger.Info("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)
	go rs.run()

	rs.logger.Info("started", "interval", rs.CheckInterval.String())
}

// Stop stops the scheduler and waits for an in-flight pass.
func (rs *ReconciliationScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker == nil {
		return
	}
	rs.ticker.Stop()
	close(rs.stop)
	rs.wg.Wait()
	rs.ticker = nil
	rs.logger.Info("stopped")
}

func (rs *ReconciliationScheduler) run() {
	defer rs.wg.Done()

	rs.RunNow(context.Background())

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow(context.Background())
		case <-rs.stop:
			return
		}
	}
}

// RunNow reconciles the due years once and returns how many balances
// were corrected.
func (rs *ReconciliationScheduler) RunNow(ctx context.Context) int {
	total := 0
	for _, year := range rs.dueYears() {
		corrected, err := rs.Ledger.ReconcileYear(ctx, year)
		if err != nil {
			rs.logger.Error("reconciliation failed", "year", year, "error", err)
			continue
		}
		if corrected > 0 {
			rs.logger.Info("balances corrected", "year", year, "count", corrected)
		}
		total += corrected
	}
	return total
}

func (rs *ReconciliationScheduler) dueYears() []int {
	now := rs.Now()
	if now.Month() == time.January {
		return []int{now.Year() - 1, now.Year()}
	}
	return []int{now.Year()}
}

package infra

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"brokerdesk/internal/domain"
)

// Scheduler runs the ledger maintenance jobs
type Scheduler struct {
	cron   *cron.Cron
	txRepo domain.CashTransactionRepository
	maxAge time.Duration
}

// NewScheduler creates a new scheduler. maxAge controls how long a cash
// transaction may sit PENDING before the sweep cancels it.
func NewScheduler(txRepo domain.CashTransactionRepository, maxAge time.Duration) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		txRepo: txRepo,
		maxAge: maxAge,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	// Sweep stale PENDING transactions at the top of every hour
	_, err := s.cron.AddFunc("0 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.SweepStalePending(ctx); err != nil {
			log.Printf("ERROR: Stale transaction sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("[OK] Scheduler started (pending transactions expire after %s)", s.maxAge)
	return nil
}

// SweepStalePending cancels PENDING cash transactions older than the
// configured age
func (s *Scheduler) SweepStalePending(ctx context.Context) error {
	cutoff := time.Now().Add(-s.maxAge)
	swept, err := s.txRepo.CancelStalePending(ctx, cutoff, "expired")
	if err != nil {
		return err
	}
	if swept > 0 {
		log.Printf("[CRON] Cancelled %d stale pending transaction(s)", swept)
	}
	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[OK] Scheduler stopped")
}

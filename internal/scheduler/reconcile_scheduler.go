package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ikkim/homestay-backend/pkg/logger"
)

// Reconciler double-verifies payment attempts whose callback never arrived
type Reconciler interface {
	Reconcile(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// ReconcileScheduler runs the payment reconciliation sweep on a cron spec
type ReconcileScheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	spec       string
	olderThan  time.Duration
	batch      int
	timeout    time.Duration
}

func NewReconcileScheduler(reconciler Reconciler, spec string, olderThan time.Duration) *ReconcileScheduler {
	return &ReconcileScheduler{
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		reconciler: reconciler,
		spec:       spec,
		olderThan:  olderThan,
		batch:      50,
		timeout:    5 * time.Minute,
	}
}

// Start registers the sweep and starts the cron runner
func (s *ReconcileScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.RunOnce)
	if err != nil {
		logger.Error("Failed to add cron job for payment reconciliation", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Payment reconciliation scheduler started", map[string]interface{}{
		"spec":       s.spec,
		"older_than": s.olderThan.String(),
	})
	return nil
}

// RunOnce performs a single sweep
func (s *ReconcileScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	logger.Info("Starting scheduled payment reconciliation")
	recorded, err := s.reconciler.Reconcile(ctx, s.olderThan, s.batch)
	if err != nil {
		logger.Error("Payment reconciliation failed", err, map[string]interface{}{
			"recorded": recorded,
		})
		return
	}
	logger.Info("Payment reconciliation finished", map[string]interface{}{
		"recorded": recorded,
	})
}

// Stop waits for a running sweep to finish
func (s *ReconcileScheduler) Stop() {
	logger.Info("Stopping payment reconciliation scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Payment reconciliation scheduler stopped")
}

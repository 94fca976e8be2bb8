package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"dular-server/services"
)

// ReconcileJob periodically rebuilds every derived statistic from source rows.
type ReconcileJob struct {
	rating   *services.RatingService
	risk     *services.RiskService
	interval time.Duration
	stopChan chan bool
}

// NewReconcileJob creates a new reconcile job
func NewReconcileJob(rating *services.RatingService, risk *services.RiskService, interval time.Duration) *ReconcileJob {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &ReconcileJob{
		rating:   rating,
		risk:     risk,
		interval: interval,
		stopChan: make(chan bool),
	}
}

// Start begins the reconcile job
func (j *ReconcileJob) Start() {
	go j.run()
	log.Printf("🚀 Reconcile job started (every %s)", j.interval)
}

// Stop stops the reconcile job
func (j *ReconcileJob) Stop() {
	j.stopChan <- true
	log.Println("🛑 Reconcile job stopped")
}

func (j *ReconcileJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce(context.Background())
		case <-j.stopChan:
			return
		}
	}
}

// RunOnce recomputes all provider summaries and risk scores. A failure in
// one pass does not skip the other.
func (j *ReconcileJob) RunOnce(ctx context.Context) (providers, users int, err error) {
	providers, ratingErr := j.rating.RecomputeAll(ctx)
	if ratingErr != nil {
		log.Printf("❌ Provider stats reconcile: %v", ratingErr)
	}
	users, riskErr := j.risk.RecomputeAll(ctx)
	if riskErr != nil {
		log.Printf("❌ Risk reconcile: %v", riskErr)
	}
	if err = errors.Join(ratingErr, riskErr); err != nil {
		return providers, users, err
	}
	log.Printf("✅ Reconciled %d providers and %d reported users", providers, users)
	return providers, users, nil
}

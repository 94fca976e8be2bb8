package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"dular-server/config"
	"dular-server/logger"
	"dular-server/services"
)

// Worker consumes recompute tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	rating *services.RatingService
	risk   *services.RiskService
	log    *logger.Logger
}

func NewWorker(cfg config.JobsConfig, redisCfg config.RedisConfig, rating *services.RatingService, risk *services.RiskService, log *logger.Logger) (*Worker, error) {
	if redisCfg.URL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redisClientOpt(redisCfg.URL)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newHandlers(rating, risk, log)
	w.server = server
	return w, nil
}

func newHandlers(rating *services.RatingService, risk *services.RiskService, log *logger.Logger) *Worker {
	w := &Worker{mux: asynq.NewServeMux(), rating: rating, risk: risk, log: log}
	w.mux.HandleFunc(TaskProviderStats, w.handleProviderStats)
	w.mux.HandleFunc(TaskUserRisk, w.handleUserRisk)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("recompute worker stopped", "error", err)
	}
}

func (w *Worker) handleProviderStats(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseProviderStatsPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	stats, err := w.rating.RecomputeProviderStats(ctx, payload.ProviderID)
	if err != nil {
		return err
	}
	w.log.Info("provider_stats_recomputed",
		slog.Uint64("provider_id", uint64(payload.ProviderID)),
		slog.Float64("mean_rating", stats.MeanRating),
		slog.Int("completed_services", stats.CompletedServices))
	return nil
}

func (w *Worker) handleUserRisk(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseUserRiskPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	score, tier, err := w.risk.RecomputeUserRisk(ctx, payload.UserID)
	if err != nil {
		return err
	}
	w.log.Info("user_risk_recomputed",
		slog.Uint64("user_id", uint64(payload.UserID)),
		slog.Int("risk_score", score),
		slog.Int("risk_tier", tier))
	return nil
}

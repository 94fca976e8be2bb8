// Package jobs runs the background work of the server: queued retries of
// failed recomputes and the periodic reconcile pass.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"dular-server/config"
	"dular-server/services"
)

var _ services.RecomputeScheduler = (*Client)(nil)

const (
	// retryDelay is how long a failed inline recompute waits before its retry.
	retryDelay = 30 * time.Second
	// uniqueFor bounds the dedupe lock on a pending retry. The lock is
	// dropped early once the task succeeds, and archived tasks never hold it.
	uniqueFor = 10 * time.Minute
)

// Client queues recompute tasks. A nil *Client drops them; the reconcile job
// catches up on its next pass.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.JobsConfig, redisCfg config.RedisConfig) (*Client, error) {
	if redisCfg.URL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redisClientOpt(redisCfg.URL)
	if err != nil {
		return nil, err
	}
	return &Client{client: asynq.NewClient(opt), queue: queueName(cfg)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleProviderStats queues a rating summary rebuild for one provider.
func (c *Client) ScheduleProviderStats(ctx context.Context, providerID uint) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewProviderStatsTask(providerID)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

// ScheduleUserRisk queues a risk score rebuild for one user.
func (c *Client) ScheduleUserRisk(ctx context.Context, userID uint) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewUserRiskTask(userID)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

// enqueue collapses duplicate retries of the same target into one task. The
// payload names the target, so Unique keys on it.
func (c *Client) enqueue(ctx context.Context, task *asynq.Task) error {
	_, err := c.client.EnqueueContext(ctx, task, taskOptions(c.queue)...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func taskOptions(queue string) []asynq.Option {
	return []asynq.Option{
		asynq.Queue(queue),
		asynq.ProcessIn(retryDelay),
		asynq.Unique(uniqueFor),
		asynq.MaxRetry(5),
	}
}

func queueName(cfg config.JobsConfig) string {
	if cfg.QueueName == "" {
		return "default"
	}
	return cfg.QueueName
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"dular-server/apperr"
	"dular-server/config"
	"dular-server/logger"
)

// Decision is the outcome of one throttle check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Throttler counts requests per key in fixed windows.
type Throttler interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryThrottler keeps its windows in process memory. Counts are not shared
// between instances.
type MemoryThrottler struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryThrottler() *MemoryThrottler {
	return &MemoryThrottler{buckets: make(map[string]*bucket), now: time.Now}
}

func (t *MemoryThrottler) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	b, ok := t.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(window)}
		t.buckets[key] = b
	}
	b.count++
	return Decision{
		Allowed:   b.count <= limit,
		Remaining: max(limit-b.count, 0),
		ResetAt:   b.resetAt,
	}, nil
}

// Cleanup drops expired windows.
func (t *MemoryThrottler) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for k, b := range t.buckets {
		if !now.Before(b.resetAt) {
			delete(t.buckets, k)
		}
	}
}

// RedisThrottler shares windows across instances through Redis counters.
type RedisThrottler struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisThrottler(rdb *redis.Client) *RedisThrottler {
	return &RedisThrottler{rdb: rdb, prefix: "throttle:"}
}

func (t *RedisThrottler) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	k := t.prefix + key
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := t.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		ttl = p.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	left := ttl.Val()
	if left < 0 {
		// first hit of the window, or a key that lost its expiry
		if err := t.rdb.PExpire(ctx, k, window).Err(); err != nil {
			return Decision{}, err
		}
		left = window
	}
	count := int(incr.Val())
	return Decision{
		Allowed:   count <= limit,
		Remaining: max(limit-count, 0),
		ResetAt:   time.Now().Add(left),
	}, nil
}

// Close releases the Redis connection pool.
func (t *RedisThrottler) Close() error { return t.rdb.Close() }

// NewThrottler picks the backend named in the config.
func NewThrottler(cfg config.RateLimitConfig, redisCfg config.RedisConfig) (Throttler, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemoryThrottler(), nil
	case "redis":
		if redisCfg.URL == "" {
			return nil, fmt.Errorf("RATE_LIMIT_STORE=redis needs REDIS_URL")
		}
		opt, err := redis.ParseURL(redisCfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return NewRedisThrottler(redis.NewClient(opt)), nil
	default:
		return nil, fmt.Errorf("unknown rate limit store %q", cfg.Store)
	}
}

// KeyFunc derives the throttle key of a request.
type KeyFunc func(c *gin.Context) string

// ByIP keys on the client address.
func ByIP(c *gin.Context) string { return "ip:" + c.ClientIP() }

// ByUser keys on the authenticated user, falling back to the client address.
func ByUser(c *gin.Context) string {
	if id := c.GetUint(CtxUserID); id != 0 {
		return "user:" + strconv.FormatUint(uint64(id), 10)
	}
	return ByIP(c)
}

// Throttle limits a route group to limit requests per window. Backend
// failures let the request through.
func Throttle(t Throttler, log *logger.Logger, name string, limit int, window time.Duration, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		k := name + ":" + key(c)
		d, err := t.Allow(c.Request.Context(), k, limit, window)
		if err != nil {
			log.Error("throttle_backend_error", "key", k, "error", err.Error())
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			retry := int(math.Ceil(time.Until(d.ResetAt).Seconds()))
			if retry < 1 {
				retry = 1
			}
			log.RateLimitExceeded(k, c.FullPath())
			c.Header("Retry-After", strconv.Itoa(retry))
			Abort(c, apperr.RateLimited("Too many requests. Please try again later.").
				WithDetails(gin.H{"retry_after": retry}))
			return
		}
		c.Next()
	}
}

// Package middleware provides logging, rate limiting, tracing and metrics
// middleware for the HTTP API.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// Limiter decides whether another request for (resource, id) fits the budget.
type Limiter interface {
	Allow(ctx context.Context, resource, id string) (bool, error)
}

// RedisLimiter is a fixed window counter shared by every API instance.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, resource, id string) (bool, error) {
	if l.rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	// INCR and set EXPIRE if new
	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		observability.RedisErrors.WithLabelValues("ratelimit_incr").Inc()
		return false, err
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			observability.RedisErrors.WithLabelValues("ratelimit_expire").Inc()
		}
	}
	return cnt <= int64(l.limit), nil
}

// LocalLimiter is a per-process token bucket per key, used when no Redis is
// configured. Buckets refill at limit/window and burst up to limit. A bucket
// idle for a whole window is full again and is dropped on the next sweep.
type LocalLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*localBucket
	limit     int
	window    time.Duration
	every     rate.Limit
	lastSweep time.Time
	now       func() time.Time
}

type localBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	return &LocalLimiter{
		buckets:   make(map[string]*localBucket),
		limit:     limit,
		window:    window,
		every:     rate.Every(window / time.Duration(max(limit, 1))),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, resource, id string) (bool, error) {
	key := resource + ":" + id

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{lim: rate.NewLimiter(l.every, l.limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	return b.lim.AllowN(now, 1), nil
}

// sweep drops buckets not touched for a full window. Caller holds l.mu.
func (l *LocalLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.window {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// Len reports how many keys currently hold a bucket.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// rateLimitBypassed reports whether APP_ENV disables throttling so dev and
// test workflows are not limited.
func rateLimitBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// CheckRateLimit checks if a resource has exceeded its rate limit.
// Returns true if allowed, false if limit exceeded.
func CheckRateLimit(ctx context.Context, l Limiter, resource, id string) (bool, error) {
	if rateLimitBypassed() {
		return true, nil
	}
	if l == nil {
		return false, fmt.Errorf("rate limiter is nil")
	}
	return l.Allow(ctx, resource, id)
}

// NewLimiter picks the Redis limiter when a client is available and the
// in-process token bucket otherwise.
func NewLimiter(rdb *redis.Client, limit int, window time.Duration) Limiter {
	if rdb == nil {
		return NewLocalLimiter(limit, window)
	}
	return NewRedisLimiter(rdb, limit, window)
}

// RateLimit returns a Fiber middleware enforcing `limit` requests per `window`.
// It keys by authenticated username when the gate has run, otherwise by IP.
// It defaults to FailOpen policy.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(NewLimiter(rdb, limit, window), FailOpen, name...)
}

// RateLimitWithPolicy returns a Fiber middleware backed by l with a specific failure policy.
func RateLimitWithPolicy(l Limiter, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id string
		if user, ok := c.UserContext().Value(UsernameKey).(string); ok && user != "" {
			id = "user:" + user
		} else {
			id = "ip:" + c.IP()
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		allowed, err := CheckRateLimit(c.UserContext(), l, resource, id)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit fail-closed",
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}

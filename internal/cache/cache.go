package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Cache wraps an optional Redis client. Every method is safe on a nil client
// and degrades to a miss so the API keeps serving from the database.
type Cache struct {
	rdb *redis.Client
}

// New returns a Cache over rdb, which may be nil.
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Client exposes the underlying Redis client (nil when running without Redis).
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if c.Client() == nil {
		return false, nil
	}
	s, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c.Client() == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first and on a miss calls fetch, which must fill dest,
// then stores dest with ttl. Cache errors never fail the read.
func (c *Cache) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := c.GetJSON(ctx, key, dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := c.SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Invalidate deletes key.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if c.Client() != nil {
		c.rdb.Del(ctx, key)
	}
}

// PostsGeneration returns the current generation of cached post listings.
// Listing keys embed it so bumping it orphans every cached page at once. An
// unset counter is generation 0.
func (c *Cache) PostsGeneration(ctx context.Context) (int64, error) {
	if c.Client() == nil {
		return 0, nil
	}
	gen, err := c.rdb.Get(ctx, postsGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		observability.RedisErrors.WithLabelValues("posts_generation").Inc()
		return 0, err
	}
	return gen, nil
}

// PostsAside is Aside for post listings keyed by generation. When the
// generation cannot be read the cache is bypassed entirely, since any key
// built without it may name a retired listing.
func (c *Cache) PostsAside(ctx context.Context, key func(gen int64) string, dest any, ttl time.Duration, fetch func() error) error {
	gen, err := c.PostsGeneration(ctx)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "post listing generation unavailable, skipping cache", slog.String("error", err.Error()))
		return fetch()
	}
	return c.Aside(ctx, key(gen), dest, ttl, fetch)
}

// InvalidatePosts retires all cached post listings. Called after any write to
// the post aggregate.
func (c *Cache) InvalidatePosts(ctx context.Context) {
	if c.Client() == nil {
		return
	}
	if err := c.rdb.Incr(ctx, postsGenerationKey).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to invalidate post listings", slog.String("error", err.Error()))
	}
}

// ErrRevocationUnavailable is returned when a token cannot be revoked because
// no Redis is configured.
var ErrRevocationUnavailable = errors.New("token revocation requires redis")

// Revoke marks the token id jti as logged out until ttl elapses, which should
// be the token's remaining lifetime.
func (c *Cache) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if c.Client() == nil {
		return ErrRevocationUnavailable
	}
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, RevokedTokenKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti was revoked. A Redis failure is returned to
// the caller, which decides whether to fail closed.
func (c *Cache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if c.Client() == nil || jti == "" {
		return false, nil
	}
	n, err := c.rdb.Exists(ctx, RevokedTokenKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCheckRateLimit_EnvironmentBypass(t *testing.T) {
	for _, env := range []string{"test", "development", "stress"} {
		t.Run(env, func(t *testing.T) {
			t.Setenv("APP_ENV", env)
			allowed, err := CheckRateLimit(context.Background(), nil, "login", "ip:1")
			require.NoError(t, err)
			assert.True(t, allowed)
		})
	}
}

func TestCheckRateLimit_NilLimiter(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	allowed, err := CheckRateLimit(context.Background(), nil, "login", "ip:1")
	assert.Error(t, err)
	assert.False(t, allowed)
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr, rdb := newTestRedis(t)
	l := NewRedisLimiter(rdb, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := CheckRateLimit(ctx, l, "login", "ip:1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := CheckRateLimit(ctx, l, "login", "ip:1")
	require.NoError(t, err)
	assert.False(t, ok)

	// A different caller has its own window.
	ok, err = CheckRateLimit(ctx, l, "login", "ip:2")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Minute + time.Second)
	ok, err = CheckRateLimit(ctx, l, "login", "ip:1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalLimiter_Burst(t *testing.T) {
	l := NewLocalLimiter(3, time.Hour)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, _ := l.Allow(ctx, "comments", "ip:1")
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "comments", "ip:1")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "comments", "ip:2")
	assert.True(t, ok)
}

func TestLocalLimiter_EvictsIdleBuckets(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	l := NewLocalLimiter(2, time.Minute)
	l.now = func() time.Time { return clock }
	l.lastSweep = clock
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		ok, err := l.Allow(ctx, "comments", fmt.Sprintf("ip:%d", i))
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 50, l.Len())

	// Exhaust one key so eviction cannot be mistaken for a refill.
	ok, _ := l.Allow(ctx, "comments", "ip:0")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "comments", "ip:0")
	assert.False(t, ok)

	clock = clock.Add(30 * time.Second)
	ok, _ = l.Allow(ctx, "comments", "ip:active")
	assert.True(t, ok)
	assert.Equal(t, 51, l.Len())

	clock = clock.Add(45 * time.Second)
	ok, _ = l.Allow(ctx, "comments", "ip:active")
	assert.True(t, ok)
	assert.Equal(t, 1, l.Len())
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimitWithPolicy(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	tests := []struct {
		name       string
		limiter    Limiter
		policy     FailPolicy
		requests   int
		wantStatus int
	}{
		{"under limit", NewLocalLimiter(2, time.Hour), FailOpen, 2, http.StatusOK},
		{"over limit", NewLocalLimiter(2, time.Hour), FailOpen, 3, http.StatusTooManyRequests},
		{"store down fail open", failingLimiter{}, FailOpen, 1, http.StatusOK},
		{"store down fail closed", failingLimiter{}, FailClosed, 1, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", RateLimitWithPolicy(tt.limiter, tt.policy, "test"), func(c *fiber.Ctx) error {
				return c.SendStatus(http.StatusOK)
			})

			var last int
			for i := 0; i < tt.requests; i++ {
				resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
				require.NoError(t, err)
				last = resp.StatusCode
				_ = resp.Body.Close()
			}
			assert.Equal(t, tt.wantStatus, last)
		})
	}
}

func TestRateLimit_UsesRedisWhenAvailable(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr, rdb := newTestRedis(t)

	app := fiber.New()
	app.Post("/login", RateLimit(rdb, 1, time.Minute, "login"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	assert.NotEmpty(t, mr.Keys())
}

// Package bootstrap wires the process-level dependencies shared by the
// server and the operator commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipRootAdmin leaves the users table untouched.
	SkipRootAdmin bool
}

// InitRuntime connects to the database and Redis and makes sure a root admin
// exists. The Redis client is nil when Redis is not configured or unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if !opts.SkipRootAdmin {
		if err := EnsureRootAdmin(ctx, cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to bootstrap root admin: %w", err)
		}
	}

	return db, r, nil
}

// EnsureRootAdmin creates the configured root admin when no account has its
// username. Without a password (production default) nothing is created.
func EnsureRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if cfg.RootAdminUsername == "" || cfg.RootAdminPassword == "" {
		middleware.Logger.InfoContext(ctx, "root admin bootstrap skipped, no credentials configured")
		return nil
	}

	users := service.NewUserService(repository.NewUserRepository(db))
	created, err := users.EnsureRootAdmin(ctx, cfg.RootAdminUsername, cfg.RootAdminPassword)
	if err != nil {
		return err
	}
	if created && cfg.RootAdminPassword == "admin123" {
		middleware.Logger.WarnContext(ctx, "root admin created with the default development password",
			slog.String("username", cfg.RootAdminUsername))
	}
	return nil
}

package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:               "test",
		JWTSecret:         "bootstrap-test-secret-0123456789abcdef",
		JWTTTL:            time.Hour,
		DBDriver:          database.DriverSQLite,
		DBPath:            filepath.Join(t.TempDir(), "boot.db"),
		RootAdminUsername: "admin",
		RootAdminPassword: "admin123",
	}
}

func TestInitRuntime_CreatesRootAdminOnce(t *testing.T) {
	cfg := sqliteConfig(t)
	ctx := context.Background()

	db, rdb, err := InitRuntime(ctx, cfg, Options{})
	require.NoError(t, err)
	assert.Nil(t, rdb)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	users := repository.NewUserRepository(db)
	admin, err := users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, auth.VerifyPassword("admin123", admin.Password))

	require.NoError(t, EnsureRootAdmin(ctx, cfg, db))
	n, err := users.Count(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestEnsureRootAdmin_NoPassword(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.RootAdminPassword = ""
	ctx := context.Background()

	db, _, err := InitRuntime(ctx, cfg, Options{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	n, err := repository.NewUserRepository(db).Count(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

package database

import (
	"context"
	"fmt"
	"log/slog"

	"inkwell/internal/config"
	"inkwell/internal/middleware"

	"gorm.io/gorm"
)

// SchemaStatus describes what ApplySchema would do for a configuration.
type SchemaStatus struct {
	Driver             string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// schemaPolicy decides how the schema is managed. Postgres is versioned by the
// embedded SQL migrations, with AutoMigrate layered on outside production.
// SQLite databases are embedded and disposable and use AutoMigrate only.
func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool) {
	if cfg.DBDriver == DriverSQLite {
		return false, true
	}
	return true, !cfg.IsProduction()
}

func runAutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema runs the migrations selected by schemaPolicy.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto := schemaPolicy(cfg)

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if runAuto {
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("driver", driverName(cfg)), slog.String("env", cfg.Env))
		if err := runAutoMigrate(db); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	return nil
}

// GetSchemaStatus reports applied and pending SQL migrations.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto := schemaPolicy(cfg)

	status := &SchemaStatus{
		Driver:             driverName(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}

	if !runSQL {
		return status, nil
	}

	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied
	status.PendingMigrations = pendingMigrations(GetMigrations(), applied)

	return status, nil
}

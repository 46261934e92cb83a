package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"inkwell/internal/middleware"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// The ledger of applied SQL migrations. Only the postgres path uses it;
// SQLite databases are managed by AutoMigrate.
const ledgerDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    BIGINT PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// migrationLockKey is the advisory lock every runner takes inside its
// migration transaction, so replicas starting together apply each version once.
const migrationLockKey int64 = 0x696e6b77656c6c

// AppliedVersions lists the recorded migration versions in ascending order.
// A database that was never migrated has none.
func AppliedVersions(ctx context.Context, db *gorm.DB) ([]int, error) {
	var versions []int
	err := db.WithContext(ctx).
		Raw(`SELECT version FROM schema_migrations ORDER BY version`).
		Scan(&versions).Error
	if err != nil {
		if missingTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return versions, nil
}

// missingTable matches postgres undefined_table and its SQLite equivalent.
func missingTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01"
	}
	return strings.Contains(err.Error(), "no such table")
}

// pendingMigrations returns the registered migrations not in applied, in
// version order.
func pendingMigrations(registered []Migration, applied []int) []Migration {
	var out []Migration
	for _, m := range registered {
		if !slices.Contains(applied, m.Version) {
			out = append(out, m)
		}
	}
	return out
}

// checkKnownVersions refuses to run against a database that has versions this
// binary does not ship, which usually means an older build is deploying.
func checkKnownVersions(applied []int, registered []Migration) error {
	var unknown []string
	for _, v := range applied {
		if !slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == v }) {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return fmt.Errorf("schema_migrations has versions unknown to this build: %s", strings.Join(unknown, ", "))
}

// lockedVersion takes the migration lock in tx and reports whether version is
// already recorded.
func lockedVersion(tx *gorm.DB, version int) (bool, error) {
	if err := tx.Exec(`SELECT pg_advisory_xact_lock(?)`, migrationLockKey).Error; err != nil {
		return false, fmt.Errorf("acquire migration lock: %w", err)
	}
	var n int64
	if err := tx.Raw(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&n).Error; err != nil {
		return false, fmt.Errorf("check migration %d: %w", version, err)
	}
	return n > 0, nil
}

// RunMigrations applies every pending embedded migration. Each one runs with
// its ledger row in a single transaction.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(ledgerDDL).Error; err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return err
	}
	if err := checkKnownVersions(applied, migrations); err != nil {
		return err
	}

	for _, m := range pendingMigrations(migrations, applied) {
		if err := migrateUp(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func migrateUp(ctx context.Context, db *gorm.DB, m Migration) error {
	skipped := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		done, err := lockedVersion(tx, m.Version)
		if err != nil {
			return err
		}
		if done {
			skipped = true
			return nil
		}
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("apply %s: %w", m.String(), err)
		}
		return tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name).Error
	})
	if err != nil {
		return err
	}
	if skipped {
		middleware.Logger.Info("Migration applied by another runner", slog.String("migration", m.String()))
		return nil
	}
	middleware.Logger.Info("Migration applied", slog.String("migration", m.String()))
	return nil
}

// RollbackMigration runs the down script of an applied migration and removes
// its ledger row in one transaction.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		done, err := lockedVersion(tx, version)
		if err != nil {
			return err
		}
		if !done {
			return fmt.Errorf("migration %s has not been applied", m.String())
		}
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("roll back %s: %w", m.String(), err)
		}
		return tx.Exec(`DELETE FROM schema_migrations WHERE version = ?`, version).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("Migration rolled back", slog.String("migration", m.String()))
	return nil
}

// RollbackLatest reverts the most recently applied migration. It returns the
// reverted version, or 0 when nothing was applied.
func RollbackLatest(ctx context.Context, db *gorm.DB) (int, error) {
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return 0, err
	}
	latest := LatestApplied(applied)
	if latest == 0 {
		return 0, nil
	}
	return latest, RollbackMigration(ctx, db, latest)
}

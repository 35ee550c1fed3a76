package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RequiredTables are the tables the event store reads and writes.
var RequiredTables = []string{"event_types", "events"}

// Migrate brings the schema up to date. Every statement is idempotent
// (IF NOT EXISTS) so files created before migrations were tracked are
// adopted in place.
//
// The migrate instance is deliberately not closed: its database driver
// would close db, which belongs to the caller.
func Migrate(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	drv, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration version: %w", err)
	}

	if dirty {
		// Every migration is idempotent, so re-running from the previous
		// version is safe.
		logger.Warn().Uint("version", version).Msg("schema left dirty, retrying migration")
		prev := int(version) - 1
		if prev < 1 {
			prev = database.NilVersion
		}
		if err := m.Force(prev); err != nil {
			return fmt.Errorf("force migration version %d: %w", prev, err)
		}
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug().Uint("version", version).Msg("schema up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	newVersion, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	logger.Info().Uint("from", version).Uint("to", newVersion).Msg("schema migrated")
	return nil
}

// MissingTables reports which of RequiredTables are absent.
func MissingTables(ctx context.Context, db *sql.DB) ([]string, error) {
	var missing []string
	for _, name := range RequiredTables {
		var n int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?;", name,
		).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("check table %s: %w", name, err)
		}
		if n == 0 {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

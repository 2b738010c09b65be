// README: Applies the embedded schema migrations with golang-migrate over the pgx/v5 driver.
package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"nest/internal/logger"
)

// pgx5URL rewrites a postgres:// DSN to the scheme the pgx/v5 migrate driver registers.
func pgx5URL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// Migrate brings the schema at dsn up to the newest migration in migrationFS.
func Migrate(dsn string, migrationFS fs.FS, log logger.Logger) error {
	src, err := iofs.New(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, pgx5URL(dsn))
	if err != nil {
		return fmt.Errorf("making migration: %w", err)
	}
	defer m.Close()

	cur, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("cannot get current migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("migrate up: database is dirty at version %d", cur)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating: %w", err)
	}
	next, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("cannot get new migration version: %w", err)
	}
	if next != cur {
		log.Info("schema migrated", map[string]interface{}{"from": cur, "to": next})
	}
	return nil
}

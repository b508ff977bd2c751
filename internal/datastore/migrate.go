package datastore

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ApplyMigrations runs every pending versioned SQL migration under
// migrationsDir against databaseURL. Unlike Migrate (GORM AutoMigrate,
// additive-only and driven off current struct tags), this applies the
// numbered migrations/ files in order and records which have already
// run, so a deployment can roll schema changes out (and, via .down.sql
// files, back) independently of the running binary's model structs.
func ApplyMigrations(databaseURL, migrationsDir string) error {
	m, err := migrate.New("file://"+migrationsDir, databaseURL)
	if err != nil {
		return fmt.Errorf("opening migration source %s: %w", migrationsDir, err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

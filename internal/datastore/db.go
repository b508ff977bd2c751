package datastore

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	pipelineerrors "github.com/salescontrol/pipeline/internal/errors"
	"github.com/salescontrol/pipeline/internal/logging"
	"github.com/salescontrol/pipeline/internal/observability/metrics"
)

// DefaultSlowQueryThreshold is the query duration above which a query
// is logged as slow.
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// Store wraps a *gorm.DB and is the handle every repository embeds.
type Store struct {
	DB *gorm.DB
}

// Open connects to Postgres at databaseURL and configures the shared
// GORM logger. It does not run migrations: cmd/*'s "migrate"
// subcommand applies the SQL files via ApplyMigrations, outside the
// hot path, and Migrate is a separate AutoMigrate alternative.
func Open(databaseURL string, debug bool, rec *metrics.Recorder) (*Store, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	gormLog := NewGormLogger(DefaultSlowQueryThreshold, level, rec)

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, pipelineerrors.Newf("opening database: %w", err).
			Component("datastore").
			Category(pipelineerrors.CategoryDatabase).
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, pipelineerrors.Newf("getting underlying sql.DB: %w", err).
			Component("datastore").
			Category(pipelineerrors.CategoryDatabase).
			Build()
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logging.ForService("datastore").Info("database connection opened")
	return &Store{DB: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate applies AutoMigrate for every entity model. The "migrate"
// subcommand runs the golang-migrate SQL files instead (see
// migrations/ and ApplyMigrations); this is the dev-convenience path
// for tests that want a disposable schema without the SQL files.
func (s *Store) Migrate() error {
	if err := s.DB.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}
	return nil
}

// Transaction runs fn inside a GORM transaction, rolling back on any
// returned error.
func (s *Store) Transaction(fn func(tx *gorm.DB) error) error {
	return s.DB.Transaction(fn)
}

// Ping verifies the connection is alive, used by the /health endpoint.
func (s *Store) Ping() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

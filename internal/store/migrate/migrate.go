// Package migrate manages the metadata schema using embedded migrations.
package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsTable keeps our bookkeeping apart from anything a tenant or the
// operator has in the metadata database.
const migrationsTable = "postgate_schema_migrations"

// Manager applies metadata schema migrations.
type Manager struct {
	m  *migrate.Migrate
	db *sql.DB
}

// New creates a Manager for the metadata database at dsn.
func New(dsn string) (*Manager, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	db := stdlib.OpenDB(*connConfig)

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Manager{m: m, db: db}, nil
}

// Up applies all pending migrations. Already being up to date is not an error.
func (mg *Manager) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Down rolls back every migration. Used by integration tests only.
func (mg *Manager) Down() error {
	if err := mg.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return nil
}

// Version reports the current schema version and whether it is dirty.
func (mg *Manager) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Close releases the migrator and its connection.
func (mg *Manager) Close() error {
	srcErr, dbErr := mg.m.Close()
	if err := mg.db.Close(); err != nil && dbErr == nil {
		dbErr = err
	}
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"postgate/internal/domain"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// CreateDatabase registers a database under name. For schema-isolated
// databases a schema name is derived from the new ID and the schema is
// created in the same transaction as the metadata row, so a failure on
// either side leaves nothing behind.
func (s *Store) CreateDatabase(ctx context.Context, name string, backend domain.Backend, maxRows int) (*domain.DatabaseConfig, error) {
	if maxRows < 0 {
		return nil, fmt.Errorf("max_rows must be non-negative, got %d", maxRows)
	}

	id := uuid.New()
	if backend.Type == domain.BackendSchema && backend.SchemaName == "" {
		backend.SchemaName = GenerateSchemaName(id, name)
	}
	if err := backend.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var db domain.DatabaseConfig
	err = tx.QueryRow(ctx, `
		INSERT INTO postgate_databases (id, name, backend_type, schema_name, conn_string, max_rows)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
		RETURNING id, name, created_at`,
		id, name, string(backend.Type), backend.SchemaName, backend.ConnString, maxRows,
	).Scan(&db.ID, &db.Name, &db.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to insert database: %w", err)
	}
	db.Backend = backend
	db.MaxRows = maxRows

	if backend.Type == domain.BackendSchema {
		ddl := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoteIdent(backend.SchemaName))
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return nil, fmt.Errorf("failed to create tenant schema: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	s.log.Info("database registered",
		"database_id", db.ID,
		"name", db.Name,
		"backend", string(backend.Type),
	)
	return &db, nil
}

// GetDatabase fetches a database by ID.
func (s *Store) GetDatabase(ctx context.Context, id uuid.UUID) (*domain.DatabaseConfig, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, backend_type, schema_name, conn_string, max_rows, created_at
		FROM postgate_databases
		WHERE id = $1`, id)
	return scanDatabase(row)
}

// GetDatabaseByName fetches a database by its unique name.
func (s *Store) GetDatabaseByName(ctx context.Context, name string) (*domain.DatabaseConfig, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, backend_type, schema_name, conn_string, max_rows, created_at
		FROM postgate_databases
		WHERE name = $1`, name)
	return scanDatabase(row)
}

// ListDatabases returns all registered databases, newest first.
func (s *Store) ListDatabases(ctx context.Context) ([]domain.DatabaseConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, backend_type, schema_name, conn_string, max_rows, created_at
		FROM postgate_databases
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	defer rows.Close()

	var dbs []domain.DatabaseConfig
	for rows.Next() {
		db, err := scanDatabase(rows)
		if err != nil {
			return nil, err
		}
		dbs = append(dbs, *db)
	}
	return dbs, rows.Err()
}

// DeleteDatabase removes a database, its tokens (via cascade) and, for
// schema-isolated databases, the tenant schema with everything in it.
func (s *Store) DeleteDatabase(ctx context.Context, id uuid.UUID) error {
	db, err := s.GetDatabase(ctx, id)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM postgate_databases WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}

	if db.Backend.Type == domain.BackendSchema {
		ddl := fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", quoteIdent(db.Backend.SchemaName))
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to drop tenant schema: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.log.Info("database deleted", "database_id", id, "name", db.Name)
	return nil
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDatabase(row rowScanner) (*domain.DatabaseConfig, error) {
	var (
		db          domain.DatabaseConfig
		backendType string
		schemaName  *string
		connString  *string
	)
	err := row.Scan(&db.ID, &db.Name, &backendType, &schemaName, &connString, &db.MaxRows, &db.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan database: %w", err)
	}

	db.Backend.Type = domain.BackendType(backendType)
	if schemaName != nil {
		db.Backend.SchemaName = *schemaName
	}
	if connString != nil {
		db.Backend.ConnString = *connString
	}
	if err := db.Backend.Validate(); err != nil {
		return nil, fmt.Errorf("corrupt backend for database %s: %w", db.ID, err)
	}
	return &db, nil
}

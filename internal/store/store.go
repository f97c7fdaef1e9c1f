// Package store persists gateway metadata: the registered databases and
// the access tokens scoped to them. It is backed by PostgreSQL and is the
// single authority the request pipeline consults before touching tenant data.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"postgate/internal/logger"
)

// metadataMaxConns caps the metadata pool. Metadata traffic is one lookup
// per request plus admin operations, so it stays small.
const metadataMaxConns = 10

// Store implements gateway metadata persistence using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// New creates a Store connected to the metadata database at dsn.
func New(ctx context.Context, dsn string, log *logger.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = metadataMaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to metadata database: %w", err)
	}

	if log == nil {
		log = logger.Default()
	}

	return &Store{pool: pool, log: log}, nil
}

// NewWithPool creates a Store with an existing connection pool (for testing).
func NewWithPool(pool *pgxpool.Pool, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Default()
	}
	return &Store{pool: pool, log: log}
}

// Close closes the metadata connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the metadata database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Pool exposes the underlying pool for migrations and tests.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// GenerateSchemaName derives the tenant schema name for a schema-isolated
// database: "db_" + the first 8 hex chars of the database ID + "_" + the
// sanitized database name. The result is stable for a given database and
// always a valid unquoted-safe identifier.
func GenerateSchemaName(id uuid.UUID, name string) string {
	const maxNamePart = 32

	sanitized := make([]byte, 0, len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			sanitized = append(sanitized, byte(r))
		default:
			sanitized = append(sanitized, '_')
		}
	}
	if len(sanitized) > maxNamePart {
		sanitized = sanitized[:maxNamePart]
	}

	return fmt.Sprintf("db_%s_%s", strings.ReplaceAll(id.String(), "-", "")[:8], sanitized)
}

// quoteIdent quotes a PostgreSQL identifier for interpolation into DDL.
// Identifiers cannot be bound as statement parameters, so every schema
// name the store or executor interpolates goes through here.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// QuoteIdent is quoteIdent for callers outside the package.
func QuoteIdent(ident string) string {
	return quoteIdent(ident)
}

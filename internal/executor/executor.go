// Package executor runs validated tenant statements against the right
// backend: schema-isolated tenants share one pool and get a transaction-
// scoped search_path, dedicated tenants get a lazily created private pool.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"postgate/internal/config"
	"postgate/internal/domain"
	"postgate/internal/logger"
	"postgate/internal/store"
)

// Executor owns the tenant-facing connection pools.
type Executor struct {
	cfg    config.ExecutorConfig
	shared *pgxpool.Pool
	log    *logger.Logger

	// dedicated maps database_id to its private pool. Many readers, a
	// rare writer on first use; entries are immutable once inserted.
	mu        sync.RWMutex
	dedicated map[uuid.UUID]*pgxpool.Pool
}

// New creates an Executor with a shared pool against the control-plane DSN.
func New(ctx context.Context, dsn string, cfg config.ExecutorConfig, log *logger.Logger) (*Executor, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.SharedMaxConns > 0 {
		poolConfig.MaxConns = cfg.SharedMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return NewWithPool(pool, cfg, log), nil
}

// NewWithPool creates an Executor around an existing shared pool.
func NewWithPool(pool *pgxpool.Pool, cfg config.ExecutorConfig, log *logger.Logger) *Executor {
	if log == nil {
		log = logger.Default()
	}
	return &Executor{
		cfg:       cfg,
		shared:    pool,
		log:       log,
		dedicated: make(map[uuid.UUID]*pgxpool.Pool),
	}
}

// Close closes the shared pool and every dedicated pool.
func (e *Executor) Close() {
	e.mu.Lock()
	for id, pool := range e.dedicated {
		pool.Close()
		delete(e.dedicated, id)
	}
	e.mu.Unlock()
	e.shared.Close()
}

// Execute runs one validated statement for the given database. maxRows <= 0
// falls back to the configured default. The whole attempt, from checkout to
// commit, runs under a single deadline; expiry surfaces as ErrTimeout.
func (e *Executor) Execute(ctx context.Context, databaseID uuid.UUID, backend domain.Backend, req domain.QueryRequest, maxRows int) (*domain.QueryResponse, error) {
	timeout := e.cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if maxRows <= 0 {
		maxRows = e.cfg.DefaultMaxRows
	}

	args, err := bindParams(req.Params)
	if err != nil {
		return nil, err
	}

	var resp *domain.QueryResponse
	switch backend.Type {
	case domain.BackendSchema:
		resp, err = e.executeSchema(ctx, backend.SchemaName, req.SQL, args, maxRows)
	case domain.BackendDedicated:
		resp, err = e.executeDedicated(ctx, databaseID, backend.ConnString, req.SQL, args, maxRows)
	default:
		return nil, fmt.Errorf("unknown backend type %q", backend.Type)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	return resp, nil
}

// executeSchema runs the statement inside a transaction on the shared pool,
// with the tenant schema set via SET LOCAL. The transaction scope guarantees
// the search path dies with the transaction, so a returned connection can
// never leak it to the next tenant.
func (e *Executor) executeSchema(ctx context.Context, schemaName, sql string, args []any, maxRows int) (*domain.QueryResponse, error) {
	conn, err := e.shared.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	setPath := fmt.Sprintf("SET LOCAL search_path TO %s", store.QuoteIdent(schemaName))
	if _, err := tx.Exec(ctx, setPath); err != nil {
		return nil, fmt.Errorf("failed to set search path: %w", err)
	}

	resp, err := queryRows(ctx, tx, sql, args, maxRows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return resp, nil
}

// executeDedicated runs the statement on the tenant's private pool. No
// search-path handling: dedicated means the tenant owns the connection URL.
func (e *Executor) executeDedicated(ctx context.Context, databaseID uuid.UUID, connString, sql string, args []any, maxRows int) (*domain.QueryResponse, error) {
	pool, err := e.dedicatedPool(ctx, databaseID, connString)
	if err != nil {
		return nil, err
	}
	return queryRows(ctx, pool, sql, args, maxRows)
}

// dedicatedPool returns the pool for databaseID, creating it on first use.
// Double-checked under the read/write lock; a loser of the create race
// closes its just-built pool and uses the winner's.
func (e *Executor) dedicatedPool(ctx context.Context, databaseID uuid.UUID, connString string) (*pgxpool.Pool, error) {
	e.mu.RLock()
	pool, ok := e.dedicated[databaseID]
	e.mu.RUnlock()
	if ok {
		return pool, nil
	}

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dedicated connection string: %w", err)
	}
	if e.cfg.DedicatedMaxConns > 0 {
		poolConfig.MaxConns = e.cfg.DedicatedMaxConns
	}

	created, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dedicated pool: %w", err)
	}

	e.mu.Lock()
	if existing, ok := e.dedicated[databaseID]; ok {
		e.mu.Unlock()
		created.Close()
		return existing, nil
	}
	e.dedicated[databaseID] = created
	e.mu.Unlock()

	e.log.Info("dedicated pool created", "database_id", databaseID)
	return created, nil
}

// querier covers pgx.Tx and *pgxpool.Pool.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// queryRows runs the statement, fetches every row and applies the row cap
// post-fetch. Statements without a result set (DDL, plain DML) come back as
// zero rows.
func queryRows(ctx context.Context, q querier, sql string, args []any, maxRows int) (*domain.QueryResponse, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()

	out := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[fd.Name] = convertValue(values[i], fd.DataTypeOID)
		}
		out = append(out, row)

		if len(out) > maxRows {
			return nil, &RowLimitError{Limit: maxRows}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.QueryResponse{Rows: out, RowCount: len(out)}, nil
}

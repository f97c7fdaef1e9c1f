package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BackendType discriminates how a logical database is isolated.
type BackendType string

const (
	// BackendSchema isolates the tenant as a named schema on the shared
	// cluster, enforced with a transaction-local search_path.
	BackendSchema BackendType = "schema"

	// BackendDedicated gives the tenant its own connection string and a
	// private pool.
	BackendDedicated BackendType = "dedicated"
)

// Backend is the tagged variant describing where a logical database lives.
// Exactly one of SchemaName/ConnString is set, matching Type.
type Backend struct {
	Type       BackendType
	SchemaName string
	ConnString string
}

// SchemaBackend builds a schema-isolated backend.
func SchemaBackend(schemaName string) Backend {
	return Backend{Type: BackendSchema, SchemaName: schemaName}
}

// DedicatedBackend builds a dedicated-connection backend.
func DedicatedBackend(connString string) Backend {
	return Backend{Type: BackendDedicated, ConnString: connString}
}

// Validate checks the variant invariant.
func (b Backend) Validate() error {
	switch b.Type {
	case BackendSchema:
		if b.SchemaName == "" {
			return fmt.Errorf("schema backend requires a schema name")
		}
		if b.ConnString != "" {
			return fmt.Errorf("schema backend must not carry a connection string")
		}
	case BackendDedicated:
		if b.ConnString == "" {
			return fmt.Errorf("dedicated backend requires a connection string")
		}
		if b.SchemaName != "" {
			return fmt.Errorf("dedicated backend must not carry a schema name")
		}
	default:
		return fmt.Errorf("unknown backend type %q", b.Type)
	}
	return nil
}

// DatabaseConfig is a logical tenant database as stored in postgate_databases.
type DatabaseConfig struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Backend   Backend   `json:"backend"`
	MaxRows   int       `json:"max_rows"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenInfo is the principal resolved from a token hash on each request.
type TokenInfo struct {
	TokenID    uuid.UUID
	DatabaseID uuid.UUID
	Operations OperationSet
}

// TokenListItem describes a token without its secret. The prefix is the first
// characters of the minted token, enough for an operator to tell tokens apart
// and never enough to authenticate.
type TokenListItem struct {
	ID         uuid.UUID    `json:"id"`
	Name       string       `json:"name"`
	Prefix     string       `json:"token_prefix"`
	Operations OperationSet `json:"allowed_operations"`
	CreatedAt  time.Time    `json:"created_at"`
	LastUsedAt *time.Time   `json:"last_used_at,omitempty"`
}

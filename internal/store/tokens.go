package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"postgate/internal/domain"
	"postgate/internal/token"
)

// CreatedToken is the outcome of minting a token. Secret is the only place
// the full token ever appears; the store keeps just its hash.
type CreatedToken struct {
	ID     uuid.UUID
	Name   string
	Secret string
	Prefix string
}

// CreateToken mints a token named name for the given database. Creating a
// token with an existing name rotates it: the old secret stops working and
// the new one takes its place.
func (s *Store) CreateToken(ctx context.Context, databaseID uuid.UUID, name string, ops domain.OperationSet) (*CreatedToken, error) {
	// The database must exist; the FK alone would surface this as a
	// constraint error instead of ErrNotFound.
	if _, err := s.GetDatabase(ctx, databaseID); err != nil {
		return nil, err
	}

	minted, err := token.Mint()
	if err != nil {
		return nil, fmt.Errorf("failed to mint token: %w", err)
	}

	var id uuid.UUID
	err = s.pool.QueryRow(ctx, `
		INSERT INTO postgate_tokens (database_id, name, token_hash, token_prefix, allowed_operations)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (database_id, name) DO UPDATE SET
			token_hash = EXCLUDED.token_hash,
			token_prefix = EXCLUDED.token_prefix,
			allowed_operations = EXCLUDED.allowed_operations,
			created_at = now(),
			last_used_at = NULL
		RETURNING id`,
		databaseID, name, minted.Hash, minted.Prefix, ops.Strings(),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert token: %w", err)
	}

	s.log.Info("token created",
		"token_id", id,
		"database_id", databaseID,
		"name", name,
		"prefix", minted.Prefix,
	)
	return &CreatedToken{
		ID:     id,
		Name:   name,
		Secret: minted.Secret,
		Prefix: minted.Prefix,
	}, nil
}

// ValidateToken resolves a presented secret to its token. The lookup key is
// the SHA-256 hash, so the comparison cost does not depend on how close a
// guess is. Resolving the token's database is a separate step; a token whose
// database row is gone still authenticates here and fails resolution with
// ErrNotFound instead. The last-used timestamp is updated out of band; a
// failed touch never fails the request.
func (s *Store) ValidateToken(ctx context.Context, secret string) (*domain.TokenInfo, error) {
	hash := token.Hash(secret)

	var (
		info domain.TokenInfo
		ops  []string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, database_id, allowed_operations
		FROM postgate_tokens
		WHERE token_hash = $1`, hash,
	).Scan(&info.TokenID, &info.DatabaseID, &ops)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	info.Operations = domain.ParseOperations(ops)

	s.touchToken(info.TokenID)

	return &info, nil
}

// touchToken records token usage without blocking the request path.
func (s *Store) touchToken(tokenID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := s.pool.Exec(ctx,
			`UPDATE postgate_tokens SET last_used_at = now() WHERE id = $1`, tokenID)
		if err != nil {
			s.log.Debug("failed to update token last_used_at",
				"token_id", tokenID, "error", err)
		}
	}()
}

// ListTokens returns every token of a database, newest first. Secrets are
// unrecoverable; only the display prefix survives.
func (s *Store) ListTokens(ctx context.Context, databaseID uuid.UUID) ([]domain.TokenListItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, token_prefix, allowed_operations, created_at, last_used_at
		FROM postgate_tokens
		WHERE database_id = $1
		ORDER BY created_at DESC`, databaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var items []domain.TokenListItem
	for rows.Next() {
		var (
			item domain.TokenListItem
			ops  []string
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Prefix, &ops, &item.CreatedAt, &item.LastUsedAt); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		item.Operations = domain.ParseOperations(ops)
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteToken revokes a single token.
func (s *Store) DeleteToken(ctx context.Context, tokenID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM postgate_tokens WHERE id = $1`, tokenID)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}

	s.log.Info("token revoked", "token_id", tokenID)
	return nil
}

// DeleteTokensForDatabase revokes every token of a database and reports how
// many were removed.
func (s *Store) DeleteTokensForDatabase(ctx context.Context, databaseID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM postgate_tokens WHERE database_id = $1`, databaseID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

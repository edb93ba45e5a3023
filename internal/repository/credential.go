package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drygo/backend/internal/domain/auth"
)

const getCredentialByHashSQL = `SELECT id, key_hash, name, user_id, scopes
	FROM credentials WHERE key_hash = $1 AND active = TRUE`

var _ auth.Repository = (*CredentialRepository)(nil)

// CredentialRepository provides credential lookups backed by PostgreSQL.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository returns a CredentialRepository that uses the given pool.
func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// FindByHash looks up an active credential by its HMAC-SHA256 hash.
func (r *CredentialRepository) FindByHash(ctx context.Context, hash string) (*auth.Credential, error) {
	var cred auth.Credential
	err := r.pool.QueryRow(ctx, getCredentialByHashSQL, hash).Scan(
		&cred.ID, &cred.KeyHash, &cred.Name, &cred.UserID, &cred.Scopes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, fmt.Errorf("finding credential by hash: %w", err)
	}
	return &cred, nil
}

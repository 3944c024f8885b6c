package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// IdentityRepo records identities registered through this API. The chain
// stays the source of truth; these rows only back the stats endpoint.
type IdentityRepo struct {
	pool *pgxpool.Pool
}

func NewIdentityRepo(pool *pgxpool.Pool) *IdentityRepo {
	return &IdentityRepo{pool: pool}
}

func (r *IdentityRepo) RecordRegistration(ctx context.Context, address, did, txHash string, registeredAt time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	const query = `
INSERT INTO identity_registrations (
	address,
	did,
	tx_hash,
	registered_at
) VALUES (
	$1, $2, $3, $4
)
ON CONFLICT (address) DO UPDATE
SET did = EXCLUDED.did, tx_hash = EXCLUDED.tx_hash, registered_at = EXCLUDED.registered_at
`

	if _, err := r.pool.Exec(ctx, query, address, did, txHash, registeredAt.UTC()); err != nil {
		return fmt.Errorf("record identity registration: %w", err)
	}

	return nil
}

func (r *IdentityRepo) Stats(ctx context.Context, since time.Time) (int64, int64, error) {
	if r.pool == nil {
		return 0, 0, fmt.Errorf("postgres pool is nil")
	}

	const query = `
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE registered_at >= $1)
FROM identity_registrations
`

	var total, recent int64
	if err := r.pool.QueryRow(ctx, query, since.UTC()).Scan(&total, &recent); err != nil {
		return 0, 0, fmt.Errorf("count identity registrations: %w", err)
	}

	return total, recent, nil
}

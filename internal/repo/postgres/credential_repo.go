package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrCredentialNotFound = errors.New("credential record not found")

type CredentialRecord struct {
	ID        string
	Issuer    string
	Subject   string
	Kind      string
	Status    string
	Claims    map[string]any
	IssuedAt  time.Time
	RevokedAt *time.Time
}

type CredentialRepo struct {
	pool *pgxpool.Pool
}

func NewCredentialRepo(pool *pgxpool.Pool) *CredentialRepo {
	return &CredentialRepo{pool: pool}
}

func (r *CredentialRepo) Create(ctx context.Context, record CredentialRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	const query = `
INSERT INTO credentials (
	id,
	issuer_address,
	subject_address,
	kind,
	status,
	claims,
	issued_at
) VALUES (
	$1, $2, $3, $4, $5, $6::jsonb, $7
)
`

	claims, err := json.Marshal(record.Claims)
	if err != nil {
		return fmt.Errorf("marshal credential claims: %w", err)
	}

	issuedAt := record.IssuedAt.UTC()
	if issuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}

	if _, err := r.pool.Exec(ctx, query,
		record.ID,
		record.Issuer,
		record.Subject,
		record.Kind,
		record.Status,
		string(claims),
		issuedAt,
	); err != nil {
		return fmt.Errorf("insert credential record: %w", err)
	}

	return nil
}

func (r *CredentialRepo) GetByID(ctx context.Context, id string) (CredentialRecord, error) {
	if r.pool == nil {
		return CredentialRecord{}, fmt.Errorf("postgres pool is nil")
	}

	const query = `
SELECT
	id,
	issuer_address,
	subject_address,
	kind,
	status,
	claims,
	issued_at,
	revoked_at
FROM credentials
WHERE id = $1
`

	var (
		record    CredentialRecord
		rawClaims []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.Issuer,
		&record.Subject,
		&record.Kind,
		&record.Status,
		&rawClaims,
		&record.IssuedAt,
		&record.RevokedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return CredentialRecord{}, ErrCredentialNotFound
	}
	if err != nil {
		return CredentialRecord{}, fmt.Errorf("select credential record: %w", err)
	}

	if len(rawClaims) > 0 {
		if err := json.Unmarshal(rawClaims, &record.Claims); err != nil {
			return CredentialRecord{}, fmt.Errorf("unmarshal credential claims: %w", err)
		}
	}

	return record, nil
}

func (r *CredentialRepo) MarkRevoked(ctx context.Context, id string, revokedAt time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	const query = `
UPDATE credentials
SET status = 'revoked', revoked_at = $2
WHERE id = $1
`

	tag, err := r.pool.Exec(ctx, query, id, revokedAt.UTC())
	if err != nil {
		return fmt.Errorf("mark credential revoked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCredentialNotFound
	}

	return nil
}

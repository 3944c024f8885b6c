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

var ErrVerificationNotFound = errors.New("verification request not found")

type VerificationRecord struct {
	ID        string
	Requester string
	Subject   string
	ProofKind string
	Status    string
	Proof     map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

type VerificationRepo struct {
	pool *pgxpool.Pool
}

func NewVerificationRepo(pool *pgxpool.Pool) *VerificationRepo {
	return &VerificationRepo{pool: pool}
}

func (r *VerificationRepo) Create(ctx context.Context, record VerificationRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	const query = `
INSERT INTO verification_requests (
	id,
	requester_address,
	subject_address,
	proof_kind,
	status,
	proof,
	created_at,
	updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6::jsonb, $7, $7
)
`

	proof, err := json.Marshal(record.Proof)
	if err != nil {
		return fmt.Errorf("marshal verification proof: %w", err)
	}

	createdAt := record.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := r.pool.Exec(ctx, query,
		record.ID,
		record.Requester,
		record.Subject,
		record.ProofKind,
		record.Status,
		string(proof),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert verification request: %w", err)
	}

	return nil
}

func (r *VerificationRepo) GetByID(ctx context.Context, id string) (VerificationRecord, error) {
	if r.pool == nil {
		return VerificationRecord{}, fmt.Errorf("postgres pool is nil")
	}

	const query = `
SELECT
	id,
	requester_address,
	subject_address,
	proof_kind,
	status,
	proof,
	created_at,
	updated_at
FROM verification_requests
WHERE id = $1
`

	var (
		record   VerificationRecord
		rawProof []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.Requester,
		&record.Subject,
		&record.ProofKind,
		&record.Status,
		&rawProof,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return VerificationRecord{}, ErrVerificationNotFound
	}
	if err != nil {
		return VerificationRecord{}, fmt.Errorf("select verification request: %w", err)
	}

	if len(rawProof) > 0 {
		if err := json.Unmarshal(rawProof, &record.Proof); err != nil {
			return VerificationRecord{}, fmt.Errorf("unmarshal verification proof: %w", err)
		}
	}

	return record, nil
}

func (r *VerificationRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	const query = `
SELECT status, COUNT(*)
FROM verification_requests
GROUP BY status
`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count verification requests: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan verification count row: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verification count rows: %w", err)
	}

	return counts, nil
}

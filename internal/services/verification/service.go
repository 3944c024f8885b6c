package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/chain"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/repo/postgres"
)

const (
	StatusVerified = "verified"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

var (
	ErrInvalidInput = errors.New("invalid verification input")
	ErrNotFound     = errors.New("verification request not found")
)

// ProofVerifier is the chain surface that checks a presented proof.
type ProofVerifier interface {
	VerifyProof(ctx context.Context, proof json.RawMessage) (bool, error)
}

type Store interface {
	Create(ctx context.Context, record postgres.VerificationRecord) error
	GetByID(ctx context.Context, id string) (postgres.VerificationRecord, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type Request struct {
	ID        string
	Requester string
	Subject   string
	ProofKind string
	Status    string
	Proof     map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Stats struct {
	Total    int64
	ByStatus map[string]int64
}

type Service struct {
	verifier ProofVerifier
	store    Store
	now      func() time.Time
}

func NewService(verifier ProofVerifier, store Store) *Service {
	return &Service{
		verifier: verifier,
		store:    store,
		now:      time.Now,
	}
}

// CreateRequest verifies a proof about subject and records the outcome.
// Chain rejections become a rejected record; transport failures become
// a failed record plus an error so the caller can retry.
func (s *Service) CreateRequest(ctx context.Context, requester, subject, proofKind string, proof map[string]any) (Request, error) {
	requester = normalizeAddress(requester)
	subject = normalizeAddress(subject)
	proofKind = strings.TrimSpace(proofKind)
	if requester == "" || subject == "" || proofKind == "" || len(proof) == 0 {
		return Request{}, ErrInvalidInput
	}

	rawProof, err := json.Marshal(proof)
	if err != nil {
		return Request{}, fmt.Errorf("encode proof: %w", err)
	}

	request := Request{
		ID:        uuid.NewString(),
		Requester: requester,
		Subject:   subject,
		ProofKind: proofKind,
		Proof:     proof,
		CreatedAt: s.now().UTC(),
	}

	valid, verifyErr := s.verifier.VerifyProof(ctx, rawProof)
	switch {
	case verifyErr == nil && valid:
		request.Status = StatusVerified
	case verifyErr == nil || chain.IsRevert(verifyErr):
		request.Status = StatusRejected
	default:
		request.Status = StatusFailed
	}
	request.UpdatedAt = request.CreatedAt

	if s.store != nil {
		if err := s.store.Create(ctx, recordFromRequest(request)); err != nil {
			return Request{}, fmt.Errorf("store verification request: %w", err)
		}
	}

	if request.Status == StatusFailed {
		return request, fmt.Errorf("verify proof: %w", verifyErr)
	}
	return request, nil
}

func (s *Service) Get(ctx context.Context, id string) (Request, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Request{}, ErrInvalidInput
	}
	if s.store == nil {
		return Request{}, errors.New("verification store is not configured")
	}

	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, postgres.ErrVerificationNotFound) {
			return Request{}, ErrNotFound
		}
		return Request{}, fmt.Errorf("load verification request: %w", err)
	}

	return requestFromRecord(record), nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s.store == nil {
		return Stats{}, errors.New("verification store is not configured")
	}

	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count verification requests: %w", err)
	}

	stats := Stats{ByStatus: counts}
	for _, count := range counts {
		stats.Total += count
	}
	return stats, nil
}

func recordFromRequest(r Request) postgres.VerificationRecord {
	return postgres.VerificationRecord{
		ID:        r.ID,
		Requester: r.Requester,
		Subject:   r.Subject,
		ProofKind: r.ProofKind,
		Status:    r.Status,
		Proof:     r.Proof,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func requestFromRecord(r postgres.VerificationRecord) Request {
	return Request{
		ID:        r.ID,
		Requester: r.Requester,
		Subject:   r.Subject,
		ProofKind: r.ProofKind,
		Status:    r.Status,
		Proof:     r.Proof,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

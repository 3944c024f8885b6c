package credential

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
	StatusActive  = "active"
	StatusRevoked = "revoked"
)

var (
	ErrInvalidInput = errors.New("invalid credential input")
	ErrNotFound     = errors.New("credential not found")
	ErrNotIssuer    = errors.New("address did not issue this credential")
)

// Verifier is the chain surface for credential checks and revocation.
type Verifier interface {
	VerifyCredential(ctx context.Context, credential json.RawMessage) (bool, error)
	RevokeCredential(ctx context.Context, issuer, credentialID string) (chain.TxReceipt, error)
}

type Store interface {
	Create(ctx context.Context, record postgres.CredentialRecord) error
	GetByID(ctx context.Context, id string) (postgres.CredentialRecord, error)
	MarkRevoked(ctx context.Context, id string, revokedAt time.Time) error
}

type Credential struct {
	ID        string
	Issuer    string
	Subject   string
	Kind      string
	Status    string
	Claims    map[string]any
	IssuedAt  time.Time
	RevokedAt *time.Time
}

type VerifyResult struct {
	Valid  bool
	Reason string
}

type Service struct {
	verifier Verifier
	store    Store
	now      func() time.Time
}

func NewService(verifier Verifier, store Store) *Service {
	return &Service{
		verifier: verifier,
		store:    store,
		now:      time.Now,
	}
}

// Generate issues a credential of kind about subject, signed off by
// issuer, and records it with a fresh id.
func (s *Service) Generate(ctx context.Context, issuer, subject, kind string, claims map[string]any) (Credential, error) {
	issuer = normalizeAddress(issuer)
	subject = normalizeAddress(subject)
	kind = strings.TrimSpace(kind)
	if issuer == "" || subject == "" || kind == "" {
		return Credential{}, ErrInvalidInput
	}

	credential := Credential{
		ID:       uuid.NewString(),
		Issuer:   issuer,
		Subject:  subject,
		Kind:     kind,
		Status:   StatusActive,
		Claims:   claims,
		IssuedAt: s.now().UTC(),
	}

	if s.store != nil {
		if err := s.store.Create(ctx, recordFromCredential(credential)); err != nil {
			return Credential{}, fmt.Errorf("store credential: %w", err)
		}
	}

	return credential, nil
}

// Verify asks the chain verifier whether a presented credential checks
// out. A revert means the credential is bad, not that the call failed.
func (s *Service) Verify(ctx context.Context, credential json.RawMessage) (VerifyResult, error) {
	if len(credential) == 0 {
		return VerifyResult{}, ErrInvalidInput
	}

	valid, err := s.verifier.VerifyCredential(ctx, credential)
	if err != nil {
		if chain.IsRevert(err) {
			return VerifyResult{Valid: false, Reason: "credential rejected by verifier"}, nil
		}
		return VerifyResult{}, fmt.Errorf("verify credential: %w", err)
	}

	result := VerifyResult{Valid: valid}
	if !valid {
		result.Reason = "credential is not valid"
	}
	return result, nil
}

// Revoke marks a credential revoked on chain and locally. Only the
// recorded issuer may revoke.
func (s *Service) Revoke(ctx context.Context, issuer, credentialID string) (string, error) {
	issuer = normalizeAddress(issuer)
	credentialID = strings.TrimSpace(credentialID)
	if issuer == "" || credentialID == "" {
		return "", ErrInvalidInput
	}

	if s.store != nil {
		record, err := s.store.GetByID(ctx, credentialID)
		if err != nil {
			if errors.Is(err, postgres.ErrCredentialNotFound) {
				return "", ErrNotFound
			}
			return "", fmt.Errorf("load credential record: %w", err)
		}
		if record.Issuer != issuer {
			return "", ErrNotIssuer
		}
	}

	receipt, err := s.verifier.RevokeCredential(ctx, issuer, credentialID)
	if err != nil {
		return "", fmt.Errorf("revoke credential on chain: %w", err)
	}

	if s.store != nil {
		if err := s.store.MarkRevoked(ctx, credentialID, s.now().UTC()); err != nil && !errors.Is(err, postgres.ErrCredentialNotFound) {
			return "", fmt.Errorf("mark credential revoked: %w", err)
		}
	}

	return receipt.TxHash, nil
}

func (s *Service) Get(ctx context.Context, credentialID string) (Credential, error) {
	credentialID = strings.TrimSpace(credentialID)
	if credentialID == "" {
		return Credential{}, ErrInvalidInput
	}
	if s.store == nil {
		return Credential{}, errors.New("credential store is not configured")
	}

	record, err := s.store.GetByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, postgres.ErrCredentialNotFound) {
			return Credential{}, ErrNotFound
		}
		return Credential{}, fmt.Errorf("load credential record: %w", err)
	}

	return credentialFromRecord(record), nil
}

func recordFromCredential(c Credential) postgres.CredentialRecord {
	return postgres.CredentialRecord{
		ID:       c.ID,
		Issuer:   c.Issuer,
		Subject:  c.Subject,
		Kind:     c.Kind,
		Status:   c.Status,
		Claims:   c.Claims,
		IssuedAt: c.IssuedAt,
	}
}

func credentialFromRecord(r postgres.CredentialRecord) Credential {
	return Credential{
		ID:        r.ID,
		Issuer:    r.Issuer,
		Subject:   r.Subject,
		Kind:      r.Kind,
		Status:    r.Status,
		Claims:    r.Claims,
		IssuedAt:  r.IssuedAt,
		RevokedAt: r.RevokedAt,
	}
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

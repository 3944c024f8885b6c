package reputation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/chain"
)

const (
	maxBatchSize = 100

	minEventWeight = -100
	maxEventWeight = 100
)

var (
	ErrInvalidInput = errors.New("invalid reputation input")
	ErrNotFound     = errors.New("reputation score not found")
)

// Ledger is the chain surface for reputation reads and events.
type Ledger interface {
	GetReputationScore(ctx context.Context, address string) (chain.ReputationScore, error)
	IssueReputationEvent(ctx context.Context, issuer, subject, kind string, weight int64) (chain.TxReceipt, error)
}

type Score struct {
	Address    string
	Score      int64
	EventCount int64
	UpdatedAt  time.Time
}

type BatchEntry struct {
	Address string
	Score   *Score
	Error   string
}

type Service struct {
	ledger Ledger
}

func NewService(ledger Ledger) *Service {
	return &Service{ledger: ledger}
}

func (s *Service) Score(ctx context.Context, address string) (Score, error) {
	address = normalizeAddress(address)
	if address == "" {
		return Score{}, ErrInvalidInput
	}

	onChain, err := s.ledger.GetReputationScore(ctx, address)
	if err != nil {
		if errors.Is(err, chain.ErrNotRegistered) || chain.IsRevert(err) {
			return Score{}, ErrNotFound
		}
		return Score{}, fmt.Errorf("get reputation score: %w", err)
	}

	return Score{
		Address:    address,
		Score:      onChain.Score,
		EventCount: onChain.EventCount,
		UpdatedAt:  onChain.UpdatedAt,
	}, nil
}

// IssueEvent records a reputation event from issuer about subject.
// Callers enforce that issuer holds the issuer role.
func (s *Service) IssueEvent(ctx context.Context, issuer, subject, kind string, weight int64) (string, error) {
	issuer = normalizeAddress(issuer)
	subject = normalizeAddress(subject)
	kind = strings.TrimSpace(kind)
	if issuer == "" || subject == "" || kind == "" {
		return "", ErrInvalidInput
	}
	if issuer == subject {
		return "", ErrInvalidInput
	}
	if weight < minEventWeight || weight > maxEventWeight {
		return "", ErrInvalidInput
	}

	receipt, err := s.ledger.IssueReputationEvent(ctx, issuer, subject, kind, weight)
	if err != nil {
		return "", fmt.Errorf("issue reputation event: %w", err)
	}

	return receipt.TxHash, nil
}

// Batch resolves scores for up to maxBatchSize addresses, reporting
// failures per entry.
func (s *Service) Batch(ctx context.Context, addresses []string) ([]BatchEntry, error) {
	if len(addresses) == 0 {
		return nil, ErrInvalidInput
	}
	if len(addresses) > maxBatchSize {
		return nil, fmt.Errorf("%w: batch larger than %d", ErrInvalidInput, maxBatchSize)
	}

	entries := make([]BatchEntry, 0, len(addresses))
	for _, raw := range addresses {
		address := normalizeAddress(raw)
		entry := BatchEntry{Address: address}

		score, err := s.Score(ctx, address)
		switch {
		case err == nil:
			entry.Score = &score
		case errors.Is(err, ErrNotFound):
			entry.Error = "reputation score not found"
		case errors.Is(err, ErrInvalidInput):
			entry.Error = "invalid address"
		default:
			entry.Error = "lookup failed"
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

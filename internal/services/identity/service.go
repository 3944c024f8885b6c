package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/chain"
)

const maxBatchSize = 100

var (
	ErrInvalidInput = errors.New("invalid identity input")
	ErrNotFound     = errors.New("identity not found")
	ErrBatchTooBig  = errors.New("batch exceeds maximum size")
)

// Registry is the chain surface the service needs for identity reads
// and registrations.
type Registry interface {
	RegisterIdentity(ctx context.Context, owner, did, publicKey string) (chain.TxReceipt, error)
	IsIdentityRegistered(ctx context.Context, address string) (bool, error)
	GetIdentity(ctx context.Context, address string) (chain.Identity, error)
}

// RegistrationRecorder persists a local row per registration so stats
// do not need chain scans. Best effort: registration succeeds even if
// the row write fails.
type RegistrationRecorder interface {
	RecordRegistration(ctx context.Context, address, did, txHash string, registeredAt time.Time) error
}

type StatsStore interface {
	Stats(ctx context.Context, since time.Time) (total, recent int64, err error)
}

type Identity struct {
	Address      string
	DID          string
	PublicKey    string
	RegisteredAt time.Time
}

type BatchEntry struct {
	Address  string
	Identity *Identity
	Error    string
}

type Stats struct {
	Total          int64
	RegisteredLast int64
	Window         time.Duration
}

type Service struct {
	registry Registry
	recorder RegistrationRecorder
	stats    StatsStore
	now      func() time.Time
}

func NewService(registry Registry, recorder RegistrationRecorder, stats StatsStore) *Service {
	return &Service{
		registry: registry,
		recorder: recorder,
		stats:    stats,
		now:      time.Now,
	}
}

// Register puts a new identity on chain for owner and records it
// locally for stats.
func (s *Service) Register(ctx context.Context, owner, did, publicKey string) (Identity, string, error) {
	owner = normalizeAddress(owner)
	did = strings.TrimSpace(did)
	publicKey = strings.TrimSpace(publicKey)
	if owner == "" || did == "" || publicKey == "" {
		return Identity{}, "", ErrInvalidInput
	}

	receipt, err := s.registry.RegisterIdentity(ctx, owner, did, publicKey)
	if err != nil {
		return Identity{}, "", fmt.Errorf("register identity on chain: %w", err)
	}

	registeredAt := s.now().UTC()
	if s.recorder != nil {
		// Stats row only; the chain write already succeeded.
		_ = s.recorder.RecordRegistration(ctx, owner, did, receipt.TxHash, registeredAt)
	}

	return Identity{
		Address:      owner,
		DID:          did,
		PublicKey:    publicKey,
		RegisteredAt: registeredAt,
	}, receipt.TxHash, nil
}

func (s *Service) Get(ctx context.Context, address string) (Identity, error) {
	address = normalizeAddress(address)
	if address == "" {
		return Identity{}, ErrInvalidInput
	}

	registered, err := s.registry.IsIdentityRegistered(ctx, address)
	if err != nil {
		return Identity{}, fmt.Errorf("check identity registration: %w", err)
	}
	if !registered {
		return Identity{}, ErrNotFound
	}

	onChain, err := s.registry.GetIdentity(ctx, address)
	if err != nil {
		if errors.Is(err, chain.ErrNotRegistered) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, fmt.Errorf("get identity: %w", err)
	}

	return Identity{
		Address:      normalizeAddress(onChain.Address),
		DID:          onChain.DID,
		PublicKey:    onChain.PublicKey,
		RegisteredAt: onChain.RegisteredAt,
	}, nil
}

// Batch resolves up to maxBatchSize addresses in one request. Failures
// are reported per entry so one bad address does not sink the batch.
func (s *Service) Batch(ctx context.Context, addresses []string) ([]BatchEntry, error) {
	if len(addresses) == 0 {
		return nil, ErrInvalidInput
	}
	if len(addresses) > maxBatchSize {
		return nil, ErrBatchTooBig
	}

	entries := make([]BatchEntry, 0, len(addresses))
	for _, raw := range addresses {
		address := normalizeAddress(raw)
		entry := BatchEntry{Address: address}

		identity, err := s.Get(ctx, address)
		switch {
		case err == nil:
			entry.Identity = &identity
		case errors.Is(err, ErrNotFound):
			entry.Error = "Identity not found"
		case errors.Is(err, ErrInvalidInput):
			entry.Error = "invalid address"
		default:
			entry.Error = "lookup failed"
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s.stats == nil {
		return Stats{}, errors.New("identity stats store is not configured")
	}

	window := 24 * time.Hour
	total, recent, err := s.stats.Stats(ctx, s.now().Add(-window))
	if err != nil {
		return Stats{}, fmt.Errorf("load identity stats: %w", err)
	}

	return Stats{
		Total:          total,
		RegisteredLast: recent,
		Window:         window,
	}, nil
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

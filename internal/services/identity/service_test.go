package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/chain"
)

const testAddress = "0x1111111111111111111111111111111111111111"

type fakeRegistry struct {
	registered map[string]chain.Identity
	txHash     string
	getErr     error
}

func (f *fakeRegistry) RegisterIdentity(_ context.Context, owner, did, publicKey string) (chain.TxReceipt, error) {
	if f.registered == nil {
		f.registered = make(map[string]chain.Identity)
	}
	f.registered[owner] = chain.Identity{
		Address:      owner,
		DID:          did,
		PublicKey:    publicKey,
		RegisteredAt: time.Now().UTC(),
	}
	return chain.TxReceipt{TxHash: f.txHash}, nil
}

func (f *fakeRegistry) IsIdentityRegistered(_ context.Context, address string) (bool, error) {
	if f.getErr != nil {
		return false, f.getErr
	}
	_, ok := f.registered[address]
	return ok, nil
}

func (f *fakeRegistry) GetIdentity(_ context.Context, address string) (chain.Identity, error) {
	if f.getErr != nil {
		return chain.Identity{}, f.getErr
	}
	identity, ok := f.registered[address]
	if !ok {
		return chain.Identity{}, chain.ErrNotRegistered
	}
	return identity, nil
}

type fakeRecorder struct {
	calls int
	err   error
}

func (f *fakeRecorder) RecordRegistration(context.Context, string, string, string, time.Time) error {
	f.calls++
	return f.err
}

func TestRegisterRecordsAndReturnsTxHash(t *testing.T) {
	registry := &fakeRegistry{txHash: "0xdeadbeef"}
	recorder := &fakeRecorder{}
	svc := NewService(registry, recorder, nil)

	identity, txHash, err := svc.Register(context.Background(), "0x1111111111111111111111111111111111111111", "did:trustkey:alice", "pubkey-hex")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if txHash != "0xdeadbeef" {
		t.Fatalf("unexpected tx hash: %s", txHash)
	}
	if identity.Address != testAddress || identity.DID != "did:trustkey:alice" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if recorder.calls != 1 {
		t.Fatalf("expected one registration record, got %d", recorder.calls)
	}
}

func TestRegisterSucceedsWhenRecorderFails(t *testing.T) {
	registry := &fakeRegistry{txHash: "0x01"}
	recorder := &fakeRecorder{err: errors.New("postgres is down")}
	svc := NewService(registry, recorder, nil)

	if _, _, err := svc.Register(context.Background(), testAddress, "did:trustkey:alice", "pk"); err != nil {
		t.Fatalf("register should survive recorder failure: %v", err)
	}
}

func TestRegisterRejectsMissingFields(t *testing.T) {
	svc := NewService(&fakeRegistry{}, nil, nil)

	if _, _, err := svc.Register(context.Background(), testAddress, "", "pk"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetUnregisteredAddressReturnsNotFound(t *testing.T) {
	svc := NewService(&fakeRegistry{}, nil, nil)

	_, err := svc.Get(context.Background(), testAddress)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetNormalizesAddressCase(t *testing.T) {
	registry := &fakeRegistry{txHash: "0x01"}
	svc := NewService(registry, nil, nil)

	lower := "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	if _, _, err := svc.Register(context.Background(), lower, "did:trustkey:alice", "pk"); err != nil {
		t.Fatalf("register: %v", err)
	}

	identity, err := svc.Get(context.Background(), "0xABCDEFabcdefABCDEFabcdefABCDEFabcdefABCD")
	if err != nil {
		t.Fatalf("get with upper-case address: %v", err)
	}
	if identity.Address != lower {
		t.Fatalf("expected normalized address, got %s", identity.Address)
	}
}

func TestBatchReportsPerEntryErrors(t *testing.T) {
	registry := &fakeRegistry{txHash: "0x01"}
	svc := NewService(registry, nil, nil)

	if _, _, err := svc.Register(context.Background(), testAddress, "did:trustkey:alice", "pk"); err != nil {
		t.Fatalf("register: %v", err)
	}

	entries, err := svc.Batch(context.Background(), []string{
		testAddress,
		"0x2222222222222222222222222222222222222222",
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Identity == nil || entries[0].Error != "" {
		t.Fatalf("expected resolved first entry: %+v", entries[0])
	}
	if entries[1].Identity != nil || entries[1].Error != "Identity not found" {
		t.Fatalf("expected not-found second entry: %+v", entries[1])
	}
}

func TestBatchRejectsOversizedInput(t *testing.T) {
	svc := NewService(&fakeRegistry{}, nil, nil)

	addresses := make([]string, maxBatchSize+1)
	for i := range addresses {
		addresses[i] = testAddress
	}

	if _, err := svc.Batch(context.Background(), addresses); !errors.Is(err, ErrBatchTooBig) {
		t.Fatalf("expected ErrBatchTooBig, got %v", err)
	}
}

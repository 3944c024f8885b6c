package client

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store := NewFileTokenStore(path, nil)

	if store.IsAuthenticated() {
		t.Fatal("fresh store must not be authenticated")
	}

	store.Set(AccessTokenKey, "access-1")
	store.Set(RefreshTokenKey, "refresh-1")

	if !store.IsAuthenticated() {
		t.Fatal("expected authenticated after set")
	}

	// A new store over the same file sees the persisted pair.
	reopened := NewFileTokenStore(path, nil)
	if reopened.Get(AccessTokenKey) != "access-1" || reopened.Get(RefreshTokenKey) != "refresh-1" {
		t.Fatal("expected persisted tokens after reopen")
	}

	reopened.Clear()
	if reopened.IsAuthenticated() {
		t.Fatal("expected cleared store")
	}
	if store.Get(AccessTokenKey) != "" {
		t.Fatal("clear must remove the backing file")
	}
}

func TestFileTokenStoreCorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	store := NewFileTokenStore(path, nil)
	if store.Get(AccessTokenKey) != "" {
		t.Fatal("corrupt store must read as empty")
	}
	if store.IsAuthenticated() {
		t.Fatal("corrupt store must not be authenticated")
	}

	// Writes still work after corruption.
	store.Set(AccessTokenKey, "access-1")
	if store.Get(AccessTokenKey) != "access-1" {
		t.Fatal("expected write to recover the store")
	}
}

func TestFileTokenStoreCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "tokens.json")
	store := NewFileTokenStore(path, nil)

	store.Set(RefreshTokenKey, "refresh-1")
	if store.Get(RefreshTokenKey) != "refresh-1" {
		t.Fatal("expected token persisted under nested directory")
	}
}

func TestMemoryTokenStore(t *testing.T) {
	store := NewMemoryTokenStore()

	store.Set(AccessTokenKey, "a")
	store.Set(RefreshTokenKey, "r")
	if !store.IsAuthenticated() {
		t.Fatal("expected authenticated")
	}

	store.Clear()
	if store.IsAuthenticated() || store.Get(RefreshTokenKey) != "" {
		t.Fatal("expected empty store after clear")
	}
}

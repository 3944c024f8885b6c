package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  addr: ":9090"
auth:
  jwt_access_ttl: 5m
  challenge_ttl: 90s
  issuer_addresses:
    - "0x1111111111111111111111111111111111111111"
chain:
  rpc_url: http://chain.internal:8545
  call_timeout: 3s
rate_limit:
  auth:
    max: 5
    window: 30s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Auth.JWTAccessTTL != 5*time.Minute {
		t.Fatalf("unexpected access ttl: %s", cfg.Auth.JWTAccessTTL)
	}
	if cfg.Auth.ChallengeTTL != 90*time.Second {
		t.Fatalf("unexpected challenge ttl: %s", cfg.Auth.ChallengeTTL)
	}
	if len(cfg.Auth.IssuerAddresses) != 1 {
		t.Fatalf("unexpected issuer addresses: %v", cfg.Auth.IssuerAddresses)
	}
	if cfg.Chain.RPCURL != "http://chain.internal:8545" {
		t.Fatalf("unexpected chain rpc url: %s", cfg.Chain.RPCURL)
	}
	if cfg.Chain.CallTimeout != 3*time.Second {
		t.Fatalf("unexpected chain call timeout: %s", cfg.Chain.CallTimeout)
	}
	if cfg.RateLimit.Auth.Max != 5 || cfg.RateLimit.Auth.Window != 30*time.Second {
		t.Fatalf("unexpected auth rate limit: %+v", cfg.RateLimit.Auth)
	}

	// Untouched sections keep defaults.
	if cfg.RateLimit.General.Max != 100 {
		t.Fatalf("unexpected general rate limit: %+v", cfg.RateLimit.General)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected redis addr: %s", cfg.Redis.Addr)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("REFRESH_TTL", "48h")
	t.Setenv("CHAIN_RPC_URL", "http://env-chain:8545")
	t.Setenv("ISSUER_ADDRESSES", "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa, 0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Fatalf("unexpected jwt secret: %s", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.RefreshTTL != 48*time.Hour {
		t.Fatalf("unexpected refresh ttl: %s", cfg.Auth.RefreshTTL)
	}
	if cfg.Chain.RPCURL != "http://env-chain:8545" {
		t.Fatalf("unexpected chain rpc url: %s", cfg.Chain.RPCURL)
	}
	if len(cfg.Auth.IssuerAddresses) != 2 {
		t.Fatalf("unexpected issuer addresses: %v", cfg.Auth.IssuerAddresses)
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("JWT_ACCESS_TTL", "not-a-duration")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid duration override")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()

	keys := []string{
		"APP_ENV", "APP_VERSION",
		"HTTP_ADDR", "HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT", "HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL", "POSTGRES_DSN",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"JWT_SECRET", "JWT_ACCESS_TTL", "REFRESH_TTL", "CHALLENGE_TTL",
		"ISSUER_ADDRESSES", "ADMIN_ADDRESSES",
		"CHAIN_RPC_URL", "CHAIN_CALL_TIMEOUT",
		"CHAIN_IDENTITY_REGISTRY", "CHAIN_REPUTATION_SCORE", "CHAIN_CREDENTIAL_VERIFIER",
	}
	for _, key := range keys {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

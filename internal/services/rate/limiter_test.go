package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/repo/redis"
)

func TestLimiterBlocksAfterMaxAndResetsOnWindowRoll(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, map[string]ScopeLimit{
		ScopeAuth: {Max: 3, Window: 30 * time.Second},
	})

	ctx := context.Background()
	clientKey := "203.0.113.7"

	for i := 0; i < 3; i++ {
		retryAfter, allowed, err := limiter.Allow(ctx, ScopeAuth, clientKey)
		if err != nil {
			t.Fatalf("allow #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.Allow(ctx, ScopeAuth, clientKey)
	if err != nil {
		t.Fatalf("allow #4: %v", err)
	}
	if allowed {
		t.Fatal("expected limiter block on fourth request in window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}

	currentRetry, err := limiter.RetryAfter(ctx, ScopeAuth, clientKey)
	if err != nil {
		t.Fatalf("retry_after state: %v", err)
	}
	if currentRetry <= 0 {
		t.Fatalf("expected positive retry_after state, got %d", currentRetry)
	}

	mr.FastForward(31 * time.Second)

	retryAfter, allowed, err = limiter.Allow(ctx, ScopeAuth, clientKey)
	if err != nil {
		t.Fatalf("allow after window roll: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("unexpected result after window roll: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestLimiterKeysAreIndependentPerClientAndScope(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, map[string]ScopeLimit{
		ScopeAuth: {Max: 1, Window: time.Minute},
		ScopeRead: {Max: 100, Window: time.Minute},
	})

	ctx := context.Background()

	if _, allowed, err := limiter.Allow(ctx, ScopeAuth, "10.0.0.1"); err != nil || !allowed {
		t.Fatalf("first auth request should pass: allowed=%v err=%v", allowed, err)
	}
	if _, allowed, err := limiter.Allow(ctx, ScopeAuth, "10.0.0.1"); err != nil || allowed {
		t.Fatalf("second auth request from same key should block: allowed=%v err=%v", allowed, err)
	}

	// Another client is unaffected.
	if _, allowed, err := limiter.Allow(ctx, ScopeAuth, "10.0.0.2"); err != nil || !allowed {
		t.Fatalf("other client should pass: allowed=%v err=%v", allowed, err)
	}

	// Same client in another scope is unaffected.
	if _, allowed, err := limiter.Allow(ctx, ScopeRead, "10.0.0.1"); err != nil || !allowed {
		t.Fatalf("read scope should pass: allowed=%v err=%v", allowed, err)
	}
}

func TestLimiterUnconfiguredScopeIsUnlimited(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, map[string]ScopeLimit{})

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		if _, allowed, err := limiter.Allow(ctx, ScopeGeneral, "10.0.0.9"); err != nil || !allowed {
			t.Fatalf("request #%d should pass on unconfigured scope: allowed=%v err=%v", i+1, allowed, err)
		}
	}
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}

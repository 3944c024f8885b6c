package rate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	ScopeGeneral  = "general"
	ScopeAuth     = "auth"
	ScopeIdentity = "identity"
	ScopeRead     = "read"
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

type ScopeLimit struct {
	Max    int
	Window time.Duration
}

// Limiter applies fixed-window counters per client key per scope.
// Windows are wall-clock fixed size, so up to Max requests can bunch at
// each window edge; scopes that care get a smaller Max instead of a
// sliding window.
type Limiter struct {
	store  WindowStore
	scopes map[string]ScopeLimit
}

func NewLimiter(store WindowStore, scopes map[string]ScopeLimit) *Limiter {
	cleaned := make(map[string]ScopeLimit, len(scopes))
	for name, limit := range scopes {
		if limit.Max < 0 {
			limit.Max = 0
		}
		if limit.Window <= 0 {
			limit.Window = time.Minute
		}
		cleaned[name] = limit
	}

	return &Limiter{
		store:  store,
		scopes: cleaned,
	}
}

// Allow counts one request for clientKey in scope. A zero retry-after
// with allowed=true means the request may proceed; scopes with Max == 0
// are unlimited.
func (l *Limiter) Allow(ctx context.Context, scope, clientKey string) (int64, bool, error) {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		return 0, false, fmt.Errorf("invalid client key")
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	limit, ok := l.scopes[scope]
	if !ok || limit.Max == 0 {
		return 0, true, nil
	}

	count, ttl, err := l.store.IncrementWindow(ctx, windowKey(scope, clientKey), limit.Window)
	if err != nil {
		return 0, false, err
	}
	if count > int64(limit.Max) {
		return ceilSeconds(ttl), false, nil
	}

	return 0, true, nil
}

// RetryAfter reports the wait in seconds before clientKey may act in
// scope again, without counting a request.
func (l *Limiter) RetryAfter(ctx context.Context, scope, clientKey string) (int64, error) {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		return 0, fmt.Errorf("invalid client key")
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}

	limit, ok := l.scopes[scope]
	if !ok || limit.Max == 0 {
		return 0, nil
	}

	count, ttl, err := l.store.WindowState(ctx, windowKey(scope, clientKey))
	if err != nil {
		return 0, err
	}
	if count >= int64(limit.Max) {
		return ceilSeconds(ttl), nil
	}

	return 0, nil
}

func windowKey(scope, clientKey string) string {
	return "rate:" + scope + ":" + clientKey
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}

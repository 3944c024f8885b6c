package apiapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	redrepo "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/repo/redis"
	authsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/auth"
	ratesvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/rate"
)

const testAddress = "0x1111111111111111111111111111111111111111"

type staticSigner struct {
	address string
}

func (s staticSigner) RecoverSigner(context.Context, string, string) (string, error) {
	return s.address, nil
}

func TestAuthMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	_, authService, closeFn := newAuthServiceForTest(t, nil)
	defer closeFn()

	handler := AuthMiddleware(authService, zap.NewNop())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if success, _ := body["success"].(bool); success {
		t.Fatal("expected success=false envelope")
	}
}

func TestAuthMiddlewarePassesIdentityToHandler(t *testing.T) {
	_, authService, closeFn := newAuthServiceForTest(t, nil)
	defer closeFn()

	tokens := mustLogin(t, authService)

	var seen authsvc.Identity
	handler := AuthMiddleware(authService, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = authsvc.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen.Address != testAddress {
		t.Fatalf("unexpected identity address: %s", seen.Address)
	}
	if seen.SID == "" {
		t.Fatal("expected session id in identity")
	}
}

func TestRequireRoleGatesByRole(t *testing.T) {
	_, authService, closeFn := newAuthServiceForTest(t, []string{testAddress})
	defer closeFn()

	tokens := mustLogin(t, authService)

	router := chi.NewRouter()
	authMW := AuthMiddleware(authService, zap.NewNop())
	router.With(authMW, RequireRole(authsvc.RoleAdmin)).Get("/admin", okHandler().ServeHTTP)
	router.With(authMW, RequireRole(authsvc.RoleIssuer, authsvc.RoleAdmin)).Get("/issuer", okHandler().ServeHTTP)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("issuer hitting admin route: expected 403, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/issuer", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("issuer hitting issuer route: expected 200, got %d", rec.Code)
	}
}

func TestRateLimitMiddlewareReturns429WithRetryAfter(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := ratesvc.NewLimiter(redrepo.NewRateRepo(client), map[string]ratesvc.ScopeLimit{
		ratesvc.ScopeAuth: {Max: 2, Window: time.Minute},
	})

	handler := RateLimit(limiter, ratesvc.ScopeAuth, zap.NewNop())(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "198.51.100.4:50000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request #%d: expected 200, got %d", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "198.51.100.4:50001"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	// Another client is unaffected.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "198.51.100.5:50000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client: expected 200, got %d", rec.Code)
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func mustLogin(t *testing.T, authService *authsvc.Service) authsvc.AuthResult {
	t.Helper()

	ctx := context.Background()
	nonce, err := authService.Challenge(ctx, testAddress)
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	tokens, err := authService.Login(ctx, testAddress, nonce, "0xsignature")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return tokens
}

func newAuthServiceForTest(t *testing.T, issuers []string) (*miniredis.Miniredis, *authsvc.Service, func()) {
	t.Helper()

	mr, client := newMiniRedisClient(t)
	jwtManager := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	service := authsvc.NewService(
		jwtManager,
		redrepo.NewSessionRepo(client),
		redrepo.NewNonceRepo(client),
		staticSigner{address: testAddress},
		authsvc.Config{
			RefreshTTL:      48 * time.Hour,
			IssuerAddresses: issuers,
		},
	)

	closeFn := func() {
		_ = client.Close()
		mr.Close()
	}
	return mr, service, closeFn
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

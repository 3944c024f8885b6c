package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoFailsFastWithoutTokenWhenAuthRequired(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusOK, `{"success":true}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.Do(context.Background(), Request{
		Method:       http.MethodGet,
		Path:         "/api/auth/me",
		RequiresAuth: true,
	})
	if !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no network call, got %d", calls.Load())
	}
}

func TestDoRetriesTransportFailuresWithBackoff(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			// Drop the connection mid-response to force a transport error.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("recorder does not support hijack")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			_ = conn.Close()
			return
		}
		writeEnvelope(w, http.StatusOK, `{"success":true,"data":{"ok":true}}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	envelope, err := c.Do(context.Background(), Request{
		Method:     http.MethodGet,
		Path:       "/health",
		Retries:    3,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("expected eventual success: %v", err)
	}
	if !envelope.Success {
		t.Fatal("expected success envelope")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestDoGivesUpAfterConfiguredRetries(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		hj := w.(http.Hijacker)
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Fatalf("hijack: %v", err)
		}
		_ = conn.Close()
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.Do(context.Background(), Request{
		Method:     http.MethodGet,
		Path:       "/health",
		Retries:    2,
		RetryDelay: time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected transport error after retries exhausted")
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable transport error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestDoNeverRetriesServerAnswers(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusBadRequest, `{"success":false,"error":"Validation failed","message":"address is required"}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.Do(context.Background(), Request{
		Method:     http.MethodPost,
		Path:       "/api/auth/challenge",
		Body:       map[string]string{},
		Retries:    5,
		RetryDelay: time.Millisecond,
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != "Validation failed" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestDoCallerHeadersWinOverDefaults(t *testing.T) {
	var seenContentType, seenAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenContentType = r.Header.Get("Content-Type")
		seenAuth = r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, `{"success":true}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	c.tokens.Set(AccessTokenKey, "stored-token")

	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/credential/verify",
		Headers: map[string]string{
			"Content-Type":  "application/vc+json",
			"Authorization": "Bearer caller-token",
		},
		Body: map[string]string{"credential": "{}"},
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if seenContentType != "application/vc+json" {
		t.Fatalf("expected caller content type, got %q", seenContentType)
	}
	if seenAuth != "Bearer caller-token" {
		t.Fatalf("expected caller auth header, got %q", seenAuth)
	}
}

func TestDoTimeoutSurfacesAsRetryableWithoutTokenSideEffects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeEnvelope(w, http.StatusOK, `{"success":true}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	c.tokens.Set(AccessTokenKey, "token-before")
	c.tokens.Set(RefreshTokenKey, "refresh-before")

	_, err := c.Do(context.Background(), Request{
		Method:  http.MethodGet,
		Path:    "/health",
		Timeout: 20 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable timeout, got %v", err)
	}
	if c.tokens.Get(AccessTokenKey) != "token-before" || c.tokens.Get(RefreshTokenKey) != "refresh-before" {
		t.Fatal("timeout must not touch the token store")
	}
}

func TestDoRejectsMalformedEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/health"})
	if err == nil {
		t.Fatal("expected decode error")
	}
	if IsRetryable(err) {
		t.Fatalf("malformed body must not be retried: %v", err)
	}
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	if _, err := New("", NewMemoryTokenStore(), nil); err == nil {
		t.Fatal("expected error for empty base url")
	}
	if _, err := New("not-a-url", NewMemoryTokenStore(), nil); err == nil {
		t.Fatal("expected error for url without scheme")
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	c, err := New(baseURL, NewMemoryTokenStore(), nil)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

func writeEnvelope(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

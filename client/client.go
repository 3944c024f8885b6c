package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultRetryDelay = 250 * time.Millisecond
	maxResponseBytes  = 2 * 1024 * 1024
)

// Request describes one API call.
type Request struct {
	Method       string
	Path         string
	Headers      map[string]string
	Body         any
	Timeout      time.Duration
	Retries      int
	RetryDelay   time.Duration
	RequiresAuth bool
}

// Envelope mirrors the server response shape. Data is left raw for the
// caller to decode.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type Client struct {
	baseURL    string
	tokens     TokenStore
	httpClient *http.Client
	logger     *zap.Logger
}

func New(baseURL string, tokens TokenStore, logger *zap.Logger) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, &RequestError{Op: "create api client", Err: errors.New("base url is empty")}
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, &RequestError{Op: "parse base url", Err: err}
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, &RequestError{Op: "validate base url", Err: fmt.Errorf("invalid base url: %s", trimmed)}
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		tokens:     tokens,
		httpClient: &http.Client{},
		logger:     logger,
	}, nil
}

func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// Do executes one API call. Transport failures are retried up to
// Retries times with doubling backoff; a server answer, success or not,
// is terminal. A failed envelope comes back as *APIError.
func (c *Client) Do(ctx context.Context, req Request) (Envelope, error) {
	if c == nil || c.httpClient == nil {
		return Envelope{}, &RequestError{Op: "do request", Err: errors.New("api client is not initialized")}
	}

	if req.RequiresAuth && c.tokens.Get(AccessTokenKey) == "" {
		return Envelope{}, ErrAuthRequired
	}

	var payload []byte
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return Envelope{}, &RequestError{Op: "marshal request body", Err: err}
		}
		payload = raw
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	delay := req.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	attempts := req.Retries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Envelope{}, &RequestError{Op: "wait for retry", Err: ctx.Err()}
			case <-time.After(delay):
			}
			delay *= 2
			c.logger.Debug("retrying request",
				zap.String("path", req.Path),
				zap.Int("attempt", attempt+1),
			)
		}

		envelope, err := c.doOnce(ctx, req, payload, timeout)
		if err == nil {
			return envelope, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return Envelope{}, err
		}
	}

	return Envelope{}, lastErr
}

func (c *Client) doOnce(ctx context.Context, req Request, payload []byte, timeout time.Duration) (Envelope, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if len(payload) > 0 {
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, method, c.baseURL+ensureLeadingSlash(req.Path), bodyReader)
	if err != nil {
		return Envelope{}, &RequestError{Op: "create http request", Err: err}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if token := c.tokens.Get(AccessTokenKey); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	// Caller headers win over defaults.
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Envelope{}, &RequestError{
			Op:        "execute http request",
			Retryable: isRetryableNetworkError(err),
			Err:       err,
		}
	}
	defer resp.Body.Close()

	responseBytes, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr != nil {
		return Envelope{}, &RequestError{Op: "read http response", Err: readErr}
	}

	var envelope Envelope
	if len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, &envelope); err != nil {
			return Envelope{}, &RequestError{Op: "decode http response", Err: err}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Success {
		apiErr := &APIError{
			Status:  resp.StatusCode,
			Code:    envelope.Error,
			Message: envelope.Message,
		}
		if apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return envelope, apiErr
	}

	return envelope, nil
}

func ensureLeadingSlash(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "/"
	}
	if strings.HasPrefix(trimmed, "/") {
		return trimmed
	}
	return "/" + trimmed
}

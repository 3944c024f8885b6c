package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// JSON-RPC error codes the node uses for contract reverts.
const revertErrorCode = 3

const maxResponseBytes = 2 * 1024 * 1024

type Config struct {
	RPCURL             string
	CallTimeout        time.Duration
	IdentityRegistry   string
	ReputationScore    string
	CredentialVerifier string
}

// Client talks to the chain layer over JSON-RPC. The contract ABI is
// fixed and external; the client only shuttles calls in and results or
// reverts out.
type Client struct {
	endpoint   string
	cfg        Config
	httpClient *http.Client
	nextID     atomic.Int64
}

func NewClient(cfg Config) (*Client, error) {
	trimmed := strings.TrimSpace(cfg.RPCURL)
	if trimmed == "" {
		return nil, &CallError{Op: "create chain client", Err: errors.New("chain rpc url is empty")}
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, &CallError{Op: "parse chain rpc url", Err: err}
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, &CallError{Op: "validate chain rpc url", Err: fmt.Errorf("invalid chain rpc url: %s", trimmed)}
	}

	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 8 * time.Second
	}

	return &Client{
		endpoint:   strings.TrimRight(trimmed, "/"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.CallTimeout},
	}, nil
}

func (c *Client) RegisterIdentity(ctx context.Context, owner, did, publicKey string) (TxReceipt, error) {
	var receipt TxReceipt
	err := c.call(ctx, "identity_registerIdentity", map[string]any{
		"contract":  c.cfg.IdentityRegistry,
		"owner":     owner,
		"did":       did,
		"publicKey": publicKey,
	}, &receipt)
	return receipt, err
}

func (c *Client) IsIdentityRegistered(ctx context.Context, address string) (bool, error) {
	var registered bool
	err := c.call(ctx, "identity_isIdentityRegistered", map[string]any{
		"contract": c.cfg.IdentityRegistry,
		"address":  address,
	}, &registered)
	return registered, err
}

func (c *Client) GetIdentity(ctx context.Context, address string) (Identity, error) {
	var identity Identity
	err := c.call(ctx, "identity_getIdentity", map[string]any{
		"contract": c.cfg.IdentityRegistry,
		"address":  address,
	}, &identity)
	return identity, err
}

func (c *Client) GetReputationScore(ctx context.Context, address string) (ReputationScore, error) {
	var score ReputationScore
	err := c.call(ctx, "reputation_getReputationScore", map[string]any{
		"contract": c.cfg.ReputationScore,
		"address":  address,
	}, &score)
	return score, err
}

func (c *Client) IssueReputationEvent(ctx context.Context, issuer, subject, kind string, weight int64) (TxReceipt, error) {
	var receipt TxReceipt
	err := c.call(ctx, "reputation_issueReputationEvent", map[string]any{
		"contract": c.cfg.ReputationScore,
		"issuer":   issuer,
		"subject":  subject,
		"kind":     kind,
		"weight":   weight,
	}, &receipt)
	return receipt, err
}

func (c *Client) VerifyProof(ctx context.Context, proof json.RawMessage) (bool, error) {
	var valid bool
	err := c.call(ctx, "verifier_verifyProof", map[string]any{
		"contract": c.cfg.CredentialVerifier,
		"proof":    proof,
	}, &valid)
	return valid, err
}

func (c *Client) VerifyCredential(ctx context.Context, credential json.RawMessage) (bool, error) {
	var valid bool
	err := c.call(ctx, "verifier_verifyCredential", map[string]any{
		"contract":   c.cfg.CredentialVerifier,
		"credential": credential,
	}, &valid)
	return valid, err
}

func (c *Client) RevokeCredential(ctx context.Context, issuer, credentialID string) (TxReceipt, error) {
	var receipt TxReceipt
	err := c.call(ctx, "verifier_revokeCredential", map[string]any{
		"contract":     c.cfg.CredentialVerifier,
		"issuer":       issuer,
		"credentialId": credentialID,
	}, &receipt)
	return receipt, err
}

// RecoverSigner asks the wallet-provider boundary to recover the address
// that produced a signature over message. Key material never enters this
// process.
func (c *Client) RecoverSigner(ctx context.Context, message, signature string) (string, error) {
	var address string
	err := c.call(ctx, "wallet_recoverSigner", map[string]any{
		"message":   message,
		"signature": signature,
	}, &address)
	return address, err
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if c == nil || c.httpClient == nil {
		return &CallError{Op: "chain call", Err: errors.New("chain client is not initialized")}
	}

	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return &CallError{Op: "marshal rpc request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &CallError{Op: "create rpc request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &CallError{
			Op:        "execute rpc request: " + method,
			Retryable: isTransportError(err),
			Err:       err,
		}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr != nil {
		return &CallError{Op: "read rpc response: " + method, Err: readErr}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := strings.TrimSpace(string(body))
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return &CallError{
			Op:        "unexpected rpc status: " + method,
			Code:      resp.StatusCode,
			Retryable: resp.StatusCode >= 500,
			Err:       errors.New(message),
		}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return &CallError{Op: "decode rpc response: " + method, Err: err}
	}

	if rpcResp.Error != nil {
		return &CallError{
			Op:   "rpc error: " + method,
			Code: rpcResp.Error.Code,
			Err:  errors.New(rpcResp.Error.Message),
		}
	}

	if out == nil || len(rpcResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return &CallError{Op: "decode rpc result: " + method, Err: err}
	}

	return nil
}

func isTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsRevert reports whether a call failed because the contract reverted.
func IsRevert(err error) bool {
	var callErr *CallError
	if !errors.As(err, &callErr) {
		return false
	}
	return callErr.Code == revertErrorCode
}

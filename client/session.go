package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticating  SessionState = "authenticating"
	StateAuthenticated   SessionState = "authenticated"
	StateRefreshing      SessionState = "refreshing"
)

// Signer produces a wallet signature over the login challenge message.
// Key material stays with the caller.
type Signer func(message string) (string, error)

type User struct {
	Address string `json:"address"`
	Role    string `json:"role"`
}

type authTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

type challengeData struct {
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

type refreshCall struct {
	done chan struct{}
	err  error
}

// Session drives the auth lifecycle over a Client: login, silent
// restore, transparent refresh-and-retry on 401, logout.
type Session struct {
	client *Client
	logger *zap.Logger

	mu         sync.Mutex
	state      SessionState
	user       User
	inflight   *refreshCall
	logoutSubs []func()
}

func NewSession(c *Client, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	state := StateUnauthenticated
	if c != nil && c.tokens.IsAuthenticated() {
		state = StateAuthenticated
	}
	return &Session{
		client: c,
		logger: logger,
		state:  state,
	}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) User() User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// OnLogout registers a callback fired when the session becomes
// unauthenticated outside an explicit Logout call.
func (s *Session) OnLogout(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutSubs = append(s.logoutSubs, fn)
}

// Restore validates a persisted token pair against the server. Without
// a stored access token it is a no-op in the unauthenticated state.
func (s *Session) Restore(ctx context.Context) error {
	if !s.client.tokens.IsAuthenticated() {
		s.setState(StateUnauthenticated)
		return nil
	}

	envelope, err := s.Do(ctx, Request{
		Method:       http.MethodGet,
		Path:         "/api/auth/me",
		RequiresAuth: true,
	})
	if err != nil {
		s.setState(StateUnauthenticated)
		return fmt.Errorf("restore session: %w", err)
	}

	var user User
	if err := json.Unmarshal(envelope.Data, &user); err != nil {
		return fmt.Errorf("decode restored user: %w", err)
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.user = user
	s.mu.Unlock()
	return nil
}

// Login runs the challenge/sign/login exchange and persists the token
// pair. A failed login leaves stored tokens untouched.
func (s *Session) Login(ctx context.Context, address string, sign Signer) error {
	if sign == nil {
		return errors.New("signer is required")
	}
	s.setState(StateAuthenticating)

	challengeEnv, err := s.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/auth/challenge",
		Body:   map[string]string{"address": address},
	})
	if err != nil {
		s.setState(StateUnauthenticated)
		return fmt.Errorf("request login challenge: %w", err)
	}

	var challenge challengeData
	if err := json.Unmarshal(challengeEnv.Data, &challenge); err != nil {
		s.setState(StateUnauthenticated)
		return fmt.Errorf("decode login challenge: %w", err)
	}

	signature, err := sign(challenge.Message)
	if err != nil {
		s.setState(StateUnauthenticated)
		return fmt.Errorf("sign login challenge: %w", err)
	}

	loginEnv, err := s.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/auth/login",
		Body: map[string]string{
			"address":   address,
			"nonce":     challenge.Nonce,
			"signature": signature,
		},
	})
	if err != nil {
		s.setState(StateUnauthenticated)
		return fmt.Errorf("login: %w", err)
	}

	var tokens authTokens
	if err := json.Unmarshal(loginEnv.Data, &tokens); err != nil {
		s.setState(StateUnauthenticated)
		return fmt.Errorf("decode login tokens: %w", err)
	}

	s.client.tokens.Set(AccessTokenKey, tokens.AccessToken)
	s.client.tokens.Set(RefreshTokenKey, tokens.RefreshToken)

	s.mu.Lock()
	s.state = StateAuthenticated
	s.user = tokens.User
	s.mu.Unlock()
	return nil
}

// Do executes a request through the session. A 401 on an authenticated
// call triggers one refresh (shared across concurrent callers) and one
// retry of the original request.
func (s *Session) Do(ctx context.Context, req Request) (Envelope, error) {
	staleToken := s.client.tokens.Get(AccessTokenKey)
	envelope, err := s.client.Do(ctx, req)
	if !req.RequiresAuth || !isUnauthorized(err) {
		return envelope, err
	}

	if refreshErr := s.refresh(ctx, staleToken); refreshErr != nil {
		return Envelope{}, fmt.Errorf("refresh after 401: %w", refreshErr)
	}

	return s.client.Do(ctx, req)
}

// Logout clears local state synchronously; server-side invalidation is
// best effort.
func (s *Session) Logout(ctx context.Context) {
	_, err := s.client.Do(ctx, Request{
		Method:       http.MethodPost,
		Path:         "/api/auth/logout",
		RequiresAuth: true,
	})
	if err != nil {
		s.logger.Debug("server logout failed", zap.Error(err))
	}

	s.client.tokens.Clear()
	s.mu.Lock()
	s.state = StateUnauthenticated
	s.user = User{}
	s.mu.Unlock()
}

// refresh rotates the token pair. Only one refresh runs at a time;
// concurrent callers wait for and share its outcome. A caller whose
// token was already replaced by an earlier refresh skips its own.
func (s *Session) refresh(ctx context.Context, staleToken string) error {
	if staleToken != "" && s.client.tokens.Get(AccessTokenKey) != staleToken {
		return nil
	}

	s.mu.Lock()
	if call := s.inflight; call != nil {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	// Re-check under the lock: a refresh may have finished between the
	// fast-path check and here.
	if staleToken != "" && s.client.tokens.Get(AccessTokenKey) != staleToken {
		s.mu.Unlock()
		return nil
	}
	call := &refreshCall{done: make(chan struct{})}
	s.inflight = call
	s.state = StateRefreshing
	s.mu.Unlock()

	call.err = s.doRefresh(ctx)

	s.mu.Lock()
	s.inflight = nil
	if call.err == nil {
		s.state = StateAuthenticated
	} else {
		s.state = StateUnauthenticated
		s.user = User{}
	}
	subs := append([]func(){}, s.logoutSubs...)
	s.mu.Unlock()

	if call.err != nil {
		s.client.tokens.Clear()
	}
	close(call.done)

	if call.err != nil {
		for _, fn := range subs {
			fn()
		}
	}
	return call.err
}

func (s *Session) doRefresh(ctx context.Context) error {
	refreshToken := s.client.tokens.Get(RefreshTokenKey)
	if refreshToken == "" {
		return errors.New("no refresh token stored")
	}

	envelope, err := s.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/auth/refresh",
		Body:   map[string]string{"refreshToken": refreshToken},
	})
	if err != nil {
		return err
	}

	var tokens authTokens
	if err := json.Unmarshal(envelope.Data, &tokens); err != nil {
		return fmt.Errorf("decode refreshed tokens: %w", err)
	}

	s.client.tokens.Set(AccessTokenKey, tokens.AccessToken)
	s.client.tokens.Set(RefreshTokenKey, tokens.RefreshToken)

	s.mu.Lock()
	s.user = tokens.User
	s.mu.Unlock()
	return nil
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func isUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	MinRefreshTTL = 24 * time.Hour
	MaxRefreshTTL = 90 * 24 * time.Hour

	defaultChallengeTTL = 5 * time.Minute
)

type SessionStore interface {
	Create(ctx context.Context, session SessionRecord, refreshToken string) error
	GetSession(ctx context.Context, sid string) (SessionRecord, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (SessionRecord, error)
	RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sid string) error
	DeleteAllForAddress(ctx context.Context, address string) error
}

type NonceStore interface {
	Store(ctx context.Context, address, nonce string, ttl time.Duration) error
	Consume(ctx context.Context, address, nonce string) error
}

// SignerRecoverer is the wallet-provider boundary: it recovers the
// address that signed a message. Key material stays outside this
// process.
type SignerRecoverer interface {
	RecoverSigner(ctx context.Context, message, signature string) (string, error)
}

type Config struct {
	RefreshTTL      time.Duration
	ChallengeTTL    time.Duration
	IssuerAddresses []string
	AdminAddresses  []string
}

type Service struct {
	jwt          *JWTManager
	sessions     SessionStore
	nonces       NonceStore
	signer       SignerRecoverer
	refreshTTL   time.Duration
	challengeTTL time.Duration
	issuers      map[string]struct{}
	admins       map[string]struct{}
	now          func() time.Time
}

func NewService(jwtManager *JWTManager, sessions SessionStore, nonces NonceStore, signer SignerRecoverer, cfg Config) *Service {
	refreshTTL := cfg.RefreshTTL
	if refreshTTL < MinRefreshTTL {
		refreshTTL = MinRefreshTTL
	}
	if refreshTTL > MaxRefreshTTL {
		refreshTTL = MaxRefreshTTL
	}
	challengeTTL := cfg.ChallengeTTL
	if challengeTTL <= 0 {
		challengeTTL = defaultChallengeTTL
	}

	return &Service{
		jwt:          jwtManager,
		sessions:     sessions,
		nonces:       nonces,
		signer:       signer,
		refreshTTL:   refreshTTL,
		challengeTTL: challengeTTL,
		issuers:      addressSet(cfg.IssuerAddresses),
		admins:       addressSet(cfg.AdminAddresses),
		now:          time.Now,
	}
}

// Challenge issues a single-use nonce the wallet must sign to log in.
func (s *Service) Challenge(ctx context.Context, address string) (string, error) {
	address = normalizeAddress(address)
	if address == "" {
		return "", ErrInvalidInput
	}

	nonce, err := NewLoginNonce()
	if err != nil {
		return "", fmt.Errorf("generate login nonce: %w", err)
	}

	if err := s.nonces.Store(ctx, address, nonce, s.challengeTTL); err != nil {
		return "", fmt.Errorf("store login nonce: %w", err)
	}

	return nonce, nil
}

func (s *Service) Login(ctx context.Context, address, nonce, signature string) (AuthResult, error) {
	address = normalizeAddress(address)
	if address == "" || strings.TrimSpace(nonce) == "" || strings.TrimSpace(signature) == "" {
		return AuthResult{}, ErrInvalidInput
	}

	if err := s.nonces.Consume(ctx, address, nonce); err != nil {
		if errors.Is(err, ErrNonceNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("consume login nonce: %w", err)
	}

	signer, err := s.signer.RecoverSigner(ctx, ChallengeMessage(nonce), signature)
	if err != nil {
		return AuthResult{}, fmt.Errorf("recover signer: %w", err)
	}
	if normalizeAddress(signer) != address {
		return AuthResult{}, ErrSignerMismatch
	}

	return s.issueForAddress(ctx, address)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return AuthResult{}, ErrInvalidInput
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("get refresh token session: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		return AuthResult{}, ErrUnauthorized
	}

	newRefreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	newExpiresAt := s.now().Add(s.refreshTTL)
	if err := s.sessions.RotateRefresh(ctx, session.SID, refreshToken, newRefreshToken, newExpiresAt); err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(session.Address, session.SID, session.Role)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  newRefreshToken,
		AccessExpires: accessExpires,
		User: User{
			Address: session.Address,
			Role:    session.Role,
		},
	}, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) LogoutAll(ctx context.Context, address string) error {
	address = normalizeAddress(address)
	if address == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteAllForAddress(ctx, address); err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}
	return nil
}

func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (AccessClaims, error) {
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return AccessClaims{}, ErrUnauthorized
		}
		return AccessClaims{}, fmt.Errorf("get session: %w", err)
	}

	if session.Address != claims.Address || session.Role != claims.Role {
		return AccessClaims{}, ErrUnauthorized
	}
	if s.now().After(session.ExpiresAt) {
		return AccessClaims{}, ErrUnauthorized
	}

	return claims, nil
}

func (s *Service) RoleFor(address string) string {
	address = normalizeAddress(address)
	if _, ok := s.admins[address]; ok {
		return RoleAdmin
	}
	if _, ok := s.issuers[address]; ok {
		return RoleIssuer
	}
	return RoleUser
}

func (s *Service) issueForAddress(ctx context.Context, address string) (AuthResult, error) {
	role := s.RoleFor(address)

	sessionID, err := NewSessionID()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate session id: %w", err)
	}
	refreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	sessionExpiresAt := s.now().Add(s.refreshTTL)
	session := SessionRecord{
		SID:       sessionID,
		Address:   address,
		Role:      role,
		ExpiresAt: sessionExpiresAt,
	}
	if err := s.sessions.Create(ctx, session, refreshToken); err != nil {
		return AuthResult{}, fmt.Errorf("create session: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(address, sessionID, role)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpires: accessExpires,
		User: User{
			Address: address,
			Role:    role,
		},
	}, nil
}

// ChallengeMessage is the exact text the wallet signs. Changing it
// invalidates outstanding challenges.
func ChallengeMessage(nonce string) string {
	return "TrustKey login challenge: " + nonce
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func addressSet(addresses []string) map[string]struct{} {
	set := make(map[string]struct{}, len(addresses))
	for _, address := range addresses {
		normalized := normalizeAddress(address)
		if normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSessionNotFound = errors.New("session not found")
	ErrRefreshNotFound = errors.New("refresh token not found")
	ErrNonceNotFound   = errors.New("login nonce not found")
	ErrSignerMismatch  = errors.New("signature does not match address")
)

const (
	RoleUser   = "user"
	RoleIssuer = "issuer"
	RoleAdmin  = "admin"
)

type SessionRecord struct {
	SID       string
	Address   string
	Role      string
	ExpiresAt time.Time
}

type AccessClaims struct {
	Address   string
	SID       string
	Role      string
	ExpiresAt time.Time
}

type User struct {
	Address string
	Role    string
}

type AuthResult struct {
	AccessToken   string
	RefreshToken  string
	AccessExpires time.Time
	User          User
}

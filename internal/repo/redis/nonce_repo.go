package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	authsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/auth"
)

const noncePrefix = "login_nonce:"

// NonceRepo stores single-use login challenge nonces. Entries expire by
// TTL; a successful consume deletes the key so a nonce cannot be
// replayed.
type NonceRepo struct {
	client *goredis.Client
}

func NewNonceRepo(client *goredis.Client) *NonceRepo {
	return &NonceRepo{client: client}
}

func (r *NonceRepo) Store(ctx context.Context, address, nonce string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	address = normalizeAddress(address)
	if address == "" || strings.TrimSpace(nonce) == "" || ttl <= 0 {
		return authsvc.ErrInvalidInput
	}

	if err := r.client.Set(ctx, nonceKey(address), nonce, ttl).Err(); err != nil {
		return fmt.Errorf("store login nonce: %w", err)
	}

	return nil
}

func (r *NonceRepo) Consume(ctx context.Context, address, nonce string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	address = normalizeAddress(address)
	if address == "" || strings.TrimSpace(nonce) == "" {
		return authsvc.ErrInvalidInput
	}

	stored, err := r.client.GetDel(ctx, nonceKey(address)).Result()
	if err == goredis.Nil {
		return authsvc.ErrNonceNotFound
	}
	if err != nil {
		return fmt.Errorf("consume login nonce: %w", err)
	}
	if stored != nonce {
		return authsvc.ErrNonceNotFound
	}

	return nil
}

func nonceKey(address string) string {
	return noncePrefix + address
}

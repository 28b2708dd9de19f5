package auth

import (
	"context"
	"time"

	"formini/internal/cache"
)

const revokedTokenKeyPrefix = "revoked:token:"

// TokenStoreInterface records logged-out token IDs.
type TokenStoreInterface interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenStore keeps revoked token IDs in Redis until the token would have expired anyway.
// Redis outages read as "not revoked".
type TokenStore struct {
	cache *cache.Client
}

var _ TokenStoreInterface = (*TokenStore)(nil)

func NewTokenStore(c *cache.Client) *TokenStore {
	return &TokenStore{cache: c}
}

// Revoke marks tokenID as revoked for ttl. A non-positive ttl means the token is already dead.
func (s *TokenStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.cache.SetFlag(ctx, revokedTokenKeyPrefix+tokenID, ttl)
	return nil
}

func (s *TokenStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.cache.Exists(ctx, revokedTokenKeyPrefix+tokenID), nil
}

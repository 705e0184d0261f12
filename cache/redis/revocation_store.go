package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/faural/accounts/cache"
)

// RevocationStore implements cache.RevocationStore on Redis, for
// deployments where revocations must be shared across server instances.
type RevocationStore struct {
	client *redis.Client
	prefix string
}

// NewRevocationStore creates a new [RevocationStore] instance.
func NewRevocationStore(client *redis.Client, prefix string) *RevocationStore {
	return &RevocationStore{
		client: client,
		prefix: prefix,
	}
}

func (r *RevocationStore) redisKey(token string) string {
	return fmt.Sprintf("%s:revoked:%s", r.prefix, cache.HashToken(token))
}

// Revoke implements cache.RevocationStore.Revoke.
func (r *RevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.redisKey(token), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token in Redis: %w", err)
	}
	return nil
}

// IsRevoked implements cache.RevocationStore.IsRevoked.
func (r *RevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, r.redisKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation in Redis: %w", err)
	}
	return n > 0, nil
}

var _ cache.RevocationStore = (*RevocationStore)(nil)

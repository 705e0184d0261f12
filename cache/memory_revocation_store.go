package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryRevocationStore implements RevocationStore using ttlcache. Entries
// expire on their own once the revoked token would have expired anyway.
type MemoryRevocationStore struct {
	cache *ttlcache.Cache[string, time.Time]
}

// NewMemoryRevocationStore creates an in-memory revocation store with
// automatic cleanup.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, time.Time](),
	)

	go cache.Start()

	return &MemoryRevocationStore{cache: cache}
}

// Revoke implements RevocationStore.Revoke.
func (s *MemoryRevocationStore) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired, nothing to deny.
		return nil
	}
	s.cache.Set(HashToken(token), time.Now().UTC(), ttl)
	return nil
}

// IsRevoked implements RevocationStore.IsRevoked.
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, token string) (bool, error) {
	return s.cache.Get(HashToken(token)) != nil, nil
}

// Close stops the cleanup goroutine.
func (s *MemoryRevocationStore) Close() error {
	s.cache.Stop()
	return nil
}

var _ RevocationStore = (*MemoryRevocationStore)(nil)

package cache

import (
	"context"
	"time"
)

// RevocationStore is a denylist of session tokens invalidated before their
// natural expiry (logout, account deletion). Entries only need to live
// until the token itself would have expired.
type RevocationStore interface {
	// Revoke marks a token as revoked until expiresAt.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	// IsRevoked reports whether a token has been revoked.
	IsRevoked(ctx context.Context, token string) (bool, error)
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/faural/accounts/cache"
	"github.com/faural/accounts/domain"
)

// DefaultSessionTokenTTL is the lifetime of an issued session token.
const DefaultSessionTokenTTL = 7 * 24 * time.Hour

// SessionClaims is the claim set embedded in a session token.
type SessionClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// SessionTokenService issues and verifies self-contained signed session
// tokens, independent of the external identity provider. Tokens embed the
// internal user id and expire DefaultSessionTokenTTL after issuance.
type SessionTokenService struct {
	signer  *TokenSigner
	secret  []byte
	ttl     time.Duration
	revoked cache.RevocationStore
}

// NewSessionTokenService creates a session token service. Signing and
// verification both derive from secret, so every token issued here also
// verifies here. revoked may be nil, in which case tokens cannot be revoked
// before expiry.
func NewSessionTokenService(secret string, ttl time.Duration, revoked cache.RevocationStore) *SessionTokenService {
	if ttl <= 0 {
		ttl = DefaultSessionTokenTTL
	}
	signer := NewTokenSigner()
	signer.AddKeySigner(secret)
	return &SessionTokenService{
		signer:  signer,
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: revoked,
	}
}

// Issue produces a signed token for the given user id.
func (s *SessionTokenService) Issue(userID string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return s.signer.Sign(claims, "")
}

// Verify checks the token signature, expiry and revocation status, and
// returns the embedded user id. Malformed, tampered and expired tokens all
// collapse into domain.ErrInvalidToken; a failing revocation store surfaces
// as domain.ErrStoreUnavailable instead.
func (s *SessionTokenService) Verify(ctx context.Context, token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || claims.UserID == "" {
		return "", domain.ErrInvalidToken
	}

	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, token)
		if err != nil {
			// A store outage is a server fault, not a credential fault.
			return "", fmt.Errorf("%w: revocation check: %v", domain.ErrStoreUnavailable, err)
		}
		if revoked {
			return "", fmt.Errorf("%w: token revoked", domain.ErrInvalidToken)
		}
	}

	return claims.UserID, nil
}

// Revoke denylists a token until its natural expiry. Tokens that do not
// verify are ignored: there is nothing to revoke.
func (s *SessionTokenService) Revoke(ctx context.Context, token string) error {
	if s.revoked == nil {
		return nil
	}

	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || claims.ExpiresAt == nil {
		return nil
	}
	return s.revoked.Revoke(ctx, token, claims.ExpiresAt.Time)
}

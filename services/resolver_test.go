package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/faural/accounts/domain"
	"github.com/faural/accounts/internal/identity"
	"github.com/faural/accounts/log"
)

const testSecret = "test-secret"

func newTestSessionService(ttl time.Duration) *SessionTokenService {
	return NewSessionTokenService(testSecret, ttl, nil)
}

func newTestResolver(verifier identity.TokenVerifier, repo domain.UserRepository) *AuthResolver {
	return NewAuthResolver(verifier, newTestSessionService(time.Hour), repo, log.NewNop())
}

func TestResolve_NoToken(t *testing.T) {
	verifier := new(MockTokenVerifier)
	repo := new(MockUserRepository)
	resolver := newTestResolver(verifier, repo)

	user, err := resolver.Resolve(context.Background(), "", ResolveOptions{})

	require.Nil(t, user)
	var uerr *domain.UnauthenticatedError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "no token provided", uerr.Reason)
	// No verification attempt and no directory operation may happen.
	verifier.AssertNotCalled(t, "Verify")
	repo.AssertExpectations(t)
}

func TestResolve_IdentityToken_ExistingUser(t *testing.T) {
	ctx := context.Background()
	verifier := new(MockTokenVerifier)
	repo := new(MockUserRepository)
	resolver := newTestResolver(verifier, repo)

	existing := &domain.User{ID: "u1", FederatedID: "fed-1", Email: "a@example.com", IsActive: true}
	verifier.On("Verify", ctx, "id-token").Return(&identity.Claims{SubjectID: "fed-1", Email: "a@example.com"}, nil).Once()
	repo.On("GetUserByFederatedID", ctx, "fed-1").Return(existing, nil).Once()

	user, err := resolver.Resolve(ctx, "id-token", ResolveOptions{})

	require.NoError(t, err)
	assert.Same(t, existing, user)
	repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "TouchLogin", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestResolve_IdentityToken_ProvisionsUnseenIdentity(t *testing.T) {
	tests := []struct {
		name         string
		claims       *identity.Claims
		wantProvider string
		wantName     string
	}{
		{
			name: "google sign-in",
			claims: &identity.Claims{
				SubjectID: "fed-2", Email: "g@example.com", DisplayName: "G User",
				PhotoURL: "https://img", EmailVerified: true, SignInMethod: "google.com",
			},
			wantProvider: domain.ProviderGoogle,
			wantName:     "G User",
		},
		{
			name: "password sign-in with missing display name falls back to email",
			claims: &identity.Claims{
				SubjectID: "fed-3", Email: "p@example.com", SignInMethod: "password",
			},
			wantProvider: domain.ProviderEmail,
			wantName:     "p@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			verifier := new(MockTokenVerifier)
			repo := new(MockUserRepository)
			resolver := newTestResolver(verifier, repo)

			verifier.On("Verify", ctx, "id-token").Return(tt.claims, nil).Once()
			repo.On("GetUserByFederatedID", ctx, tt.claims.SubjectID).Return(nil, domain.ErrUserNotFound).Once()
			repo.On("CreateUser", ctx, mock.AnythingOfType("*domain.User")).Run(func(args mock.Arguments) {
				created := args.Get(1).(*domain.User)
				assert.Equal(t, tt.claims.SubjectID, created.FederatedID)
				assert.Equal(t, tt.claims.Email, created.Email)
				assert.Equal(t, tt.wantName, created.DisplayName)
				assert.Equal(t, tt.wantProvider, created.Provider)
				assert.Equal(t, tt.claims.EmailVerified, created.EmailVerified)
				assert.Empty(t, created.PasswordHash)
			}).Return(nil).Once()

			user, err := resolver.Resolve(ctx, "id-token", ResolveOptions{})

			require.NoError(t, err)
			require.NotNil(t, user)
			assert.Equal(t, tt.wantProvider, user.Provider)
			repo.AssertExpectations(t)
		})
	}
}

func TestResolve_IdentityToken_ProvisioningRace(t *testing.T) {
	ctx := context.Background()
	verifier := new(MockTokenVerifier)
	repo := new(MockUserRepository)
	resolver := newTestResolver(verifier, repo)

	winner := &domain.User{ID: "winner", FederatedID: "fed-4", IsActive: true}
	verifier.On("Verify", ctx, "id-token").Return(&identity.Claims{SubjectID: "fed-4", Email: "r@example.com"}, nil).Once()
	repo.On("GetUserByFederatedID", ctx, "fed-4").Return(nil, domain.ErrUserNotFound).Once()
	repo.On("CreateUser", ctx, mock.AnythingOfType("*domain.User")).Return(domain.ErrDuplicateUser).Once()
	// The duplicate is treated as "found": re-fetch and proceed.
	repo.On("GetUserByFederatedID", ctx, "fed-4").Return(winner, nil).Once()

	user, err := resolver.Resolve(ctx, "id-token", ResolveOptions{})

	require.NoError(t, err)
	assert.Same(t, winner, user)
	repo.AssertExpectations(t)
}

func TestResolve_SessionToken_Fallback(t *testing.T) {
	ctx := context.Background()
	verifier := new(MockTokenVerifier)
	repo := new(MockUserRepository)
	resolver := newTestResolver(verifier, repo)

	token, err := resolver.sessions.Issue("u9")
	require.NoError(t, err)

	active := &domain.User{ID: "u9", Email: "s@example.com", IsActive: true}
	verifier.On("Verify", ctx, token).Return(nil, domain.ErrInvalidToken).Once()
	repo.On("GetUserByID", ctx, "u9").Return(active, nil).Once()

	user, err := resolver.Resolve(ctx, token, ResolveOptions{})

	require.NoError(t, err)
	assert.Same(t, active, user)
	repo.AssertExpectations(t)
}

func TestResolve_SessionToken_InactiveOrMissingUser(t *testing.T) {
	tests := []struct {
		name string
		user *domain.User
		err  error
	}{
		{name: "inactive user", user: &domain.User{ID: "u10", IsActive: false}},
		{name: "missing user", err: domain.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			verifier := new(MockTokenVerifier)
			repo := new(MockUserRepository)
			resolver := newTestResolver(verifier, repo)

			token, err := resolver.sessions.Issue("u10")
			require.NoError(t, err)

			verifier.On("Verify", ctx, token).Return(nil, domain.ErrInvalidToken).Once()
			if tt.user != nil {
				repo.On("GetUserByID", ctx, "u10").Return(tt.user, nil).Once()
			} else {
				repo.On("GetUserByID", ctx, "u10").Return(nil, tt.err).Once()
			}

			user, err := resolver.Resolve(ctx, token, ResolveOptions{})

			require.Nil(t, user)
			var uerr *domain.UnauthenticatedError
			require.ErrorAs(t, err, &uerr)
			assert.Equal(t, "user not found or inactive", uerr.Reason)
		})
	}
}

func TestResolve_ExpiredSessionToken(t *testing.T) {
	ctx := context.Background()
	verifier := new(MockTokenVerifier)
	repo := new(MockUserRepository)

	// Issue with a negative TTL so the token is already expired.
	expiredSessions := newTestSessionService(-time.Minute)
	resolver := NewAuthResolver(verifier, newTestSessionService(time.Hour), repo, log.NewNop())
	token, err := expiredSessions.Issue("u11")
	require.NoError(t, err)

	verifier.On("Verify", ctx, token).Return(nil, domain.ErrInvalidToken).Once()

	user, err := resolver.Resolve(ctx, token, ResolveOptions{})

	require.Nil(t, user)
	assert.True(t, domain.IsUnauthenticated(err))
	// The embedded user id is never looked up for an expired token.
	repo.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
}

func TestResolve_BothStrategiesFail(t *testing.T) {
	ctx := context.Background()
	verifier := new(MockTokenVerifier)
	repo := new(MockUserRepository)
	resolver := newTestResolver(verifier, repo)

	verifier.On("Verify", ctx, "garbage").Return(nil, domain.ErrInvalidToken).Once()

	user, err := resolver.Resolve(ctx, "garbage", ResolveOptions{})

	require.Nil(t, user)
	var uerr *domain.UnauthenticatedError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "invalid token", uerr.Reason)
	// Both rejection reasons are preserved for diagnostics only.
	assert.Error(t, uerr.IdentityErr)
	assert.Error(t, uerr.SessionErr)
	diag := uerr.Diagnostics()
	assert.Contains(t, diag, "identity_error")
	assert.Contains(t, diag, "session_error")
}

func TestResolve_StoreUnavailableIsNotMasked(t *testing.T) {
	ctx := context.Background()
	verifier := new(MockTokenVerifier)
	repo := new(MockUserRepository)
	resolver := newTestResolver(verifier, repo)

	verifier.On("Verify", ctx, "id-token").Return(&identity.Claims{SubjectID: "fed-5"}, nil).Once()
	repo.On("GetUserByFederatedID", ctx, "fed-5").Return(nil, domain.ErrStoreUnavailable).Once()

	user, err := resolver.Resolve(ctx, "id-token", ResolveOptions{})

	require.Nil(t, user)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.False(t, domain.IsUnauthenticated(err))
}

func TestResolve_RevocationStoreDownIsNotMasked(t *testing.T) {
	ctx := context.Background()
	verifier := new(MockTokenVerifier)
	repo := new(MockUserRepository)

	store := &failingRevocationStore{err: errors.New("redis: connection refused")}
	sessions := NewSessionTokenService(testSecret, time.Hour, store)
	resolver := NewAuthResolver(verifier, sessions, repo, log.NewNop())

	token, err := sessions.Issue("u13")
	require.NoError(t, err)

	verifier.On("Verify", ctx, token).Return(nil, domain.ErrInvalidToken).Once()

	user, err := resolver.Resolve(ctx, token, ResolveOptions{})

	require.Nil(t, user)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.False(t, domain.IsUnauthenticated(err))
	repo.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
}

func TestResolve_TouchLogin(t *testing.T) {
	ctx := context.Background()
	verifier := new(MockTokenVerifier)
	repo := new(MockUserRepository)
	resolver := newTestResolver(verifier, repo)

	existing := &domain.User{ID: "u12", FederatedID: "fed-6", IsActive: true}
	verifier.On("Verify", ctx, "id-token").Return(&identity.Claims{SubjectID: "fed-6"}, nil).Twice()
	repo.On("GetUserByFederatedID", ctx, "fed-6").Return(existing, nil).Twice()
	repo.On("TouchLogin", ctx, "u12").Return(nil).Once()

	// The middleware path never touches the login timestamp.
	_, err := resolver.Resolve(ctx, "id-token", ResolveOptions{})
	require.NoError(t, err)

	// The explicit sync entrypoint does.
	_, err = resolver.Resolve(ctx, "id-token", ResolveOptions{TouchLogin: true})
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

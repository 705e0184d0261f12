package services

import (
	"context"
	"errors"

	"github.com/faural/accounts/domain"
	"github.com/faural/accounts/internal/identity"
	"github.com/faural/accounts/log"
)

// ResolveOptions controls the side effects of a Resolve call.
type ResolveOptions struct {
	// TouchLogin updates the user's last-login timestamp on success. Set
	// by the explicit login/sync entrypoints only; the per-request
	// middleware leaves it off so ordinary API calls do not rewrite the
	// timestamp.
	TouchLogin bool
}

// AuthResolver determines the acting user for a bearer token. It tries
// identity-token verification first and falls back to session-token
// verification. A previously unseen federated identity is provisioned as a
// new user record on the identity path; the session path only looks up
// existing records.
type AuthResolver struct {
	verifier identity.TokenVerifier
	sessions *SessionTokenService
	users    domain.UserRepository
	logger   log.Logger
}

// NewAuthResolver creates an AuthResolver. All dependencies are
// constructed once at process start and shared across request handlers.
func NewAuthResolver(verifier identity.TokenVerifier, sessions *SessionTokenService, users domain.UserRepository, logger log.Logger) *AuthResolver {
	return &AuthResolver{
		verifier: verifier,
		sessions: sessions,
		users:    users,
		logger:   logger,
	}
}

// Resolve maps a bearer token to a user record, or fails with
// *domain.UnauthenticatedError. Each strategy is tried at most once per
// call. Repository transport failures (domain.ErrStoreUnavailable) pass
// through unchanged; they are a server fault, not a credential fault.
func (r *AuthResolver) Resolve(ctx context.Context, bearer string, opts ResolveOptions) (*domain.User, error) {
	if bearer == "" {
		return nil, &domain.UnauthenticatedError{Reason: "no token provided"}
	}

	claims, identityErr := r.verifier.Verify(ctx, bearer)
	if identityErr == nil {
		user, err := r.findOrProvision(ctx, claims)
		if err != nil {
			return nil, err
		}
		return r.finish(ctx, user, opts)
	}

	userID, sessionErr := r.sessions.Verify(ctx, bearer)
	if sessionErr != nil {
		if !errors.Is(sessionErr, domain.ErrInvalidToken) {
			// Typically ErrStoreUnavailable from the revocation check.
			return nil, sessionErr
		}
		uerr := &domain.UnauthenticatedError{
			Reason:      "invalid token",
			IdentityErr: identityErr,
			SessionErr:  sessionErr,
		}
		r.logger.Debug(ctx, "both token strategies rejected bearer token", uerr.Diagnostics())
		return nil, uerr
	}

	user, err := r.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, &domain.UnauthenticatedError{Reason: "user not found or inactive"}
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, &domain.UnauthenticatedError{Reason: "user not found or inactive"}
	}
	return r.finish(ctx, user, opts)
}

// findOrProvision looks up the user for a verified claim set, creating the
// record on first sight of the federated identity. A concurrent create
// losing the uniqueness race is treated the same as "found": the winner's
// record is fetched and returned.
//
// Note: unlike the session path, this path does not consult IsActive. The
// asymmetry is deliberate to keep parity with the observed behavior of the
// identity-token flow.
func (r *AuthResolver) findOrProvision(ctx context.Context, claims *identity.Claims) (*domain.User, error) {
	user, err := r.users.GetUserByFederatedID(ctx, claims.SubjectID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	displayName := claims.DisplayName
	if displayName == "" {
		displayName = claims.Email
	}
	provider := domain.ProviderEmail
	if claims.SignInMethod == identity.SignInMethodGoogle {
		provider = domain.ProviderGoogle
	}

	user = &domain.User{
		FederatedID:   claims.SubjectID,
		Email:         claims.Email,
		DisplayName:   displayName,
		PhotoURL:      claims.PhotoURL,
		EmailVerified: claims.EmailVerified,
		Provider:      provider,
	}
	createErr := r.users.CreateUser(ctx, user)
	if createErr == nil {
		r.logger.Info(ctx, "provisioned user from federated identity", map[string]interface{}{
			"user_id":  user.ID,
			"provider": provider,
		})
		return user, nil
	}
	if errors.Is(createErr, domain.ErrDuplicateUser) {
		// Lost the first-sight race; the winning record is authoritative.
		return r.users.GetUserByFederatedID(ctx, claims.SubjectID)
	}
	return nil, createErr
}

func (r *AuthResolver) finish(ctx context.Context, user *domain.User, opts ResolveOptions) (*domain.User, error) {
	if opts.TouchLogin {
		if err := r.users.TouchLogin(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	return user, nil
}

package identity

import "context"

// SignInMethodGoogle is the provider tag the identity provider reports for
// Google federated sign-ins.
const SignInMethodGoogle = "google.com"

// Claims holds the standardized, verified claim set returned by a
// TokenVerifier.
type Claims struct {
	// SubjectID is the user's unique id at the identity provider.
	SubjectID     string
	Email         string
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
	// SignInMethod is the provider's sign-in method tag, e.g. "google.com"
	// or "password".
	SignInMethod string
}

// TokenVerifier verifies an opaque identity token issued by the external
// identity provider. A single verification attempt is made per call; the
// caller must not retry on failure.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

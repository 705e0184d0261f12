package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/faural/accounts/domain"
)

// FirebaseVerifier implements TokenVerifier using the Firebase Admin SDK.
// It is initialized once at process start and shared read-only across all
// request handlers.
type FirebaseVerifier struct {
	client *fbauth.Client
}

// NewFirebaseVerifier initializes the Firebase app and its auth client.
// credentialsFile may be empty, in which case application default
// credentials are used.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

// Verify checks the identity token and returns its standardized claims.
// Any rejection (malformed, expired, wrong audience) maps to
// domain.ErrInvalidToken.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims := &Claims{
		SubjectID:    decoded.UID,
		SignInMethod: decoded.Firebase.SignInProvider,
	}
	if email, ok := decoded.Claims["email"].(string); ok {
		claims.Email = email
	}
	if name, ok := decoded.Claims["name"].(string); ok {
		claims.DisplayName = name
	}
	if picture, ok := decoded.Claims["picture"].(string); ok {
		claims.PhotoURL = picture
	}
	if verified, ok := decoded.Claims["email_verified"].(bool); ok {
		claims.EmailVerified = verified
	}
	return claims, nil
}

var _ TokenVerifier = (*FirebaseVerifier)(nil)

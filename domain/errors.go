package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken covers malformed, tampered and expired tokens from
	// either verification strategy. Callers cannot distinguish these
	// cases at this layer.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUserNotFound is returned by repository lookups that match no record.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUser is returned when a create would violate the
	// uniqueness of email or federated id.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidCredentials is returned on a failed local login. It does
	// not reveal whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrStoreUnavailable wraps transport-level repository failures. It is
	// surfaced to clients as a server error, never as unauthenticated.
	ErrStoreUnavailable = errors.New("user store unavailable")
)

// UnauthenticatedError is the single failure class the authentication
// resolver surfaces to callers. The underlying rejection reasons are kept
// for internal diagnostics only and must never reach the client.
type UnauthenticatedError struct {
	Reason      string
	IdentityErr error
	SessionErr  error
}

func (e *UnauthenticatedError) Error() string {
	return fmt.Sprintf("unauthenticated: %s", e.Reason)
}

// Diagnostics reports the per-strategy rejection reasons for logging.
func (e *UnauthenticatedError) Diagnostics() map[string]interface{} {
	fields := map[string]interface{}{"reason": e.Reason}
	if e.IdentityErr != nil {
		fields["identity_error"] = e.IdentityErr.Error()
	}
	if e.SessionErr != nil {
		fields["session_error"] = e.SessionErr.Error()
	}
	return fields
}

// IsUnauthenticated reports whether err is an UnauthenticatedError.
func IsUnauthenticated(err error) bool {
	var uerr *UnauthenticatedError
	return errors.As(err, &uerr)
}

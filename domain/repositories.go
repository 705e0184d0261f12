package domain

import "context"

// UserRepository defines persistence for user accounts.
//
// Lookups return ErrUserNotFound when no record matches. CreateUser returns
// ErrDuplicateUser when the email or federated-id uniqueness invariant would
// be violated; concurrent first-sight provisioning relies on this. Any
// transport-level failure is wrapped in ErrStoreUnavailable.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByFederatedID(ctx context.Context, federatedID string) (*User, error)
	// UpdateUser applies the allow-listed fields of update and returns the
	// updated record.
	UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error)
	DeleteUser(ctx context.Context, id string) error
	// TouchLogin sets the last-login timestamp to now.
	TouchLogin(ctx context.Context, id string) error
}

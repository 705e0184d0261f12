package domain

import "context"

type contextKey string

// userContextKey is the key used to store the resolved *User in a context.
const userContextKey contextKey = "auth_user"

// WithUser returns a copy of ctx carrying the resolved user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the resolved user attached by the
// authentication middleware.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok
}

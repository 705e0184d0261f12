package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/faural/accounts/domain"
	"github.com/faural/accounts/log"
	"github.com/faural/accounts/services"
)

// userContextKey is the echo context key the resolved *domain.User is
// stored under.
const userContextKey = "auth_user"

// BearerToken extracts the bearer token from an Authorization header.
// Returns an empty string when the header is absent or not a Bearer scheme.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// RequireAuth returns echo middleware that resolves the request's bearer
// token and attaches the acting user to the context. Authentication
// failures produce a uniform 401 body; which strategy failed is logged,
// never returned. Directory unavailability maps to 500.
func RequireAuth(resolver *services.AuthResolver, logger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			user, err := resolver.Resolve(ctx, BearerToken(c.Request()), services.ResolveOptions{})
			if err != nil {
				var uerr *domain.UnauthenticatedError
				if errors.As(err, &uerr) {
					logger.Debug(ctx, "request rejected as unauthenticated", uerr.Diagnostics())
					return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
				}
				if errors.Is(err, domain.ErrStoreUnavailable) {
					logger.Error(ctx, "user directory unavailable during authentication", err)
					return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Service unavailable"})
				}
				logger.Error(ctx, "authentication failed", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Authentication failed"})
			}

			c.Set(userContextKey, user)
			c.SetRequest(c.Request().WithContext(domain.WithUser(ctx, user)))
			return next(c)
		}
	}
}

// UserFrom retrieves the user attached by RequireAuth.
func UserFrom(c echo.Context) (*domain.User, bool) {
	user, ok := c.Get(userContextKey).(*domain.User)
	return user, ok
}

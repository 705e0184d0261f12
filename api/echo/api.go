package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/faural/accounts/domain"
	"github.com/faural/accounts/log"
	"github.com/faural/accounts/middleware"
	"github.com/faural/accounts/services"
)

// AccountsAPI struct to hold dependencies.
type AccountsAPI struct {
	resolver *services.AuthResolver
	users    *services.UserService
	sessions *services.SessionTokenService
	logger   log.Logger

	// healthCheck reports backing-store connectivity for /health.
	healthCheck func(c echo.Context) error
}

// NewAccountsAPI initializes the accounts API.
func NewAccountsAPI(
	resolver *services.AuthResolver,
	users *services.UserService,
	sessions *services.SessionTokenService,
	logger log.Logger,
	healthCheck func(c echo.Context) error,
) *AccountsAPI {
	return &AccountsAPI{
		resolver:    resolver,
		users:       users,
		sessions:    sessions,
		logger:      logger,
		healthCheck: healthCheck,
	}
}

// RegisterRoutes registers the account routes.
func (a *AccountsAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", a.HealthHandler)

	authed := middleware.RequireAuth(a.resolver, a.logger)

	auth := e.Group("/auth")
	auth.POST("/register", a.RegisterHandler)
	auth.POST("/login", a.LoginHandler)
	auth.POST("/firebase", a.FirebaseSyncHandler)
	auth.POST("/logout", a.LogoutHandler)
	auth.GET("/profile", a.ProfileHandler, authed)

	users := e.Group("/users", authed)
	users.GET("/profile", a.ProfileHandler)
	users.PUT("/profile", a.UpdateProfileHandler)
	users.DELETE("/account", a.DeleteAccountHandler)
	users.GET("/stats", a.StatsHandler)
}

// RegisterHandler creates a local-credential account.
func (a *AccountsAPI) RegisterHandler(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{"Invalid request body"})
	}
	if errs := req.validate(); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, validationResponse{"Validation failed", errs})
	}

	ctx := c.Request().Context()
	user, token, err := a.users.Register(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return c.JSON(http.StatusBadRequest, messageResponse{"User already exists"})
		}
		a.logger.Error(ctx, "registration failed", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{"Registration failed"})
	}

	return c.JSON(http.StatusCreated, authResponse{
		Message: "User registered successfully",
		User:    user,
		Token:   token,
	})
}

// LoginHandler verifies a local credential and issues a session token.
func (a *AccountsAPI) LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{"Invalid request body"})
	}
	if errs := req.validate(); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, validationResponse{"Validation failed", errs})
	}

	ctx := c.Request().Context()
	user, token, err := a.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, messageResponse{"Invalid credentials"})
		}
		a.logger.Error(ctx, "login failed", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{"Login failed"})
	}

	return c.JSON(http.StatusOK, authResponse{
		Message: "Login successful",
		User:    user,
		Token:   token,
	})
}

// FirebaseSyncHandler verifies an identity token, provisioning the user on
// first sight, records the login and issues an internal session token.
func (a *AccountsAPI) FirebaseSyncHandler(c echo.Context) error {
	var req firebaseSyncRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{"Invalid request body"})
	}
	if req.IDToken == "" {
		return c.JSON(http.StatusBadRequest, messageResponse{"Firebase ID token required"})
	}

	ctx := c.Request().Context()
	user, err := a.resolver.Resolve(ctx, req.IDToken, services.ResolveOptions{TouchLogin: true})
	if err != nil {
		var uerr *domain.UnauthenticatedError
		if errors.As(err, &uerr) {
			a.logger.Debug(ctx, "firebase sync rejected", uerr.Diagnostics())
			return c.JSON(http.StatusUnauthorized, messageResponse{"Firebase authentication failed"})
		}
		a.logger.Error(ctx, "firebase sync failed", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{"Firebase authentication failed"})
	}

	token, err := a.sessions.Issue(user.ID)
	if err != nil {
		a.logger.Error(ctx, "session token issuance failed", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{"Firebase authentication failed"})
	}

	return c.JSON(http.StatusOK, authResponse{
		Message: "Firebase authentication successful",
		User:    user,
		Token:   token,
	})
}

// LogoutHandler revokes the presented session token. Identity tokens are
// managed by the identity provider and cannot be revoked here.
func (a *AccountsAPI) LogoutHandler(c echo.Context) error {
	ctx := c.Request().Context()
	if token := middleware.BearerToken(c.Request()); token != "" {
		if err := a.sessions.Revoke(ctx, token); err != nil {
			a.logger.Warn(ctx, "session token revocation failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, messageResponse{"Logout successful"})
}

// ProfileHandler returns the authenticated user's profile.
func (a *AccountsAPI) ProfileHandler(c echo.Context) error {
	user, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, messageResponse{"Invalid token"})
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

// UpdateProfileHandler applies an allow-listed profile update.
func (a *AccountsAPI) UpdateProfileHandler(c echo.Context) error {
	user, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, messageResponse{"Invalid token"})
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{"Invalid request body"})
	}
	if errs := req.validate(); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, validationResponse{"Validation failed", errs})
	}

	ctx := c.Request().Context()
	updated, err := a.users.UpdateProfile(ctx, user.ID, req.toUpdate())
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, messageResponse{"User not found"})
		}
		a.logger.Error(ctx, "profile update failed", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{"Failed to update profile"})
	}

	return c.JSON(http.StatusOK, userResponse{
		Message: "Profile updated successfully",
		User:    updated,
	})
}

// DeleteAccountHandler removes the authenticated user's record. The
// identity provider's own account is not cascaded.
func (a *AccountsAPI) DeleteAccountHandler(c echo.Context) error {
	user, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, messageResponse{"Invalid token"})
	}

	ctx := c.Request().Context()
	if err := a.users.DeleteAccount(ctx, user.ID); err != nil {
		a.logger.Error(ctx, "account deletion failed", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{"Failed to delete account"})
	}
	return c.JSON(http.StatusOK, messageResponse{"Account deleted successfully"})
}

// StatsHandler returns derived account statistics.
func (a *AccountsAPI) StatsHandler(c echo.Context) error {
	user, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, messageResponse{"Invalid token"})
	}
	return c.JSON(http.StatusOK, statsResponse{Stats: a.users.Stats(user)})
}

// HealthHandler reports process and backing-store health.
func (a *AccountsAPI) HealthHandler(c echo.Context) error {
	if a.healthCheck != nil {
		if err := a.healthCheck(c); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

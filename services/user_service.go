package services

import (
	"context"
	"errors"
	"time"

	"github.com/faural/accounts/domain"
	"github.com/faural/accounts/log"
)

// PasswordHasher hashes and verifies local credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) error
}

// UserService implements the local-credential account operations:
// registration, login, profile updates and account deletion.
type UserService struct {
	users    domain.UserRepository
	hasher   PasswordHasher
	sessions *SessionTokenService
	logger   log.Logger
}

// NewUserService creates a UserService.
func NewUserService(users domain.UserRepository, hasher PasswordHasher, sessions *SessionTokenService, logger log.Logger) *UserService {
	return &UserService{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		logger:   logger,
	}
}

// Register creates a local-credential account and issues a session token.
// Returns domain.ErrDuplicateUser when the email is already taken.
func (s *UserService) Register(ctx context.Context, email, password, displayName string) (*domain.User, string, error) {
	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, "", domain.ErrDuplicateUser
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		Provider:     domain.ProviderEmail,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info(ctx, "user registered", map[string]interface{}{"user_id": user.ID})
	return user, token, nil
}

// Login verifies a local credential, records the login and issues a
// session token. Fails with domain.ErrInvalidCredentials without revealing
// whether the email or the password was wrong.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if user.PasswordHash == "" || s.hasher.Verify(user.PasswordHash, password) != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	if err := s.users.TouchLogin(ctx, user.ID); err != nil {
		return nil, "", err
	}

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// UpdateProfile applies an allow-listed profile update and returns the
// updated record.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update domain.UserUpdate) (*domain.User, error) {
	return s.users.UpdateUser(ctx, userID, update)
}

// DeleteAccount removes the user record. The identity provider's own
// record is left untouched.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.logger.Info(ctx, "account deleted", map[string]interface{}{"user_id": userID})
	return nil
}

// AccountStats is a small derived view of an account.
type AccountStats struct {
	AccountAgeDays  int        `json:"accountAgeDays"`
	Provider        string     `json:"provider"`
	EmailVerified   bool       `json:"emailVerified"`
	LastLoginAt     *time.Time `json:"lastLogin,omitempty"`
	ProfileComplete bool       `json:"profileComplete"`
}

// Stats computes account statistics for a resolved user.
func (s *UserService) Stats(user *domain.User) AccountStats {
	return AccountStats{
		AccountAgeDays:  int(time.Since(user.CreatedAt).Hours() / 24),
		Provider:        user.Provider,
		EmailVerified:   user.EmailVerified,
		LastLoginAt:     user.LastLoginAt,
		ProfileComplete: user.Profile.Bio != "" && user.Profile.Location != "",
	}
}

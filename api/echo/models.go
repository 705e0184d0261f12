package echo

import (
	"net/url"
	"strings"
	"time"

	"github.com/faural/accounts/domain"
	"github.com/faural/accounts/services"
)

type messageResponse struct {
	Message string `json:"message"`
}

type validationResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

type authResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
	Token   string       `json:"token"`
}

type userResponse struct {
	Message string       `json:"message,omitempty"`
	User    *domain.User `json:"user"`
}

type statsResponse struct {
	Stats services.AccountStats `json:"stats"`
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (r *registerRequest) validate() []string {
	var errs []string
	if !validEmail(r.Email) {
		errs = append(errs, "email must be a valid email address")
	}
	if len(r.Password) < 6 {
		errs = append(errs, "password must be at least 6 characters")
	}
	if strings.TrimSpace(r.DisplayName) == "" {
		errs = append(errs, "display name is required")
	}
	return errs
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginRequest) validate() []string {
	var errs []string
	if !validEmail(r.Email) {
		errs = append(errs, "email must be a valid email address")
	}
	if r.Password == "" {
		errs = append(errs, "password is required")
	}
	return errs
}

type firebaseSyncRequest struct {
	IDToken string `json:"idToken"`
}

type updateProfileRequest struct {
	DisplayName *string         `json:"displayName"`
	Profile     *domain.Profile `json:"profile"`
}

func (r *updateProfileRequest) validate() []string {
	var errs []string
	if r.DisplayName != nil && strings.TrimSpace(*r.DisplayName) == "" {
		errs = append(errs, "display name cannot be empty")
	}
	if p := r.Profile; p != nil {
		if len(p.Bio) > 500 {
			errs = append(errs, "bio must be less than 500 characters")
		}
		if len(p.Location) > 100 {
			errs = append(errs, "location must be less than 100 characters")
		}
		if p.Website != "" && !validURL(p.Website) {
			errs = append(errs, "website must be a valid URL")
		}
		if p.DateOfBirth != "" {
			if _, err := time.Parse("2006-01-02", p.DateOfBirth); err != nil {
				errs = append(errs, "date of birth must be a valid date")
			}
		}
	}
	return errs
}

func (r *updateProfileRequest) toUpdate() domain.UserUpdate {
	return domain.UserUpdate{
		DisplayName: r.DisplayName,
		Profile:     r.Profile,
	}
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t")
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

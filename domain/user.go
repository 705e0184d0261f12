package domain

import "time"

// Provider tags recorded on a user account. Federated sign-ins through
// Google map to ProviderGoogle, everything else (including local
// email/password registration) maps to ProviderEmail.
const (
	ProviderGoogle = "google"
	ProviderEmail  = "email"
)

// Profile holds the free-form, user-editable profile fields. Updates merge
// key-by-key with the stored value rather than replacing it wholesale.
type Profile struct {
	Bio         string `bson:"bio,omitempty" json:"bio,omitempty"`
	Location    string `bson:"location,omitempty" json:"location,omitempty"`
	Website     string `bson:"website,omitempty" json:"website,omitempty"`
	DateOfBirth string `bson:"date_of_birth,omitempty" json:"dateOfBirth,omitempty"`
}

// User represents a user account. An account is keyed either by a local
// credential (Email + PasswordHash) or by a federated identity
// (FederatedID, the subject id at the external identity provider).
// FederatedID is unique when present; PasswordHash is set only through
// local registration, never by federated provisioning.
type User struct {
	ID            string     `bson:"_id,omitempty" json:"id"`
	FederatedID   string     `bson:"federated_id,omitempty" json:"-"`
	Email         string     `bson:"email" json:"email"`
	PasswordHash  string     `bson:"password_hash,omitempty" json:"-"`
	DisplayName   string     `bson:"display_name,omitempty" json:"displayName,omitempty"`
	PhotoURL      string     `bson:"photo_url,omitempty" json:"photoURL,omitempty"`
	EmailVerified bool       `bson:"email_verified" json:"emailVerified"`
	Provider      string     `bson:"provider" json:"provider"`
	IsActive      bool       `bson:"is_active" json:"-"`
	Profile       Profile    `bson:"profile,omitempty" json:"profile,omitempty"`
	LastLoginAt   *time.Time `bson:"last_login_at,omitempty" json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updatedAt"`
}

// UserUpdate carries the allow-listed fields of a profile update. Nil
// fields are left untouched. Profile is merged one level deep: only its
// non-empty keys overwrite the stored keys.
type UserUpdate struct {
	DisplayName *string
	Profile     *Profile
}

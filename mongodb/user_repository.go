package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/faural/accounts/domain"
)

// UserRepository implements domain.UserRepository on MongoDB.
type UserRepository struct {
	db    *mongo.Database
	users *mongo.Collection
}

// NewUserRepository creates a MongoDB-backed user repository and ensures
// its indexes.
func NewUserRepository(ctx context.Context, db *mongo.Database) (domain.UserRepository, error) {
	repo := &UserRepository{
		db:    db,
		users: db.Collection(UsersCollection),
	}
	if err := repo.createIndexes(ctx); err != nil {
		// Index creation commonly fails when compatible indexes already
		// exist; not fatal for startup.
		log.Warn().Err(err).Msg("Failed to create user indexes")
	}
	return repo, nil
}

func (r *UserRepository) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
		{
			// Sparse: only federated accounts carry this field. Uniqueness
			// here is what makes concurrent first-sight provisioning safe.
			Keys:    bson.D{{Key: "federated_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}

	_, err := r.users.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes for users collection: %w", err)
	}
	return nil
}

// CreateUser inserts a new user. Returns domain.ErrDuplicateUser when the
// email or federated-id uniqueness invariant would be violated.
func (r *UserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = NewObjectID()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Provider == "" {
		user.Provider = domain.ProviderEmail
	}
	user.IsActive = true

	_, err := r.users.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateUser
		}
		log.Error().Err(err).Str("email", user.Email).Msg("Error creating user in MongoDB")
		return storeError(err)
	}
	return nil
}

// GetUserByID retrieves a user by its internal id.
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetUserByEmail retrieves a user by email.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetUserByFederatedID retrieves a user by the external subject id assigned
// by the identity provider.
func (r *UserRepository) GetUserByFederatedID(ctx context.Context, federatedID string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"federated_id": federatedID})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	err := r.users.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		log.Error().Err(err).Interface("filter", filter).Msg("Error getting user from MongoDB")
		return nil, storeError(err)
	}
	return &user, nil
}

// UpdateUser applies the allow-listed fields of update and returns the
// updated record. Profile keys are merged individually so that keys absent
// from the update keep their stored values.
func (r *UserRepository) UpdateUser(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	set := updateDocument(update, time.Now().UTC())

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user domain.User
	err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		log.Error().Err(err).Str("userID", id).Msg("Error updating user in MongoDB")
		return nil, storeError(err)
	}
	return &user, nil
}

// updateDocument builds the $set document for an allow-listed update.
func updateDocument(update domain.UserUpdate, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if update.DisplayName != nil {
		set["display_name"] = *update.DisplayName
	}
	if p := update.Profile; p != nil {
		if p.Bio != "" {
			set["profile.bio"] = p.Bio
		}
		if p.Location != "" {
			set["profile.location"] = p.Location
		}
		if p.Website != "" {
			set["profile.website"] = p.Website
		}
		if p.DateOfBirth != "" {
			set["profile.date_of_birth"] = p.DateOfBirth
		}
	}
	return set
}

// DeleteUser removes a user record. Irreversible; the identity provider's
// own record is not touched.
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	result, err := r.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Error deleting user from MongoDB")
		return storeError(err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// TouchLogin sets the last-login timestamp to now.
func (r *UserRepository) TouchLogin(ctx context.Context, id string) error {
	now := time.Now().UTC()
	result, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"last_login_at": now, "updated_at": now},
	})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Error updating last login in MongoDB")
		return storeError(err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func storeError(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

// Ensure interface compliance
var _ domain.UserRepository = (*UserRepository)(nil)

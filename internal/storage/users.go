package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dennisdiepolder/callscope/internal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Users stores user profiles in the system database
type Users struct {
	coll *mongo.Collection
}

// NewUsers creates a user store on the given system database
func NewUsers(db *mongo.Database) *Users {
	return &Users{coll: db.Collection(UsersCollection)}
}

// NormalizeEmail lowercases and trims an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a new user. The e-mail must be unique.
func (s *Users) Create(ctx context.Context, user *types.UserProfile) error {
	user.Email = NormalizeEmail(user.Email)
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := s.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	return nil
}

// ByEmail returns the user with the given address
func (s *Users) ByEmail(ctx context.Context, email string) (types.UserProfile, error) {
	return s.findOne(ctx, bson.M{"email": NormalizeEmail(email)})
}

// ByID returns the user with the given hex id
func (s *Users) ByID(ctx context.Context, id string) (types.UserProfile, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.UserProfile{}, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

// MarkVerified flags the user's e-mail as confirmed
func (s *Users) MarkVerified(ctx context.Context, id primitive.ObjectID) error {
	return s.set(ctx, id, bson.M{"verified": true})
}

// SetPassword replaces the stored password hash
func (s *Users) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return s.set(ctx, id, bson.M{"password_hash": hash})
}

func (s *Users) findOne(ctx context.Context, filter bson.M) (types.UserProfile, error) {
	var user types.UserProfile
	err := s.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return user, ErrNotFound
	}
	if err != nil {
		return user, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *Users) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

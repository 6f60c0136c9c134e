package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/normalize"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateToken is returned when a user with the same token identifier exists.
	ErrDuplicateToken = fmt.Errorf("%w: user already exists", apperr.ErrConflict)
	errTokenNeeded    = fmt.Errorf("%w: token identifier is required", apperr.ErrInvalidInput)
	errBadRole        = fmt.Errorf("%w: role must be member, admin or super-admin", apperr.ErrInvalidInput)
)

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: user not found", apperr.ErrNotFound)
	}
	return err
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetByToken looks up a user by the identity provider's token identifier.
func (s *Store) GetByToken(ctx context.Context, tokenIdentifier string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"token_identifier": tokenIdentifier}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Create inserts a new user after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u, err := Prepare(u)
	if err != nil {
		return models.User{}, err
	}
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateToken
		}
		return models.User{}, err
	}
	return u, nil
}

// Prepare normalizes a new user record and fills defaults. Both backends
// call it before inserting.
func Prepare(u models.User) (models.User, error) {
	if u.TokenIdentifier == "" {
		return models.User{}, errTokenNeeded
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	u.Email = normalize.Email(u.Email)
	u.TenantID = normalize.TenantID(u.TenantID)
	u.Role = normalize.Role(u.Role)
	if u.Role == "" {
		u.Role = models.RoleMember
	}
	if !models.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}
	if u.Status == "" {
		u.Status = models.UserStatusActive
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.LastLoginAt.IsZero() {
		u.LastLoginAt = u.CreatedAt
	}
	return u, nil
}

// Update applies profile changes to the user with the given token and bumps
// last_login_at. Returns the updated record.
func (s *Store) Update(ctx context.Context, tokenIdentifier string, upd models.UserUpdate, now time.Time) (*models.User, error) {
	set := UpdateSet(upd, now)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"token_identifier": tokenIdentifier}, bson.M{"$set": set}, opts).Decode(&u)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// UpdateSet returns the normalized field changes for upd.
func UpdateSet(upd models.UserUpdate, now time.Time) bson.M {
	set := bson.M{"last_login_at": now}
	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if upd.Email != nil {
		set["email"] = normalize.Email(*upd.Email)
	}
	if upd.Image != nil {
		set["image"] = *upd.Image
	}
	return set
}

// DeleteByToken removes the user with the given token identifier.
func (s *Store) DeleteByToken(ctx context.Context, tokenIdentifier string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOneAndDelete(ctx, bson.M{"token_identifier": tokenIdentifier}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// TouchLogin sets last_login_at.
func (s *Store) TouchLogin(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_login_at": now}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: user not found", apperr.ErrNotFound)
	}
	return nil
}

// SetRole changes a user's role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	if !models.IsValidRole(role) {
		return errBadRole
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: user not found", apperr.ErrNotFound)
	}
	return nil
}

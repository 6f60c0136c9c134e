// Package identity maps external identity tokens to stored users and keeps
// those users in sync with the identity provider.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/policy/filepolicy"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/normalize"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserGetter loads users by id. Every service re-loads its acting user
// through it before a write.
type UserGetter interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// UserStore is the persistence the service needs.
type UserStore interface {
	UserGetter
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByToken(ctx context.Context, tokenIdentifier string) (*models.User, error)
	Update(ctx context.Context, tokenIdentifier string, upd models.UserUpdate, now time.Time) (*models.User, error)
	DeleteByToken(ctx context.Context, tokenIdentifier string) (*models.User, error)
	TouchLogin(ctx context.Context, id primitive.ObjectID, now time.Time) error
	SetRole(ctx context.Context, id primitive.ObjectID, role string) error
}

// DefaultPermissions are granted to users created by identity sync.
var DefaultPermissions = []string{"read", "upload"}

// UnknownProfile is returned for users that cannot be found.
var UnknownProfile = models.UserProfile{Name: "Unknown", Role: "N/A", Status: "inactive"}

type Service struct {
	Users UserStore
	Log   *zap.Logger
	Clock func() time.Time
}

func New(users UserStore, logger *zap.Logger) *Service {
	return &Service{Users: users, Log: logger, Clock: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock()
}

var errSignedOut = fmt.Errorf("%w: sign in required", apperr.ErrUnauthenticated)

// Resolve returns the active user behind tokenIdentifier.
func (s *Service) Resolve(ctx context.Context, tokenIdentifier string) (*models.User, error) {
	if strings.TrimSpace(tokenIdentifier) == "" {
		return nil, errSignedOut
	}
	u, err := s.Users.GetByToken(ctx, tokenIdentifier)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown identity", apperr.ErrUnauthenticated)
		}
		return nil, err
	}
	if !u.IsActive() {
		return nil, fmt.Errorf("%w: account disabled", apperr.ErrUnauthenticated)
	}
	return u, nil
}

// FetchUser implements auth.UserFetcher. Unknown, disabled or failing
// lookups yield nil so the request continues signed out.
func (s *Service) FetchUser(ctx context.Context, tokenIdentifier string) *auth.SessionUser {
	u, err := s.Resolve(ctx, tokenIdentifier)
	if err != nil {
		if !errors.Is(err, apperr.ErrUnauthenticated) && s.Log != nil {
			s.Log.Warn("identity lookup failed", zap.Error(err))
		}
		return nil
	}
	return &auth.SessionUser{
		ID:              u.ID.Hex(),
		TokenIdentifier: u.TokenIdentifier,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		TenantID:        u.TenantID,
	}
}

// CreateInput carries a user pushed by the identity provider.
type CreateInput struct {
	TokenIdentifier string
	Name            string
	Email           string
	Image           string
	TenantID        string
}

// Create stores a new member. A second user with the same token fails with
// apperr.ErrConflict.
func (s *Service) Create(ctx context.Context, in CreateInput) (models.User, error) {
	now := s.now()
	return s.Users.Create(ctx, models.User{
		TokenIdentifier: strings.TrimSpace(in.TokenIdentifier),
		Name:            in.Name,
		Email:           in.Email,
		Image:           in.Image,
		TenantID:        in.TenantID,
		Role:            models.RoleMember,
		Status:          models.UserStatusActive,
		Permissions:     append([]string(nil), DefaultPermissions...),
		CreatedAt:       now,
		LastLoginAt:     now,
	})
}

// Update applies profile changes and bumps last_login_at.
func (s *Service) Update(ctx context.Context, tokenIdentifier string, upd models.UserUpdate) (*models.User, error) {
	return s.Users.Update(ctx, tokenIdentifier, upd, s.now())
}

// Delete removes the user behind tokenIdentifier. Files they own are left
// in place.
func (s *Service) Delete(ctx context.Context, tokenIdentifier string) (*models.User, error) {
	return s.Users.DeleteByToken(ctx, tokenIdentifier)
}

// TouchLogin records a sign-in.
func (s *Service) TouchLogin(ctx context.Context, id primitive.ObjectID) error {
	return s.Users.TouchLogin(ctx, id, s.now())
}

// GetMe returns the signed-in user, or nil when signed out or unknown.
func (s *Service) GetMe(ctx context.Context, tokenIdentifier string) (*models.User, error) {
	u, err := s.Resolve(ctx, tokenIdentifier)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthenticated) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// GetProfile returns the public profile of a user, or UnknownProfile.
func (s *Service) GetProfile(ctx context.Context, id primitive.ObjectID) (models.UserProfile, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return UnknownProfile, nil
		}
		return models.UserProfile{}, err
	}
	return models.UserProfile{
		Name:   u.Name,
		Image:  u.Image,
		Email:  u.Email,
		Role:   u.Role,
		Status: u.Status,
	}, nil
}

// SetRole changes target's role on behalf of actorID, who must be a
// super-admin. It returns the target as it was before the change.
func (s *Service) SetRole(ctx context.Context, actorID, targetID primitive.ObjectID, role string) (*models.User, error) {
	actor, err := LoadActor(ctx, s.Users, actorID)
	if err != nil {
		return nil, err
	}
	if !filepolicy.CanManageRoles(*actor) {
		return nil, fmt.Errorf("%w: only super-admins can change roles", apperr.ErrForbidden)
	}
	return s.AssignRole(ctx, targetID, role)
}

// AssignRole changes a role without an acting user. Used by the operator
// CLI.
func (s *Service) AssignRole(ctx context.Context, targetID primitive.ObjectID, role string) (*models.User, error) {
	role = normalize.Role(role)
	if !models.IsValidRole(role) {
		return nil, fmt.Errorf("%w: role must be member, admin or super-admin", apperr.ErrInvalidInput)
	}
	before, err := s.Users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.Users.SetRole(ctx, targetID, role); err != nil {
		return nil, err
	}
	return before, nil
}

// LoadActor re-loads the acting user. A missing or disabled user is
// unauthenticated.
func LoadActor(ctx context.Context, users UserGetter, id primitive.ObjectID) (*models.User, error) {
	if id.IsZero() {
		return nil, errSignedOut
	}
	u, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: acting user not found", apperr.ErrUnauthenticated)
		}
		return nil, err
	}
	if !u.IsActive() {
		return nil, fmt.Errorf("%w: account disabled", apperr.ErrUnauthenticated)
	}
	return u, nil
}

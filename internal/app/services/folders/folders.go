// Package folders manages each user's folder tree.
package folders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/stratadrive/internal/app/policy/filepolicy"
	"github.com/dalemusser/stratadrive/internal/app/services/identity"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxDepth bounds the ancestor walk. Chains longer than this are treated as
// corrupt.
const MaxDepth = 256

// FolderStore is the folder persistence.
type FolderStore interface {
	Create(ctx context.Context, f models.Folder) (models.Folder, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Folder, error)
	List(ctx context.Context, q models.FolderQuery) ([]models.Folder, error)
	SetShouldDelete(ctx context.Context, id primitive.ObjectID, flag bool) error
	// MoveUnder sets the parent and rejects a cycle in the same atomic step.
	MoveUnder(ctx context.Context, id primitive.ObjectID, parent *primitive.ObjectID, maxDepth int) error
}

type Service struct {
	Users   identity.UserGetter
	Folders FolderStore
	Log     *zap.Logger
}

func New(users identity.UserGetter, folders FolderStore, logger *zap.Logger) *Service {
	return &Service{Users: users, Folders: folders, Log: logger}
}

var errNotOwner = fmt.Errorf("%w: only the owner can change this folder", apperr.ErrForbidden)

// liveOwnedParent loads parentID and requires it to be a live folder owned
// by actor.
func (s *Service) liveOwnedParent(ctx context.Context, actor models.User, parentID primitive.ObjectID) (*models.Folder, error) {
	parent, err := s.Folders.GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: parent folder not found", apperr.ErrNotFound)
		}
		return nil, err
	}
	if !filepolicy.IsOwner(actor, parent.UserID) {
		return nil, fmt.Errorf("%w: parent folder belongs to another user", apperr.ErrForbidden)
	}
	if parent.ShouldDelete {
		return nil, fmt.Errorf("%w: parent folder is deleted", apperr.ErrInvalidTarget)
	}
	return parent, nil
}

// Create adds a folder for actorID, at the root when parentID is nil.
func (s *Service) Create(ctx context.Context, actorID primitive.ObjectID, name string, parentID *primitive.ObjectID) (models.Folder, error) {
	actor, err := identity.LoadActor(ctx, s.Users, actorID)
	if err != nil {
		return models.Folder{}, err
	}
	if parentID != nil {
		if _, err := s.liveOwnedParent(ctx, *actor, *parentID); err != nil {
			return models.Folder{}, err
		}
	}
	return s.Folders.Create(ctx, models.Folder{
		Name:     htmlsanitize.PlainText(name),
		UserID:   actor.ID,
		ParentID: parentID,
		TenantID: actor.TenantID,
	})
}

// Get returns a folder visible to actorID.
func (s *Service) Get(ctx context.Context, actorID, folderID primitive.ObjectID) (models.Folder, error) {
	actor, err := identity.LoadActor(ctx, s.Users, actorID)
	if err != nil {
		return models.Folder{}, err
	}
	f, err := s.Folders.GetByID(ctx, folderID)
	if err != nil {
		return models.Folder{}, err
	}
	if !filepolicy.IsOwner(*actor, f.UserID) && !filepolicy.CanActInTenant(*actor, f.TenantID) {
		return models.Folder{}, fmt.Errorf("%w: not allowed to view this folder", apperr.ErrForbidden)
	}
	return *f, nil
}

// Filter selects the caller's folders.
type Filter struct {
	Query       string
	ParentID    *primitive.ObjectID
	RootOnly    bool
	DeletedOnly bool
}

// List returns the caller's folders sorted by name.
func (s *Service) List(ctx context.Context, actorID primitive.ObjectID, f Filter) ([]models.Folder, error) {
	actor, err := identity.LoadActor(ctx, s.Users, actorID)
	if err != nil {
		return nil, err
	}
	return s.Folders.List(ctx, models.FolderQuery{
		OwnerID:      actor.ID,
		ParentID:     f.ParentID,
		RootOnly:     f.RootOnly,
		NameContains: text.Fold(strings.TrimSpace(f.Query)),
		Deleted:      f.DeletedOnly,
	})
}

func (s *Service) owned(ctx context.Context, actorID, folderID primitive.ObjectID) (*models.User, *models.Folder, error) {
	actor, err := identity.LoadActor(ctx, s.Users, actorID)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.Folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, nil, err
	}
	if !filepolicy.IsOwner(*actor, f.UserID) {
		return nil, nil, errNotOwner
	}
	return actor, f, nil
}

// Delete soft-deletes a folder. Contents are left as they are.
func (s *Service) Delete(ctx context.Context, actorID, folderID primitive.ObjectID) (models.Folder, error) {
	return s.setDeleted(ctx, actorID, folderID, true)
}

// Restore clears a soft delete.
func (s *Service) Restore(ctx context.Context, actorID, folderID primitive.ObjectID) (models.Folder, error) {
	return s.setDeleted(ctx, actorID, folderID, false)
}

func (s *Service) setDeleted(ctx context.Context, actorID, folderID primitive.ObjectID, flag bool) (models.Folder, error) {
	_, f, err := s.owned(ctx, actorID, folderID)
	if err != nil {
		return models.Folder{}, err
	}
	if f.ShouldDelete == flag {
		return *f, nil
	}
	if err := s.Folders.SetShouldDelete(ctx, folderID, flag); err != nil {
		return models.Folder{}, err
	}
	f.ShouldDelete = flag
	return *f, nil
}

// Move places a folder under newParent, or at the root when newParent is
// nil. Moving a folder into itself or one of its descendants fails with
// apperr.ErrInvalidTarget.
func (s *Service) Move(ctx context.Context, actorID, folderID primitive.ObjectID, newParent *primitive.ObjectID) (models.Folder, error) {
	actor, f, err := s.owned(ctx, actorID, folderID)
	if err != nil {
		return models.Folder{}, err
	}
	if newParent != nil {
		if *newParent == folderID {
			return models.Folder{}, fmt.Errorf("%w: a folder cannot contain itself", apperr.ErrInvalidTarget)
		}
		if _, err := s.liveOwnedParent(ctx, *actor, *newParent); err != nil {
			return models.Folder{}, err
		}
	}
	if err := s.Folders.MoveUnder(ctx, folderID, newParent, MaxDepth); err != nil {
		return models.Folder{}, err
	}
	f.ParentID = newParent
	return *f, nil
}

// Package files implements the file lifecycle: upload, soft delete and
// restore, favorites, listing and permanent removal.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/policy/filepolicy"
	"github.com/dalemusser/stratadrive/internal/app/services/identity"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/blobstore"
	"github.com/dalemusser/stratadrive/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// FileStore is the file metadata persistence.
type FileStore interface {
	Create(ctx context.Context, f models.File) (models.File, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.File, error)
	GetByStorageID(ctx context.Context, storageID string) (*models.File, error)
	List(ctx context.Context, q models.FileQuery) ([]models.File, error)
	SetShouldDelete(ctx context.Context, id primitive.ObjectID, flag bool, now time.Time) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// FavoriteStore is the favorites persistence.
type FavoriteStore interface {
	Toggle(ctx context.Context, userID, fileID primitive.ObjectID, now time.Time) (bool, error)
	ListFileIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	DeleteForFile(ctx context.Context, fileID primitive.ObjectID) (int64, error)
}

// FolderGetter loads folders for placement checks.
type FolderGetter interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Folder, error)
}

// ApprovalPurger removes a file's approval history.
type ApprovalPurger interface {
	DeleteApprovalRecords(ctx context.Context, fileID, adminID primitive.ObjectID) (int64, error)
}

// FileView is a file with a URL for its blob.
type FileView struct {
	models.File
	URL string `json:"url"`
}

type Service struct {
	Users     identity.UserGetter
	Files     FileStore
	Favorites FavoriteStore
	Folders   FolderGetter
	Blobs     blobstore.Store
	Approvals ApprovalPurger
	Log       *zap.Logger
	Clock     func() time.Time
}

func New(users identity.UserGetter, files FileStore, favorites FavoriteStore, folders FolderGetter,
	blobs blobstore.Store, approvals ApprovalPurger, logger *zap.Logger) *Service {
	return &Service{
		Users:     users,
		Files:     files,
		Favorites: favorites,
		Folders:   folders,
		Blobs:     blobs,
		Approvals: approvals,
		Log:       logger,
		Clock:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock()
}

var errNotOwner = fmt.Errorf("%w: only the owner can change this file", apperr.ErrForbidden)

// TypeFor derives the file type from a content type, falling back to the
// file name's extension.
func TypeFor(filename, contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case strings.HasPrefix(ct, "image/"):
		return models.FileTypeImage, nil
	case ct == "text/csv", ct == "application/csv":
		return models.FileTypeCSV, nil
	case ct == "application/pdf":
		return models.FileTypePDF, nil
	}
	switch strings.ToLower(path.Ext(filename)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".bmp":
		return models.FileTypeImage, nil
	case ".csv":
		return models.FileTypeCSV, nil
	case ".pdf":
		return models.FileTypePDF, nil
	}
	return "", fmt.Errorf("%w: unsupported file type", apperr.ErrInvalidInput)
}

// CreateInput registers metadata for a blob that is already stored.
type CreateInput struct {
	Name        string
	StorageID   string
	Type        string
	FolderID    *primitive.ObjectID
	Size        int64
	ContentType string
}

// Create stores a new pending file owned by actorID.
func (s *Service) Create(ctx context.Context, actorID primitive.ObjectID, in CreateInput) (FileView, error) {
	actor, err := identity.LoadActor(ctx, s.Users, actorID)
	if err != nil {
		return FileView{}, err
	}
	if err := s.checkFolder(ctx, *actor, in.FolderID); err != nil {
		return FileView{}, err
	}
	if in.Type == "" {
		if in.Type, err = TypeFor(in.Name, in.ContentType); err != nil {
			return FileView{}, err
		}
	}
	f, err := s.Files.Create(ctx, models.File{
		Name:        htmlsanitize.PlainText(in.Name),
		Type:        in.Type,
		StorageID:   in.StorageID,
		FolderID:    in.FolderID,
		UserID:      actor.ID,
		TenantID:    actor.TenantID,
		Size:        in.Size,
		ContentType: in.ContentType,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return FileView{}, err
	}
	return s.view(ctx, f), nil
}

// UploadInput is a blob to store together with its metadata.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	FolderID    *primitive.ObjectID
}

// Upload writes the blob and then its metadata record. When the record
// cannot be written the blob is removed again.
func (s *Service) Upload(ctx context.Context, actorID primitive.ObjectID, in UploadInput) (FileView, error) {
	actor, err := identity.LoadActor(ctx, s.Users, actorID)
	if err != nil {
		return FileView{}, err
	}
	if err := s.checkFolder(ctx, *actor, in.FolderID); err != nil {
		return FileView{}, err
	}
	typ, err := TypeFor(in.Filename, in.ContentType)
	if err != nil {
		return FileView{}, err
	}
	name := htmlsanitize.PlainText(path.Base(in.Filename))
	if name == "" || name == "." || name == "/" {
		return FileView{}, fmt.Errorf("%w: file name is required", apperr.ErrInvalidInput)
	}

	key := blobstore.NewKey(name)
	if err := s.Blobs.Put(ctx, key, in.Body, in.Size, in.ContentType); err != nil {
		return FileView{}, fmt.Errorf("store blob: %w", err)
	}

	f, err := s.Files.Create(ctx, models.File{
		Name:        name,
		Type:        typ,
		StorageID:   key,
		FolderID:    in.FolderID,
		UserID:      actor.ID,
		TenantID:    actor.TenantID,
		Size:        in.Size,
		ContentType: in.ContentType,
		CreatedAt:   s.now(),
	})
	if err != nil {
		if derr := s.Blobs.Delete(ctx, key); derr != nil && !errors.Is(derr, blobstore.ErrNotFound) {
			s.Log.Warn("orphaned blob after failed insert", zap.String("key", key), zap.Error(derr))
		}
		return FileView{}, err
	}
	return s.view(ctx, f), nil
}

// checkFolder requires folderID, when set, to be a live folder owned by
// actor.
func (s *Service) checkFolder(ctx context.Context, actor models.User, folderID *primitive.ObjectID) error {
	if folderID == nil {
		return nil
	}
	folder, err := s.Folders.GetByID(ctx, *folderID)
	if err != nil {
		return err
	}
	if !filepolicy.IsOwner(actor, folder.UserID) {
		return fmt.Errorf("%w: folder belongs to another user", apperr.ErrForbidden)
	}
	if folder.ShouldDelete {
		return fmt.Errorf("%w: folder is deleted", apperr.ErrInvalidTarget)
	}
	return nil
}

// ownedFile loads fileID and requires actorID to own it.
func (s *Service) ownedFile(ctx context.Context, actorID, fileID primitive.ObjectID) (*models.File, error) {
	actor, err := identity.LoadActor(ctx, s.Users, actorID)
	if err != nil {
		return nil, err
	}
	f, err := s.Files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !filepolicy.IsOwner(*actor, f.UserID) {
		return nil, errNotOwner
	}
	return f, nil
}

// Delete soft-deletes a file. The garbage collector removes it later.
// Deleting a deleted file is a no-op.
func (s *Service) Delete(ctx context.Context, actorID, fileID primitive.ObjectID) (models.File, error) {
	return s.setDeleted(ctx, actorID, fileID, true)
}

// Restore clears a soft delete. Restoring a live file is a no-op.
func (s *Service) Restore(ctx context.Context, actorID, fileID primitive.ObjectID) (models.File, error) {
	return s.setDeleted(ctx, actorID, fileID, false)
}

func (s *Service) setDeleted(ctx context.Context, actorID, fileID primitive.ObjectID, flag bool) (models.File, error) {
	f, err := s.ownedFile(ctx, actorID, fileID)
	if err != nil {
		return models.File{}, err
	}
	if f.ShouldDelete == flag {
		return *f, nil
	}
	now := s.now()
	if err := s.Files.SetShouldDelete(ctx, fileID, flag, now); err != nil {
		return models.File{}, err
	}
	f.ShouldDelete = flag
	f.DeletedAt = nil
	if flag {
		f.DeletedAt = &now
	}
	return *f, nil
}

// ToggleFavorite flips the favorite state of an owned file and returns the
// new state.
func (s *Service) ToggleFavorite(ctx context.Context, actorID, fileID primitive.ObjectID) (bool, error) {
	f, err := s.ownedFile(ctx, actorID, fileID)
	if err != nil {
		return false, err
	}
	return s.Favorites.Toggle(ctx, actorID, f.ID, s.now())
}

// Filter selects the caller's files.
type Filter struct {
	Query         string
	FavoritesOnly bool
	DeletedOnly   bool
	Type          string
	FolderID      *primitive.ObjectID
}

// List returns the caller's files, newest first. Soft-deleted files appear
// only with DeletedOnly.
func (s *Service) List(ctx context.Context, actorID primitive.ObjectID, f Filter) ([]FileView, error) {
	actor, err := identity.LoadActor(ctx, s.Users, actorID)
	if err != nil {
		return nil, err
	}
	if f.Type != "" && !models.IsValidFileType(f.Type) {
		return nil, fmt.Errorf("%w: type must be image, csv or pdf", apperr.ErrInvalidInput)
	}
	q := models.FileQuery{
		OwnerID:      actor.ID,
		NameContains: text.Fold(strings.TrimSpace(f.Query)),
		Deleted:      f.DeletedOnly,
		Type:         f.Type,
		FolderID:     f.FolderID,
	}
	if f.FavoritesOnly {
		ids, err := s.Favorites.ListFileIDs(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		q.IDs = ids
		q.OnlyIDs = true
	}
	list, err := s.Files.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, list), nil
}

// ListFavorites returns the caller's live favorite files.
func (s *Service) ListFavorites(ctx context.Context, actorID primitive.ObjectID) ([]FileView, error) {
	return s.List(ctx, actorID, Filter{FavoritesOnly: true})
}

// Get returns a file visible to the caller: their own, or any file of
// their tenant for admins.
func (s *Service) Get(ctx context.Context, actorID, fileID primitive.ObjectID) (FileView, error) {
	actor, err := identity.LoadActor(ctx, s.Users, actorID)
	if err != nil {
		return FileView{}, err
	}
	f, err := s.Files.GetByID(ctx, fileID)
	if err != nil {
		return FileView{}, err
	}
	if !filepolicy.CanViewFile(*actor, *f) {
		return FileView{}, fmt.Errorf("%w: not allowed to view this file", apperr.ErrForbidden)
	}
	return s.view(ctx, *f), nil
}

// GetByStorageID is Get keyed by blob handle.
func (s *Service) GetByStorageID(ctx context.Context, actorID primitive.ObjectID, storageID string) (FileView, error) {
	actor, err := identity.LoadActor(ctx, s.Users, actorID)
	if err != nil {
		return FileView{}, err
	}
	f, err := s.Files.GetByStorageID(ctx, storageID)
	if err != nil {
		return FileView{}, err
	}
	if !filepolicy.CanViewFile(*actor, *f) {
		return FileView{}, fmt.Errorf("%w: not allowed to view this file", apperr.ErrForbidden)
	}
	return s.view(ctx, *f), nil
}

// Open streams a visible file's blob.
func (s *Service) Open(ctx context.Context, actorID, fileID primitive.ObjectID) (io.ReadCloser, models.File, error) {
	v, err := s.Get(ctx, actorID, fileID)
	if err != nil {
		return nil, models.File{}, err
	}
	rc, err := s.Blobs.Open(ctx, v.StorageID)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, models.File{}, fmt.Errorf("%w: file content is missing", apperr.ErrNotFound)
		}
		return nil, models.File{}, err
	}
	return rc, v.File, nil
}

// PurgeResult reports what a permanent delete removed.
type PurgeResult struct {
	File      models.File `json:"file"`
	Approvals int64       `json:"approvals_deleted"`
	Favorites int64       `json:"favorites_deleted"`
}

// PermanentlyDelete removes a file with its approval history, favorites and
// blob. Admins only, within their tenant.
func (s *Service) PermanentlyDelete(ctx context.Context, adminID, fileID primitive.ObjectID) (PurgeResult, error) {
	actor, err := identity.LoadActor(ctx, s.Users, adminID)
	if err != nil {
		return PurgeResult{}, err
	}
	if !filepolicy.CanReview(*actor) {
		return PurgeResult{}, fmt.Errorf("%w: only admins can permanently delete files", apperr.ErrForbidden)
	}
	f, err := s.Files.GetByID(ctx, fileID)
	if err != nil {
		return PurgeResult{}, err
	}
	if !filepolicy.CanActInTenant(*actor, f.TenantID) {
		return PurgeResult{}, fmt.Errorf("%w: file belongs to another tenant", apperr.ErrForbidden)
	}

	res := PurgeResult{File: *f}
	if s.Approvals != nil {
		if res.Approvals, err = s.Approvals.DeleteApprovalRecords(ctx, fileID, adminID); err != nil {
			return PurgeResult{}, err
		}
	}
	if res.Favorites, err = s.Favorites.DeleteForFile(ctx, fileID); err != nil {
		return PurgeResult{}, err
	}
	if err := s.Blobs.Delete(ctx, f.StorageID); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return PurgeResult{}, fmt.Errorf("delete blob: %w", err)
	}
	if err := s.Files.Delete(ctx, fileID); err != nil {
		return PurgeResult{}, err
	}
	return res, nil
}

func (s *Service) view(ctx context.Context, f models.File) FileView {
	u, err := s.Blobs.URL(ctx, f.StorageID)
	if err != nil {
		s.Log.Debug("no url for blob", zap.String("storage_id", f.StorageID), zap.Error(err))
	}
	return FileView{File: f, URL: u}
}

func (s *Service) views(ctx context.Context, list []models.File) []FileView {
	out := make([]FileView, 0, len(list))
	for _, f := range list {
		out = append(out, s.view(ctx, f))
	}
	return out
}

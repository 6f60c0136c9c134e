package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	filestore "github.com/dalemusser/stratadrive/internal/app/store/files"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Files mirrors filestore.Store.
type Files struct{ db *DB }

func (s *Files) Create(_ context.Context, f models.File) (models.File, error) {
	f, err := filestore.Prepare(f)
	if err != nil {
		return models.File{}, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.files {
		if existing.StorageID == f.StorageID {
			return models.File{}, filestore.ErrDuplicateStorageID
		}
	}
	s.db.files[f.ID] = f
	return f, nil
}

func (s *Files) GetByID(_ context.Context, id primitive.ObjectID) (*models.File, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f, ok := s.db.files[id]
	if !ok {
		return nil, filestore.ErrFileNotFound
	}
	return &f, nil
}

func (s *Files) GetByStorageID(_ context.Context, storageID string) (*models.File, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, f := range s.db.files {
		if f.StorageID == storageID {
			return &f, nil
		}
	}
	return nil, filestore.ErrFileNotFound
}

func (s *Files) List(_ context.Context, q models.FileQuery) ([]models.File, error) {
	out := []models.File{}
	if q.OnlyIDs && len(q.IDs) == 0 {
		return out, nil
	}
	var ids map[primitive.ObjectID]bool
	if len(q.IDs) > 0 {
		ids = make(map[primitive.ObjectID]bool, len(q.IDs))
		for _, id := range q.IDs {
			ids[id] = true
		}
	}

	s.db.mu.Lock()
	for _, f := range s.db.files {
		switch {
		case f.ShouldDelete != q.Deleted:
		case !q.OwnerID.IsZero() && f.UserID != q.OwnerID:
		case q.NameContains != "" && !strings.Contains(f.NameCI, q.NameContains):
		case ids != nil && !ids[f.ID]:
		case q.Type != "" && f.Type != q.Type:
		case q.FolderID != nil && (f.FolderID == nil || *f.FolderID != *q.FolderID):
		default:
			out = append(out, f)
		}
	}
	s.db.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (s *Files) SetShouldDelete(_ context.Context, id primitive.ObjectID, flag bool, now time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f, ok := s.db.files[id]
	if !ok {
		return filestore.ErrFileNotFound
	}
	f.ShouldDelete = flag
	f.DeletedAt = nil
	if flag {
		t := now
		f.DeletedAt = &t
	}
	s.db.files[id] = f
	return nil
}

func (s *Files) ListMarkedForDeletion(_ context.Context, cutoff time.Time, limit int) ([]models.File, error) {
	s.db.mu.Lock()
	out := []models.File{}
	for _, f := range s.db.files {
		if f.ShouldDelete && (f.DeletedAt == nil || !f.DeletedAt.After(cutoff)) {
			out = append(out, f)
		}
	}
	s.db.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return deletedAt(out[i]).Before(deletedAt(out[j]))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func deletedAt(f models.File) time.Time {
	if f.DeletedAt == nil {
		return time.Time{}
	}
	return *f.DeletedAt
}

func (s *Files) Delete(_ context.Context, id primitive.ObjectID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.files[id]; !ok {
		return filestore.ErrFileNotFound
	}
	delete(s.db.files, id)
	return nil
}

func (s *Files) TakeForCollection(_ context.Context, id primitive.ObjectID, cutoff time.Time) (*models.File, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f, ok := s.db.files[id]
	if !ok || !f.ShouldDelete || (f.DeletedAt != nil && f.DeletedAt.After(cutoff)) {
		return nil, filestore.ErrFileNotFound
	}
	delete(s.db.files, id)
	return &f, nil
}

func (s *Files) Reinstate(_ context.Context, f models.File) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.files[f.ID]; ok {
		return filestore.ErrDuplicateStorageID
	}
	s.db.files[f.ID] = f
	return nil
}

package memstore

import (
	"context"
	"sort"
	"strings"

	folderstore "github.com/dalemusser/stratadrive/internal/app/store/folders"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Folders mirrors folderstore.Store.
type Folders struct{ db *DB }

func (s *Folders) Create(_ context.Context, f models.Folder) (models.Folder, error) {
	f, err := folderstore.Prepare(f)
	if err != nil {
		return models.Folder{}, err
	}
	s.db.mu.Lock()
	s.db.folders[f.ID] = f
	s.db.mu.Unlock()
	return f, nil
}

func (s *Folders) GetByID(_ context.Context, id primitive.ObjectID) (*models.Folder, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f, ok := s.db.folders[id]
	if !ok {
		return nil, folderstore.ErrFolderNotFound
	}
	return &f, nil
}

func (s *Folders) List(_ context.Context, q models.FolderQuery) ([]models.Folder, error) {
	out := []models.Folder{}
	s.db.mu.Lock()
	for _, f := range s.db.folders {
		switch {
		case f.ShouldDelete != q.Deleted:
		case !q.OwnerID.IsZero() && f.UserID != q.OwnerID:
		case q.TenantID != "" && f.TenantID != q.TenantID:
		case q.ParentID != nil && (f.ParentID == nil || *f.ParentID != *q.ParentID):
		case q.ParentID == nil && q.RootOnly && f.ParentID != nil:
		case q.NameContains != "" && !strings.Contains(f.NameCI, q.NameContains):
		default:
			out = append(out, f)
		}
	}
	s.db.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].NameCI != out[j].NameCI {
			return out[i].NameCI < out[j].NameCI
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func (s *Folders) SetShouldDelete(_ context.Context, id primitive.ObjectID, flag bool) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f, ok := s.db.folders[id]
	if !ok {
		return folderstore.ErrFolderNotFound
	}
	f.ShouldDelete = flag
	s.db.folders[id] = f
	return nil
}

func (s *Folders) MoveUnder(ctx context.Context, id primitive.ObjectID, parent *primitive.ObjectID, maxDepth int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f, ok := s.db.folders[id]
	if !ok {
		return folderstore.ErrFolderNotFound
	}
	if parent != nil {
		get := func(_ context.Context, id primitive.ObjectID) (*models.Folder, error) {
			cur, ok := s.db.folders[id]
			if !ok {
				return nil, folderstore.ErrFolderNotFound
			}
			return &cur, nil
		}
		if err := folderstore.CheckAncestors(ctx, id, *parent, maxDepth, get); err != nil {
			return err
		}
		p := *parent
		f.ParentID = &p
	} else {
		f.ParentID = nil
	}
	s.db.folders[id] = f
	return nil
}

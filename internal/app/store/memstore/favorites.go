package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Favorites mirrors favoritestore.Store.
type Favorites struct{ db *DB }

func (s *Favorites) Toggle(_ context.Context, userID, fileID primitive.ObjectID, now time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	k := favKey{user: userID, file: fileID}
	if _, ok := s.db.favorites[k]; ok {
		delete(s.db.favorites, k)
		return false, nil
	}
	s.db.favorites[k] = models.Favorite{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		FileID:    fileID,
		CreatedAt: now,
	}
	return true, nil
}

func (s *Favorites) ListFileIDs(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.db.mu.Lock()
	favs := []models.Favorite{}
	for k, f := range s.db.favorites {
		if k.user == userID {
			favs = append(favs, f)
		}
	}
	s.db.mu.Unlock()

	sort.Slice(favs, func(i, j int) bool { return favs[i].CreatedAt.After(favs[j].CreatedAt) })
	ids := make([]primitive.ObjectID, 0, len(favs))
	for _, f := range favs {
		ids = append(ids, f.FileID)
	}
	return ids, nil
}

func (s *Favorites) DeleteForFile(_ context.Context, fileID primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for k := range s.db.favorites {
		if k.file == fileID {
			delete(s.db.favorites, k)
			n++
		}
	}
	return n, nil
}

package favoritestore

import (
	"context"
	"time"

	"github.com/dalemusser/stratadrive/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("favorites")}
}

// Toggle removes the (user, file) favorite if present, otherwise inserts it.
// It returns the new state.
//
// The unique index on (user_id, file_id) settles a race between two
// toggles: the loser of the insert removes the winner's row, so two
// toggles always cancel out.
func (s *Store) Toggle(ctx context.Context, userID, fileID primitive.ObjectID, now time.Time) (bool, error) {
	key := bson.M{"user_id": userID, "file_id": fileID}

	res, err := s.c.DeleteOne(ctx, key)
	if err != nil {
		return false, err
	}
	if res.DeletedCount > 0 {
		return false, nil
	}

	fav := models.Favorite{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		FileID:    fileID,
		CreatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, fav); err != nil {
		if wafflemongo.IsDup(err) {
			if _, err := s.c.DeleteOne(ctx, key); err != nil {
				return false, err
			}
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListFileIDs returns the ids of the files a user has favorited, most
// recent first.
func (s *Store) ListFileIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"file_id": 1})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	ids := []primitive.ObjectID{}
	for cur.Next(ctx) {
		var row struct {
			FileID primitive.ObjectID `bson:"file_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.FileID)
	}
	return ids, cur.Err()
}

// DeleteForFile removes every favorite pointing at fileID.
func (s *Store) DeleteForFile(ctx context.Context, fileID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"file_id": fileID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

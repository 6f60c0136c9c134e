package folderstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/normalize"
	"github.com/dalemusser/stratadrive/internal/app/system/txn"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type Store struct {
	db *mongo.Database
	c  *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{db: db, c: db.Collection("folders")}
}

// ErrFolderNotFound is wrapped by every lookup that misses.
var ErrFolderNotFound = fmt.Errorf("%w: folder not found", apperr.ErrNotFound)

// ErrCycle is returned when a move would put a folder inside its own subtree.
var ErrCycle = fmt.Errorf("%w: cannot move a folder into its own subfolder", apperr.ErrInvalidTarget)

var errNameNeeded = fmt.Errorf("%w: folder name is required", apperr.ErrInvalidInput)

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrFolderNotFound
	}
	return err
}

// Prepare normalizes a new folder record.
func Prepare(f models.Folder) (models.Folder, error) {
	f.Name = normalize.Name(f.Name)
	if f.Name == "" {
		return models.Folder{}, errNameNeeded
	}
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	f.NameCI = text.Fold(f.Name)
	f.TenantID = normalize.TenantID(f.TenantID)
	f.ShouldDelete = false
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	return f, nil
}

// Create inserts a new folder.
func (s *Store) Create(ctx context.Context, f models.Folder) (models.Folder, error) {
	f, err := Prepare(f)
	if err != nil {
		return models.Folder{}, err
	}
	if _, err := s.c.InsertOne(ctx, f); err != nil {
		return models.Folder{}, err
	}
	return f, nil
}

// GetByID loads a folder by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Folder, error) {
	var f models.Folder
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// List returns folders matching q sorted by name.
func (s *Store) List(ctx context.Context, q models.FolderQuery) ([]models.Folder, error) {
	filter := bson.M{"should_delete": q.Deleted}
	if !q.OwnerID.IsZero() {
		filter["user_id"] = q.OwnerID
	}
	if q.TenantID != "" {
		filter["tenant_id"] = q.TenantID
	}
	switch {
	case q.ParentID != nil:
		filter["parent_id"] = *q.ParentID
	case q.RootOnly:
		filter["parent_id"] = nil
	}
	if q.NameContains != "" {
		filter["name_ci"] = bson.M{"$regex": regexp.QuoteMeta(q.NameContains)}
	}

	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Folder{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetShouldDelete soft-deletes or restores a folder.
func (s *Store) SetShouldDelete(ctx context.Context, id primitive.ObjectID, flag bool) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"should_delete": flag}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrFolderNotFound
	}
	return nil
}

// SetParent moves a folder under parent, or to the root when parent is nil.
// Cycle checks are the caller's job.
func (s *Store) SetParent(ctx context.Context, id primitive.ObjectID, parent *primitive.ObjectID) error {
	update := bson.M{"$unset": bson.M{"parent_id": ""}}
	if parent != nil {
		update = bson.M{"$set": bson.M{"parent_id": *parent}}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrFolderNotFound
	}
	return nil
}

// CheckAncestors walks from start to the root using get and fails with
// ErrCycle if id is on the path. A dangling parent ends the chain.
func CheckAncestors(ctx context.Context, id, start primitive.ObjectID, maxDepth int,
	get func(ctx context.Context, id primitive.ObjectID) (*models.Folder, error)) error {
	next := start
	for depth := 0; ; depth++ {
		if next == id {
			return ErrCycle
		}
		if depth >= maxDepth {
			return fmt.Errorf("%w: folder chain is deeper than %d", apperr.ErrInvalidTarget, maxDepth)
		}
		cur, err := get(ctx, next)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil
			}
			return err
		}
		if cur.ParentID == nil {
			return nil
		}
		next = *cur.ParentID
	}
}

// MoveUnder sets the parent of id after checking that parent is not inside
// id's subtree. Each ancestor visited is bumped inside the transaction, so
// two moves that walk each other's chains conflict and the retried one
// sees the cycle. Without transactions the move is written first and the
// chain re-walked; a move that closed a cycle is undone.
func (s *Store) MoveUnder(ctx context.Context, id primitive.ObjectID, parent *primitive.ObjectID, maxDepth int) error {
	return txn.Run(ctx, s.db, zap.L(), func(ctx context.Context) error {
		var prev models.Folder
		err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"move_seq": 1}}).Decode(&prev)
		if err != nil {
			return notFound(err)
		}
		if parent == nil {
			return s.SetParent(ctx, id, nil)
		}
		if err := CheckAncestors(ctx, id, *parent, maxDepth, s.touch); err != nil {
			return err
		}
		if err := s.SetParent(ctx, id, parent); err != nil {
			return err
		}
		if err := CheckAncestors(ctx, id, *parent, maxDepth, s.GetByID); err != nil {
			if errors.Is(err, ErrCycle) {
				if rerr := s.SetParent(ctx, id, prev.ParentID); rerr != nil {
					return rerr
				}
			}
			return err
		}
		return nil
	})
}

// touch loads a folder and bumps its move counter.
func (s *Store) touch(ctx context.Context, id primitive.ObjectID) (*models.Folder, error) {
	var f models.Folder
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"move_seq": 1}}, opts).Decode(&f); err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

package filestore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
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
	return &Store{c: db.Collection("files")}
}

var (
	// ErrDuplicateStorageID is returned when a record already points at the blob.
	ErrDuplicateStorageID = fmt.Errorf("%w: a file with this storage id already exists", apperr.ErrConflict)
	errNameNeeded         = fmt.Errorf("%w: file name is required", apperr.ErrInvalidInput)
	errStorageNeeded      = fmt.Errorf("%w: storage id is required", apperr.ErrInvalidInput)
	errBadType            = fmt.Errorf("%w: type must be image, csv or pdf", apperr.ErrInvalidInput)
)

// ErrFileNotFound is wrapped by every lookup that misses.
var ErrFileNotFound = fmt.Errorf("%w: file not found", apperr.ErrNotFound)

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrFileNotFound
	}
	return err
}

// Prepare normalizes a new file record. New files are always pending and
// live regardless of what the caller set.
func Prepare(f models.File) (models.File, error) {
	f.Name = normalize.Name(f.Name)
	if f.Name == "" {
		return models.File{}, errNameNeeded
	}
	if f.StorageID == "" {
		return models.File{}, errStorageNeeded
	}
	f.Type = normalize.FileType(f.Type)
	if !models.IsValidFileType(f.Type) {
		return models.File{}, errBadType
	}
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	f.NameCI = text.Fold(f.Name)
	f.TenantID = normalize.TenantID(f.TenantID)
	f.Status = models.FileStatusPending
	f.IsApproved = false
	f.ShouldDelete = false
	f.DeletedAt = nil
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	return f, nil
}

// Create inserts a new file record.
func (s *Store) Create(ctx context.Context, f models.File) (models.File, error) {
	f, err := Prepare(f)
	if err != nil {
		return models.File{}, err
	}
	if _, err := s.c.InsertOne(ctx, f); err != nil {
		if wafflemongo.IsDup(err) {
			return models.File{}, ErrDuplicateStorageID
		}
		return models.File{}, err
	}
	return f, nil
}

// GetByID loads a file by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.File, error) {
	var f models.File
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// GetByStorageID loads a file by its blob handle.
func (s *Store) GetByStorageID(ctx context.Context, storageID string) (*models.File, error) {
	var f models.File
	if err := s.c.FindOne(ctx, bson.M{"storage_id": storageID}).Decode(&f); err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// List returns files matching q, newest first.
func (s *Store) List(ctx context.Context, q models.FileQuery) ([]models.File, error) {
	if q.OnlyIDs && len(q.IDs) == 0 {
		return []models.File{}, nil
	}

	filter := bson.M{"should_delete": q.Deleted}
	if !q.OwnerID.IsZero() {
		filter["user_id"] = q.OwnerID
	}
	if q.NameContains != "" {
		filter["name_ci"] = bson.M{"$regex": regexp.QuoteMeta(q.NameContains)}
	}
	if q.OnlyIDs || len(q.IDs) > 0 {
		filter["_id"] = bson.M{"$in": q.IDs}
	}
	if q.Type != "" {
		filter["type"] = q.Type
	}
	if q.FolderID != nil {
		filter["folder_id"] = *q.FolderID
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.File{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetShouldDelete flags or unflags a file for the garbage collector.
// Setting the flag records now as deleted_at; clearing it removes it.
func (s *Store) SetShouldDelete(ctx context.Context, id primitive.ObjectID, flag bool, now time.Time) error {
	update := bson.M{"$set": bson.M{"should_delete": true, "deleted_at": now}}
	if !flag {
		update = bson.M{"$set": bson.M{"should_delete": false}, "$unset": bson.M{"deleted_at": ""}}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrFileNotFound
	}
	return nil
}

// ListMarkedForDeletion returns up to limit files flagged should_delete at
// or before cutoff, oldest flag first. Records flagged without a timestamp
// are always eligible. A limit <= 0 means no limit.
func (s *Store) ListMarkedForDeletion(ctx context.Context, cutoff time.Time, limit int) ([]models.File, error) {
	filter := flaggedBy(cutoff)
	opts := options.Find().SetSort(bson.D{{Key: "deleted_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.File{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func flaggedBy(cutoff time.Time) bson.M {
	return bson.M{
		"should_delete": true,
		"$or": bson.A{
			bson.M{"deleted_at": bson.M{"$lte": cutoff}},
			bson.M{"deleted_at": bson.M{"$exists": false}},
		},
	}
}

// TakeForCollection removes and returns a file record only while it is still
// flagged at or before cutoff. A file that was restored, re-flagged later or
// already removed yields ErrFileNotFound and is left alone.
func (s *Store) TakeForCollection(ctx context.Context, id primitive.ObjectID, cutoff time.Time) (*models.File, error) {
	filter := flaggedBy(cutoff)
	filter["_id"] = id
	var f models.File
	if err := s.c.FindOneAndDelete(ctx, filter).Decode(&f); err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// Reinstate writes back a record removed by TakeForCollection, unchanged.
func (s *Store) Reinstate(ctx context.Context, f models.File) error {
	if _, err := s.c.InsertOne(ctx, f); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateStorageID
		}
		return err
	}
	return nil
}

// Delete removes a file record.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrFileNotFound
	}
	return nil
}

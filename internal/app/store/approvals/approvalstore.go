// Package approvalstore persists approval requests and applies workflow
// decisions to a request and its file together.
package approvalstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/txn"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/stratadrive/internal/domain/workflow"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type Store struct {
	db    *mongo.Database
	c     *mongo.Collection
	files *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		db:    db,
		c:     db.Collection("approvals"),
		files: db.Collection("files"),
	}
}

var (
	// ErrApprovalNotFound is wrapped by every lookup that misses.
	ErrApprovalNotFound = fmt.Errorf("%w: approval request not found", apperr.ErrNotFound)
	// ErrAlreadyOpen is returned when the file already has a pending request.
	ErrAlreadyOpen = fmt.Errorf("%w: an open approval request already exists for this file", apperr.ErrInvalidTarget)
	// ErrFileNotPending is returned when the target file is missing or decided.
	ErrFileNotPending = fmt.Errorf("%w: file is not pending review", apperr.ErrInvalidTarget)
	// ErrNotPending is returned when a decision finds the request already decided.
	ErrNotPending = fmt.Errorf("%w: approval request is not pending", apperr.ErrInvalidState)
	// ErrNotDecided is returned when a revert finds the request no longer in the expected state.
	ErrNotDecided = fmt.Errorf("%w: approval request is not accepted or rejected", apperr.ErrInvalidState)
)

// Insert stores a new pending request. In one transaction the file is
// re-checked as pending and no other pending request may exist for it;
// the partial unique index on file_id backs this without transactions.
func (s *Store) Insert(ctx context.Context, a models.ApprovalRequest) (models.ApprovalRequest, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.Status = models.ApprovalStatusPending

	err := txn.Run(ctx, s.db, zap.L(), func(ctx context.Context) error {
		n, err := s.files.CountDocuments(ctx, bson.M{"_id": a.FileID, "status": models.FileStatusPending})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrFileNotPending
		}

		n, err = s.c.CountDocuments(ctx, bson.M{"file_id": a.FileID, "status": models.ApprovalStatusPending})
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyOpen
		}

		if _, err := s.c.InsertOne(ctx, a); err != nil {
			if wafflemongo.IsDup(err) {
				return ErrAlreadyOpen
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.ApprovalRequest{}, err
	}
	return a, nil
}

// GetByID loads an approval request.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ApprovalRequest, error) {
	var a models.ApprovalRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrApprovalNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindOpenForFile returns the pending request for fileID.
func (s *Store) FindOpenForFile(ctx context.Context, fileID primitive.ObjectID) (*models.ApprovalRequest, error) {
	var a models.ApprovalRequest
	err := s.c.FindOne(ctx, bson.M{"file_id": fileID, "status": models.ApprovalStatusPending}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: no open approval request for this file", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

// List returns requests matching q ordered by requested_at.
func (s *Store) List(ctx context.Context, q models.ApprovalQuery) ([]models.ApprovalRequest, error) {
	filter := bson.M{}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.FileID != nil {
		filter["file_id"] = *q.FileID
	}
	if q.TenantID != "" {
		filter["tenant_id"] = q.TenantID
	}
	dir := -1
	if q.OldestFirst {
		dir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "requested_at", Value: dir}, {Key: "_id", Value: dir}})

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ApprovalRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyDecision writes an approve or reject to the request and its file.
// Both writes are conditional on the pending status, so of two concurrent
// decisions exactly one commits.
func (s *Store) ApplyDecision(ctx context.Context, d workflow.Decision) error {
	return txn.Run(ctx, s.db, zap.L(), func(ctx context.Context) error {
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": d.ApprovalID, "status": models.ApprovalStatusPending},
			bson.M{"$set": bson.M{
				"status":          d.Status,
				"approved_by":     d.ApprovedBy,
				"approved_at":     d.DecidedAt,
				"remarks":         d.Remarks,
				"admin_signature": d.Signature,
			}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			if _, err := s.GetByID(ctx, d.ApprovalID); err != nil {
				return err
			}
			return ErrNotPending
		}

		set := bson.M{
			"status":      d.FileStatus,
			"is_approved": d.FileStatus == models.FileStatusApproved,
		}
		if d.MarkForDeletion {
			set["should_delete"] = true
			set["deleted_at"] = d.DecidedAt
		}
		res, err = s.files.UpdateOne(ctx,
			bson.M{"_id": d.FileID, "status": models.FileStatusPending},
			bson.M{"$set": set},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			// Undo the first write when running without a transaction.
			_, _ = s.c.UpdateOne(ctx,
				bson.M{"_id": d.ApprovalID, "status": d.Status, "admin_signature": d.Signature},
				reopen(),
			)
			return ErrFileNotPending
		}
		return nil
	})
}

// ApplyRevert re-opens a decided request and returns its file, if it still
// exists, to pending.
func (s *Store) ApplyRevert(ctx context.Context, r workflow.Revert) error {
	return txn.Run(ctx, s.db, zap.L(), func(ctx context.Context) error {
		res, err := s.c.UpdateOne(ctx, bson.M{"_id": r.ApprovalID, "status": r.From}, reopen())
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			if _, err := s.GetByID(ctx, r.ApprovalID); err != nil {
				return err
			}
			return ErrNotDecided
		}

		set := bson.M{
			"status":      models.FileStatusPending,
			"is_approved": false,
		}
		update := bson.M{"$set": set}
		if r.RestoreFile {
			set["should_delete"] = false
			update["$unset"] = bson.M{"deleted_at": ""}
		}
		_, err = s.files.UpdateOne(ctx,
			bson.M{
				"_id":    r.FileID,
				"status": bson.M{"$in": bson.A{models.FileStatusApproved, models.FileStatusRejected}},
			},
			update,
		)
		return err
	})
}

func reopen() bson.M {
	return bson.M{
		"$set": bson.M{"status": models.ApprovalStatusPending},
		"$unset": bson.M{
			"approved_by":     "",
			"approved_at":     "",
			"remarks":         "",
			"admin_signature": "",
		},
	}
}

// DeleteForFile removes the requests for fileID and returns the count. A
// non-empty tenantID limits the delete to that tenant's records.
func (s *Store) DeleteForFile(ctx context.Context, fileID primitive.ObjectID, tenantID string) (int64, error) {
	filter := bson.M{"file_id": fileID}
	if tenantID != "" {
		filter["tenant_id"] = tenantID
	}
	res, err := s.c.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

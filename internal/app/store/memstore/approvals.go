package memstore

import (
	"context"
	"fmt"
	"sort"

	approvalstore "github.com/dalemusser/stratadrive/internal/app/store/approvals"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/stratadrive/internal/domain/workflow"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Approvals mirrors approvalstore.Store. Writes touching both a request
// and its file happen under the DB lock.
type Approvals struct{ db *DB }

func (s *Approvals) Insert(_ context.Context, a models.ApprovalRequest) (models.ApprovalRequest, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.Status = models.ApprovalStatusPending

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f, ok := s.db.files[a.FileID]
	if !ok || f.Status != models.FileStatusPending {
		return models.ApprovalRequest{}, approvalstore.ErrFileNotPending
	}
	for _, existing := range s.db.approvals {
		if existing.FileID == a.FileID && existing.Status == models.ApprovalStatusPending {
			return models.ApprovalRequest{}, approvalstore.ErrAlreadyOpen
		}
	}
	s.db.approvals[a.ID] = a
	return a, nil
}

func (s *Approvals) GetByID(_ context.Context, id primitive.ObjectID) (*models.ApprovalRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.approvals[id]
	if !ok {
		return nil, approvalstore.ErrApprovalNotFound
	}
	return &a, nil
}

func (s *Approvals) FindOpenForFile(_ context.Context, fileID primitive.ObjectID) (*models.ApprovalRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.approvals {
		if a.FileID == fileID && a.Status == models.ApprovalStatusPending {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("%w: no open approval request for this file", apperr.ErrNotFound)
}

func (s *Approvals) List(_ context.Context, q models.ApprovalQuery) ([]models.ApprovalRequest, error) {
	out := []models.ApprovalRequest{}
	s.db.mu.Lock()
	for _, a := range s.db.approvals {
		switch {
		case q.Status != "" && a.Status != q.Status:
		case q.FileID != nil && a.FileID != *q.FileID:
		case q.TenantID != "" && a.TenantID != q.TenantID:
		default:
			out = append(out, a)
		}
	}
	s.db.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		before := out[i].RequestedAt.Before(out[j].RequestedAt)
		if out[i].RequestedAt.Equal(out[j].RequestedAt) {
			before = out[i].ID.Hex() < out[j].ID.Hex()
		}
		if q.OldestFirst {
			return before
		}
		return !before
	})
	return out, nil
}

func (s *Approvals) ApplyDecision(_ context.Context, d workflow.Decision) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	a, ok := s.db.approvals[d.ApprovalID]
	if !ok {
		return approvalstore.ErrApprovalNotFound
	}
	if a.Status != models.ApprovalStatusPending {
		return approvalstore.ErrNotPending
	}
	f, ok := s.db.files[d.FileID]
	if !ok || f.Status != models.FileStatusPending {
		return approvalstore.ErrFileNotPending
	}

	by, at := d.ApprovedBy, d.DecidedAt
	a.Status = d.Status
	a.ApprovedBy = &by
	a.ApprovedAt = &at
	a.Remarks = d.Remarks
	a.AdminSignature = d.Signature
	s.db.approvals[a.ID] = a

	f.Status = d.FileStatus
	f.IsApproved = d.FileStatus == models.FileStatusApproved
	if d.MarkForDeletion {
		f.ShouldDelete = true
		f.DeletedAt = &at
	}
	s.db.files[f.ID] = f
	return nil
}

func (s *Approvals) ApplyRevert(_ context.Context, r workflow.Revert) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	a, ok := s.db.approvals[r.ApprovalID]
	if !ok {
		return approvalstore.ErrApprovalNotFound
	}
	if a.Status != r.From {
		return approvalstore.ErrNotDecided
	}
	a.Status = models.ApprovalStatusPending
	a.ApprovedBy = nil
	a.ApprovedAt = nil
	a.Remarks = ""
	a.AdminSignature = ""
	s.db.approvals[a.ID] = a

	f, ok := s.db.files[r.FileID]
	if !ok || (f.Status != models.FileStatusApproved && f.Status != models.FileStatusRejected) {
		return nil
	}
	f.Status = models.FileStatusPending
	f.IsApproved = false
	if r.RestoreFile {
		f.ShouldDelete = false
		f.DeletedAt = nil
	}
	s.db.files[f.ID] = f
	return nil
}

func (s *Approvals) DeleteForFile(_ context.Context, fileID primitive.ObjectID, tenantID string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for id, a := range s.db.approvals {
		if a.FileID == fileID && (tenantID == "" || a.TenantID == tenantID) {
			delete(s.db.approvals, id)
			n++
		}
	}
	return n, nil
}

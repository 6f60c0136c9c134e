// Package approvals runs the admin review workflow for file additions and
// deletions.
//
// Every mutation re-loads the acting user and checks role and tenant before
// any write. Decisions and reverts are applied by the store as one atomic,
// status-conditional write to the request and its file.
package approvals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/policy/filepolicy"
	"github.com/dalemusser/stratadrive/internal/app/services/identity"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratadrive/internal/app/system/normalize"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/stratadrive/internal/domain/workflow"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ApprovalStore is the approval persistence.
type ApprovalStore interface {
	Insert(ctx context.Context, a models.ApprovalRequest) (models.ApprovalRequest, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.ApprovalRequest, error)
	FindOpenForFile(ctx context.Context, fileID primitive.ObjectID) (*models.ApprovalRequest, error)
	List(ctx context.Context, q models.ApprovalQuery) ([]models.ApprovalRequest, error)
	ApplyDecision(ctx context.Context, d workflow.Decision) error
	ApplyRevert(ctx context.Context, r workflow.Revert) error
	DeleteForFile(ctx context.Context, fileID primitive.ObjectID, tenantID string) (int64, error)
}

// FileGetter loads the files requests point at.
type FileGetter interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.File, error)
}

type Service struct {
	Users     identity.UserGetter
	Approvals ApprovalStore
	Files     FileGetter
	Log       *zap.Logger
	Clock     func() time.Time
}

func New(users identity.UserGetter, approvals ApprovalStore, files FileGetter, logger *zap.Logger) *Service {
	return &Service{
		Users:     users,
		Approvals: approvals,
		Files:     files,
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

// reviewer loads the acting user and requires admin or higher.
func (s *Service) reviewer(ctx context.Context, actorID primitive.ObjectID, action string) (*models.User, error) {
	actor, err := identity.LoadActor(ctx, s.Users, actorID)
	if err != nil {
		return nil, err
	}
	if !filepolicy.CanReview(*actor) {
		return nil, fmt.Errorf("%w: only admins can %s", apperr.ErrForbidden, action)
	}
	return actor, nil
}

// CreateRequestInput opens a review of a file.
type CreateRequestInput struct {
	FileID      primitive.ObjectID
	FileName    string // defaults to the file's current name
	UserID      primitive.ObjectID
	Type        string
	Description string
}

// CreateRequest opens a pending request. The file must be pending and have
// no other open request.
func (s *Service) CreateRequest(ctx context.Context, in CreateRequestInput) (models.ApprovalRequest, error) {
	typ := normalize.Status(in.Type)
	if !models.IsValidApprovalType(typ) {
		return models.ApprovalRequest{}, fmt.Errorf("%w: type must be addition or deletion", apperr.ErrInvalidInput)
	}

	requester, err := s.Users.GetByID(ctx, in.UserID)
	if err != nil {
		return models.ApprovalRequest{}, err
	}
	if !requester.IsActive() {
		return models.ApprovalRequest{}, fmt.Errorf("%w: account disabled", apperr.ErrUnauthenticated)
	}

	f, err := s.Files.GetByID(ctx, in.FileID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.ApprovalRequest{}, fmt.Errorf("%w: file does not exist", apperr.ErrInvalidTarget)
		}
		return models.ApprovalRequest{}, err
	}
	if requester.TenantID != f.TenantID {
		return models.ApprovalRequest{}, fmt.Errorf("%w: file belongs to another tenant", apperr.ErrForbidden)
	}
	if f.Status != models.FileStatusPending {
		return models.ApprovalRequest{}, fmt.Errorf("%w: file is %s, not pending", apperr.ErrInvalidTarget, f.Status)
	}

	name := htmlsanitize.PlainText(in.FileName)
	if name == "" {
		name = f.Name
	}
	return s.Approvals.Insert(ctx, models.ApprovalRequest{
		FileID:      f.ID,
		FileName:    name,
		TenantID:    f.TenantID,
		RequestedBy: models.Requester{ID: requester.ID, Name: requester.Name},
		RequestedAt: s.now(),
		Type:        typ,
		Description: htmlsanitize.PlainText(in.Description),
	})
}

// Approve accepts a pending request on a pending file.
func (s *Service) Approve(ctx context.Context, fileID, adminID, approvalID primitive.ObjectID, remarks string) (models.ApprovalRequest, error) {
	return s.decide(ctx, workflow.EventApprove, fileID, adminID, approvalID, remarks)
}

// Reject declines a pending request on a pending file.
func (s *Service) Reject(ctx context.Context, fileID, adminID, approvalID primitive.ObjectID, remarks string) (models.ApprovalRequest, error) {
	return s.decide(ctx, workflow.EventReject, fileID, adminID, approvalID, remarks)
}

func (s *Service) decide(ctx context.Context, ev workflow.Event, fileID, adminID, approvalID primitive.ObjectID, remarks string) (models.ApprovalRequest, error) {
	actor, err := s.reviewer(ctx, adminID, string(ev)+" files")
	if err != nil {
		return models.ApprovalRequest{}, err
	}

	f, err := s.Files.GetByID(ctx, fileID)
	if err != nil {
		return models.ApprovalRequest{}, err
	}
	if !filepolicy.CanActInTenant(*actor, f.TenantID) {
		return models.ApprovalRequest{}, fmt.Errorf("%w: file belongs to another tenant", apperr.ErrForbidden)
	}
	if f.Status != models.FileStatusPending {
		return models.ApprovalRequest{}, fmt.Errorf("%w: file is %s, not pending", apperr.ErrInvalidTarget, f.Status)
	}

	a, err := s.Approvals.GetByID(ctx, approvalID)
	if err != nil {
		return models.ApprovalRequest{}, err
	}
	d, err := workflow.NewDecision(ev, *a, *f, actor.ID, htmlsanitize.PlainText(remarks), s.now())
	if err != nil {
		return models.ApprovalRequest{}, err
	}
	if err := s.Approvals.ApplyDecision(ctx, d); err != nil {
		return models.ApprovalRequest{}, err
	}

	out := *a
	out.Status = d.Status
	out.ApprovedBy = &d.ApprovedBy
	out.ApprovedAt = &d.DecidedAt
	out.Remarks = d.Remarks
	out.AdminSignature = d.Signature
	return out, nil
}

// Revert re-opens an accepted or rejected request and returns its file to
// pending. An accepted deletion also takes the file off the collector's
// list.
func (s *Service) Revert(ctx context.Context, approvalID, adminID primitive.ObjectID) (models.ApprovalRequest, error) {
	actor, err := s.reviewer(ctx, adminID, "revert decisions")
	if err != nil {
		return models.ApprovalRequest{}, err
	}
	a, err := s.Approvals.GetByID(ctx, approvalID)
	if err != nil {
		return models.ApprovalRequest{}, err
	}
	if !filepolicy.CanActInTenant(*actor, a.TenantID) {
		return models.ApprovalRequest{}, fmt.Errorf("%w: request belongs to another tenant", apperr.ErrForbidden)
	}
	r, err := workflow.NewRevert(*a)
	if err != nil {
		return models.ApprovalRequest{}, err
	}
	if err := s.Approvals.ApplyRevert(ctx, r); err != nil {
		return models.ApprovalRequest{}, err
	}

	out := *a
	out.Status = models.ApprovalStatusPending
	out.ApprovedBy = nil
	out.ApprovedAt = nil
	out.Remarks = ""
	out.AdminSignature = ""
	return out, nil
}

// List returns requests with the given status ("" or "all" for every
// status), newest first, limited to the admin's tenant.
func (s *Service) List(ctx context.Context, adminID primitive.ObjectID, status string) ([]models.ApprovalRequest, error) {
	actor, err := s.reviewer(ctx, adminID, "view approval requests")
	if err != nil {
		return nil, err
	}
	status = normalize.Status(status)
	if status == "all" {
		status = ""
	}
	if status != "" && !models.IsValidApprovalStatus(status) {
		return nil, fmt.Errorf("%w: status must be pending, accepted or rejected", apperr.ErrInvalidInput)
	}
	tenant, _ := filepolicy.ReviewScope(*actor)
	return s.Approvals.List(ctx, models.ApprovalQuery{Status: status, TenantID: tenant})
}

// OpenForFile returns the pending request for a file.
func (s *Service) OpenForFile(ctx context.Context, adminID, fileID primitive.ObjectID) (models.ApprovalRequest, error) {
	actor, err := s.reviewer(ctx, adminID, "view approval requests")
	if err != nil {
		return models.ApprovalRequest{}, err
	}
	a, err := s.Approvals.FindOpenForFile(ctx, fileID)
	if err != nil {
		return models.ApprovalRequest{}, err
	}
	if !filepolicy.CanActInTenant(*actor, a.TenantID) {
		return models.ApprovalRequest{}, fmt.Errorf("%w: request belongs to another tenant", apperr.ErrForbidden)
	}
	return *a, nil
}

// History returns every request for a file, oldest first.
func (s *Service) History(ctx context.Context, adminID, fileID primitive.ObjectID) ([]models.ApprovalRequest, error) {
	actor, err := s.reviewer(ctx, adminID, "view approval history")
	if err != nil {
		return nil, err
	}
	tenant, _ := filepolicy.ReviewScope(*actor)
	return s.Approvals.List(ctx, models.ApprovalQuery{FileID: &fileID, TenantID: tenant, OldestFirst: true})
}

// DeleteApprovalRecords removes a file's whole request history and returns
// how many records went. Only used when a file is removed for good.
func (s *Service) DeleteApprovalRecords(ctx context.Context, fileID, adminID primitive.ObjectID) (int64, error) {
	actor, err := s.reviewer(ctx, adminID, "delete approval records")
	if err != nil {
		return 0, err
	}
	tenant, _ := filepolicy.ReviewScope(*actor)
	if tenant != "" {
		records, err := s.Approvals.List(ctx, models.ApprovalQuery{FileID: &fileID})
		if err != nil {
			return 0, err
		}
		for _, a := range records {
			if a.TenantID != tenant {
				return 0, fmt.Errorf("%w: records belong to another tenant", apperr.ErrForbidden)
			}
		}
	}
	return s.Approvals.DeleteForFile(ctx, fileID, tenant)
}

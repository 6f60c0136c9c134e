// Package workflow is the approval state machine.
//
// An approval request moves pending → accepted | rejected through an admin
// decision, and accepted | rejected → pending through a revert. Every
// decision is mirrored onto the target file in the same atomic write:
//
//	approval  accepted  ⇔ file approved
//	approval  rejected  ⇔ file rejected
//	approval  pending   ⇔ file pending (no decision governs it)
//
// Stores apply Decision and Revert values as compare-and-swap writes on the
// expected current status, so two concurrent decisions never both commit.
package workflow

import (
	"fmt"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is an admin action on an approval request.
type Event string

const (
	EventApprove Event = "approve"
	EventReject  Event = "reject"
	EventRevert  Event = "revert"
)

// Next returns the approval status reached by applying ev to from.
// Invalid transitions return apperr.ErrInvalidState.
func Next(from string, ev Event) (string, error) {
	switch ev {
	case EventApprove:
		if from == models.ApprovalStatusPending {
			return models.ApprovalStatusAccepted, nil
		}
	case EventReject:
		if from == models.ApprovalStatusPending {
			return models.ApprovalStatusRejected, nil
		}
	case EventRevert:
		if from == models.ApprovalStatusAccepted || from == models.ApprovalStatusRejected {
			return models.ApprovalStatusPending, nil
		}
		return "", fmt.Errorf("%w: only accepted or rejected approvals can be reverted", apperr.ErrInvalidState)
	default:
		return "", fmt.Errorf("%w: unknown event %q", apperr.ErrInvalidState, ev)
	}
	return "", fmt.Errorf("%w: approval is %s, not pending", apperr.ErrInvalidState, from)
}

// FileStatusFor returns the file status mirroring an approval status.
func FileStatusFor(approvalStatus string) string {
	switch approvalStatus {
	case models.ApprovalStatusAccepted:
		return models.FileStatusApproved
	case models.ApprovalStatusRejected:
		return models.FileStatusRejected
	default:
		return models.FileStatusPending
	}
}

// Decision is an approve or reject to be applied atomically to an approval
// request and its file. The approval must still be pending and the file
// must still be pending when it is applied.
type Decision struct {
	ApprovalID primitive.ObjectID
	FileID     primitive.ObjectID
	Status     string // accepted | rejected
	FileStatus string // approved | rejected
	ApprovedBy primitive.ObjectID
	DecidedAt  time.Time
	Remarks    string
	Signature  string
	// MarkForDeletion flags the file for the garbage collector. Set when an
	// accepted request is of type deletion.
	MarkForDeletion bool
}

// NewDecision builds the Decision for approving or rejecting approval a on
// file f. It validates the transition but not the actor.
func NewDecision(ev Event, a models.ApprovalRequest, f models.File, adminID primitive.ObjectID, remarks string, now time.Time) (Decision, error) {
	if ev != EventApprove && ev != EventReject {
		return Decision{}, fmt.Errorf("%w: %q is not a decision", apperr.ErrInvalidState, ev)
	}
	if f.Status != models.FileStatusPending {
		return Decision{}, fmt.Errorf("%w: file is %s, not pending", apperr.ErrInvalidTarget, f.Status)
	}
	if a.FileID != f.ID {
		return Decision{}, fmt.Errorf("%w: approval does not belong to this file", apperr.ErrInvalidTarget)
	}
	to, err := Next(a.Status, ev)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		ApprovalID:      a.ID,
		FileID:          f.ID,
		Status:          to,
		FileStatus:      FileStatusFor(to),
		ApprovedBy:      adminID,
		DecidedAt:       now,
		Remarks:         remarks,
		Signature:       NewSignature(now),
		MarkForDeletion: to == models.ApprovalStatusAccepted && a.Type == models.ApprovalTypeDeletion,
	}, nil
}

// Revert re-opens a decided approval request.
type Revert struct {
	ApprovalID primitive.ObjectID
	FileID     primitive.ObjectID
	// From is the status the approval must still have when applied.
	From string
	// RestoreFile clears should_delete on the file. Set when an accepted
	// deletion is reverted.
	RestoreFile bool
}

// NewRevert builds the Revert for approval a.
func NewRevert(a models.ApprovalRequest) (Revert, error) {
	if _, err := Next(a.Status, EventRevert); err != nil {
		return Revert{}, err
	}
	return Revert{
		ApprovalID:  a.ID,
		FileID:      a.FileID,
		From:        a.Status,
		RestoreFile: a.Status == models.ApprovalStatusAccepted && a.Type == models.ApprovalTypeDeletion,
	}, nil
}

// RevertedFileStatus returns the file status after a revert given its
// current status. Only decided statuses are reset.
func RevertedFileStatus(current string) string {
	if current == models.FileStatusApproved || current == models.FileStatusRejected {
		return models.FileStatusPending
	}
	return current
}

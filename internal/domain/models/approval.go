package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Approval request types.
const (
	ApprovalTypeAddition = "addition"
	ApprovalTypeDeletion = "deletion"
)

// Approval request status values. There is no stored "reverted" state;
// a revert re-enters ApprovalStatusPending.
const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusAccepted = "accepted"
	ApprovalStatusRejected = "rejected"
)

// Requester is the snapshot of the requesting user taken when the request
// was created. It is not updated when the user is renamed.
type Requester struct {
	ID   primitive.ObjectID `bson:"id" json:"id"`
	Name string             `bson:"name" json:"name"`
}

// ApprovalRequest is an administrative review of a proposed file addition
// or deletion.
type ApprovalRequest struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FileID      primitive.ObjectID `bson:"file_id" json:"file_id"`
	FileName    string             `bson:"file_name" json:"file_name"` // snapshot
	TenantID    string             `bson:"tenant_id" json:"tenant_id"`
	RequestedBy Requester          `bson:"requested_by" json:"requested_by"`
	RequestedAt time.Time          `bson:"requested_at" json:"requested_at"`
	Type        string             `bson:"type" json:"type"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Status      string             `bson:"status" json:"status"`

	ApprovedBy     *primitive.ObjectID `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	ApprovedAt     *time.Time          `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	Remarks        string              `bson:"remarks,omitempty" json:"remarks,omitempty"`
	AdminSignature string              `bson:"admin_signature,omitempty" json:"admin_signature,omitempty"`
}

// IsDecided reports whether an admin decision currently governs the request.
func (a ApprovalRequest) IsDecided() bool {
	return a.Status == ApprovalStatusAccepted || a.Status == ApprovalStatusRejected
}

// IsValidApprovalType reports whether t is a known request type.
func IsValidApprovalType(t string) bool {
	return t == ApprovalTypeAddition || t == ApprovalTypeDeletion
}

// IsValidApprovalStatus reports whether s is a stored approval status.
func IsValidApprovalStatus(s string) bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusAccepted, ApprovalStatusRejected:
		return true
	}
	return false
}

// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/app/system/paging"
)

// listItem represents a single audit event row.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	TenantID      string            `json:"tenant_id,omitempty"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	ActorName     string            `json:"actor_name,omitempty"`  // resolved from ActorID
	TargetName    string            `json:"target_name,omitempty"` // resolved from UserID
	FileID        string            `json:"file_id,omitempty"`
	ApprovalID    string            `json:"approval_id,omitempty"`
	IP            string            `json:"ip,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Events []listItem `json:"events"`
	Total  int64      `json:"total"`
	paging.Range
	paging.Result
}

// categories lists the filterable categories with their event types.
var categories = map[string][]string{
	audit.CategoryIdentity: {
		audit.EventUserCreated,
		audit.EventUserUpdated,
		audit.EventUserDeleted,
		audit.EventRoleChanged,
		audit.EventSessionEstablished,
		audit.EventSessionCleared,
	},
	audit.CategoryFiles: {
		audit.EventFileUploaded,
		audit.EventFileDeleted,
		audit.EventFileRestored,
		audit.EventFilePurged,
		audit.EventFolderCreated,
		audit.EventFolderDeleted,
		audit.EventFolderRestored,
		audit.EventFolderMoved,
		audit.EventFilesSwept,
	},
	audit.CategoryApproval: {
		audit.EventApprovalRequested,
		audit.EventApprovalAccepted,
		audit.EventApprovalRejected,
		audit.EventApprovalReverted,
		audit.EventApprovalRecordsDeleted,
	},
}

// knownEventType reports whether t belongs to category, or to any
// category when category is empty.
func knownEventType(category, t string) bool {
	for c, types := range categories {
		if category != "" && c != category {
			continue
		}
		for _, et := range types {
			if et == t {
				return true
			}
		}
	}
	return false
}

// internal/app/features/approvals/request.go
package approvals

import (
	"net/http"
	"strings"

	errorsfeature "github.com/dalemusser/stratadrive/internal/app/features/errors"
	approvalsvc "github.com/dalemusser/stratadrive/internal/app/services/approvals"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
)

type createRequest struct {
	FileID      string `json:"file_id" validate:"required,objectid" label:"File"`
	FileName    string `json:"file_name" validate:"max=255" label:"File name"`
	Type        string `json:"type" validate:"required,approvaltype" label:"Type"`
	Description string `json:"description" validate:"max=2000" label:"Description"`
}

// HandleCreate handles POST /api/approvals. Any signed-in user may ask for
// a review of a pending file in their tenant.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := errorsfeature.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	if err := inputval.Validate(req).Err(); err != nil {
		h.fail(w, r, err)
		return
	}
	fileID, err := inputval.ParseObjectID(req.FileID, "file_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := shortCtx(r)
	defer cancel()

	a, err := h.Approvals.CreateRequest(ctx, approvalsvc.CreateRequestInput{
		FileID:      fileID,
		FileName:    req.FileName,
		UserID:      actor(r),
		Type:        req.Type,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.ApprovalRequested(ctx, r, a)
	errorsfeature.WriteJSON(w, http.StatusCreated, a)
}

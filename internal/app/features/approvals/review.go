// internal/app/features/approvals/review.go
package approvals

import (
	"net/http"

	errorsfeature "github.com/dalemusser/stratadrive/internal/app/features/errors"
	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type decisionRequest struct {
	FileID  string `json:"file_id" validate:"required,objectid" label:"File"`
	Remarks string `json:"remarks" validate:"max=2000" label:"Remarks"`
}

// ServeList handles GET /api/approvals?status=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := shortCtx(r)
	defer cancel()

	list, err := h.Approvals.List(ctx, actor(r), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeList(w, list)
}

// ServeOpenForFile handles GET /api/approvals/files/{fileID}.
func (h *Handler) ServeOpenForFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := inputval.ParseObjectID(chi.URLParam(r, "fileID"), "file id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := shortCtx(r)
	defer cancel()

	a, err := h.Approvals.OpenForFile(ctx, actor(r), fileID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.WriteJSON(w, http.StatusOK, a)
}

// ServeHistory handles GET /api/approvals/files/{fileID}/history.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	fileID, err := inputval.ParseObjectID(chi.URLParam(r, "fileID"), "file id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := shortCtx(r)
	defer cancel()

	list, err := h.Approvals.History(ctx, actor(r), fileID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeList(w, list)
}

// HandleApprove handles POST /api/approvals/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, audit.EventApprovalAccepted)
}

// HandleReject handles POST /api/approvals/{id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, audit.EventApprovalRejected)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, event string) {
	approvalID, err := inputval.ParseObjectID(chi.URLParam(r, "id"), "approval id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req decisionRequest
	if err := errorsfeature.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
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

	uid := actor(r)
	var a models.ApprovalRequest
	if event == audit.EventApprovalAccepted {
		a, err = h.Approvals.Approve(ctx, fileID, uid, approvalID, req.Remarks)
	} else {
		a, err = h.Approvals.Reject(ctx, fileID, uid, approvalID, req.Remarks)
	}
	if err != nil {
		h.denyOrFail(w, r, event, uid, approvalID, err)
		return
	}
	h.Audit.ApprovalDecided(ctx, r, event, uid, a)
	errorsfeature.WriteJSON(w, http.StatusOK, a)
}

// HandleRevert handles POST /api/approvals/{id}/revert.
func (h *Handler) HandleRevert(w http.ResponseWriter, r *http.Request) {
	approvalID, err := inputval.ParseObjectID(chi.URLParam(r, "id"), "approval id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := shortCtx(r)
	defer cancel()

	uid := actor(r)
	a, err := h.Approvals.Revert(ctx, approvalID, uid)
	if err != nil {
		h.denyOrFail(w, r, audit.EventApprovalReverted, uid, approvalID, err)
		return
	}
	h.Audit.ApprovalDecided(ctx, r, audit.EventApprovalReverted, uid, a)
	errorsfeature.WriteJSON(w, http.StatusOK, a)
}

// HandleDeleteRecords handles DELETE /api/approvals/files/{fileID}.
func (h *Handler) HandleDeleteRecords(w http.ResponseWriter, r *http.Request) {
	fileID, err := inputval.ParseObjectID(chi.URLParam(r, "fileID"), "file id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := shortCtx(r)
	defer cancel()

	uid := actor(r)
	n, err := h.Approvals.DeleteApprovalRecords(ctx, fileID, uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.ApprovalRecordsDeleted(ctx, r, uid, fileID, n)
	errorsfeature.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *Handler) denyOrFail(w http.ResponseWriter, r *http.Request, event string, uid, approvalID primitive.ObjectID, err error) {
	if denied(err) {
		h.Audit.ApprovalDenied(r.Context(), r, event, uid, approvalID, err.Error())
	}
	h.fail(w, r, err)
}

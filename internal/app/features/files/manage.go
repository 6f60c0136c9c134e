// internal/app/features/files/manage.go
package files

import (
	"net/http"

	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/go-chi/chi/v5"
)

// HandleDelete handles DELETE /api/files/{id} (soft delete, owner only).
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ParseObjectID(chi.URLParam(r, "id"), "file id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := shortCtx(r)
	defer cancel()

	uid := actor(r)
	f, err := h.Files.Delete(ctx, uid, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.FileEvent(ctx, r, audit.EventFileDeleted, uid, f)
	writeJSON(w, http.StatusOK, f)
}

// HandleRestore handles POST /api/files/{id}/restore.
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ParseObjectID(chi.URLParam(r, "id"), "file id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := shortCtx(r)
	defer cancel()

	uid := actor(r)
	f, err := h.Files.Restore(ctx, uid, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.FileEvent(ctx, r, audit.EventFileRestored, uid, f)
	writeJSON(w, http.StatusOK, f)
}

type favoriteResponse struct {
	FileID   string `json:"file_id"`
	Favorite bool   `json:"favorite"`
}

// HandleToggleFavorite handles POST /api/files/{id}/favorite.
func (h *Handler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ParseObjectID(chi.URLParam(r, "id"), "file id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := shortCtx(r)
	defer cancel()

	on, err := h.Files.ToggleFavorite(ctx, actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, favoriteResponse{FileID: id.Hex(), Favorite: on})
}

// HandlePurge handles DELETE /api/admin/files/{id}: the file, its blob,
// favorites and approval history are removed for good.
func (h *Handler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ParseObjectID(chi.URLParam(r, "id"), "file id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := shortCtx(r)
	defer cancel()

	uid := actor(r)
	res, err := h.Files.PermanentlyDelete(ctx, uid, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.FileEvent(ctx, r, audit.EventFilePurged, uid, res.File)
	if res.Approvals > 0 {
		h.Audit.ApprovalRecordsDeleted(ctx, r, uid, id, res.Approvals)
	}
	writeJSON(w, http.StatusOK, res)
}

// internal/app/features/folders/handler.go
package folders

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	errorsfeature "github.com/dalemusser/stratadrive/internal/app/features/errors"
	foldersvc "github.com/dalemusser/stratadrive/internal/app/services/folders"
	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/app/system/auditlog"
	"github.com/dalemusser/stratadrive/internal/app/system/authz"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/app/system/timeouts"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Folders *foldersvc.Service
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

func NewHandler(folders *foldersvc.Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Folders: folders, Audit: audit, Log: logger}
}

type listResponse struct {
	Folders []models.Folder `json:"folders"`
	Count   int             `json:"count"`
}

type createRequest struct {
	Name     string `json:"name" validate:"required,max=255" label:"Name"`
	ParentID string `json:"parent_id" validate:"omitempty,objectid" label:"Parent folder"`
}

// moveRequest carries the new parent. A null or missing parent_id moves the
// folder to the root.
type moveRequest struct {
	ParentID *string `json:"parent_id"`
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	errorsfeature.WriteError(w, r, h.Log, err)
}

func actor(r *http.Request) primitive.ObjectID {
	_, _, uid, _ := authz.UserCtx(r)
	return uid
}

func folderID(r *http.Request) (primitive.ObjectID, error) {
	return inputval.ParseObjectID(chi.URLParam(r, "id"), "folder id")
}

// ServeList handles GET /api/folders?query=&parent_id=&root=&deleted=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	parentID, err := inputval.ParseOptionalObjectID(q.Get("parent_id"), "parent_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	root, _ := strconv.ParseBool(q.Get("root"))
	deleted, _ := strconv.ParseBool(q.Get("deleted"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Folders.List(ctx, actor(r), foldersvc.Filter{
		Query:       strings.TrimSpace(q.Get("query")),
		ParentID:    parentID,
		RootOnly:    root,
		DeletedOnly: deleted,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []models.Folder{}
	}
	errorsfeature.WriteJSON(w, http.StatusOK, listResponse{Folders: list, Count: len(list)})
}

// HandleCreate handles POST /api/folders.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := errorsfeature.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := inputval.Validate(req).Err(); err != nil {
		h.fail(w, r, err)
		return
	}
	parentID, err := inputval.ParseOptionalObjectID(req.ParentID, "parent_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	uid := actor(r)
	f, err := h.Folders.Create(ctx, uid, req.Name, parentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.FolderEvent(ctx, r, audit.EventFolderCreated, uid, f)
	errorsfeature.WriteJSON(w, http.StatusCreated, f)
}

// ServeFolder handles GET /api/folders/{id}.
func (h *Handler) ServeFolder(w http.ResponseWriter, r *http.Request) {
	id, err := folderID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	f, err := h.Folders.Get(ctx, actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errorsfeature.WriteJSON(w, http.StatusOK, f)
}

// HandleDelete handles DELETE /api/folders/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.setDeleted(w, r, true)
}

// HandleRestore handles POST /api/folders/{id}/restore.
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	h.setDeleted(w, r, false)
}

func (h *Handler) setDeleted(w http.ResponseWriter, r *http.Request, flag bool) {
	id, err := folderID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	uid := actor(r)
	var f models.Folder
	event := audit.EventFolderDeleted
	if flag {
		f, err = h.Folders.Delete(ctx, uid, id)
	} else {
		f, err = h.Folders.Restore(ctx, uid, id)
		event = audit.EventFolderRestored
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.FolderEvent(ctx, r, event, uid, f)
	errorsfeature.WriteJSON(w, http.StatusOK, f)
}

// HandleMove handles PATCH /api/folders/{id}/parent.
func (h *Handler) HandleMove(w http.ResponseWriter, r *http.Request) {
	id, err := folderID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req moveRequest
	if err := errorsfeature.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	var parent *primitive.ObjectID
	if req.ParentID != nil {
		if parent, err = inputval.ParseOptionalObjectID(*req.ParentID, "parent_id"); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	uid := actor(r)
	f, err := h.Folders.Move(ctx, uid, id, parent)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.FolderEvent(ctx, r, audit.EventFolderMoved, uid, f)
	errorsfeature.WriteJSON(w, http.StatusOK, f)
}

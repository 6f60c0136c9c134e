// internal/app/features/files/upload.go
package files

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	filesvc "github.com/dalemusser/stratadrive/internal/app/services/files"
	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/app/system/limits"
	"github.com/dalemusser/stratadrive/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// multipartSlack covers boundaries and form fields around the file part.
const multipartSlack = 1 << 20

// HandleUpload handles POST /api/files (multipart: file, optional folder_id).
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, nil)
}

// HandleUploadToFolder handles POST /api/folders/{id}/files.
func (h *Handler) HandleUploadToFolder(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ParseObjectID(chi.URLParam(r, "id"), "folder id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.upload(w, r, &id)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, folderID *primitive.ObjectID) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload+multipartSlack)
	if err := r.ParseMultipartForm(limits.MultipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.fail(w, r, fmt.Errorf("%w: upload exceeds %d MB", apperr.ErrInvalidInput, h.MaxUpload>>20))
			return
		}
		h.fail(w, r, fmt.Errorf("%w: expected a multipart form", apperr.ErrInvalidInput))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: file is required", apperr.ErrInvalidInput))
		return
	}
	defer file.Close()

	if hdr.Size > h.MaxUpload {
		h.fail(w, r, fmt.Errorf("%w: upload exceeds %d MB", apperr.ErrInvalidInput, h.MaxUpload>>20))
		return
	}
	if folderID == nil {
		if folderID, err = inputval.ParseOptionalObjectID(r.FormValue("folder_id"), "folder_id"); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	uid := actor(r)
	v, err := h.Files.Upload(ctx, uid, filesvc.UploadInput{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
		Body:        file,
		FolderID:    folderID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.FileEvent(ctx, r, audit.EventFileUploaded, uid, v.File)
	writeJSON(w, http.StatusCreated, v)
}

type registerRequest struct {
	Name        string `json:"name" validate:"required,max=255" label:"Name"`
	StorageID   string `json:"storage_id" validate:"required,max=512" label:"Storage id"`
	Type        string `json:"type" validate:"omitempty,filetype" label:"Type"`
	FolderID    string `json:"folder_id" validate:"omitempty,objectid" label:"Folder"`
	Size        int64  `json:"size" validate:"min=0" label:"Size"`
	ContentType string `json:"content_type" validate:"max=255" label:"Content type"`
}

// HandleRegister handles POST /api/files/register, recording a blob that
// was stored out of band (e.g. a direct S3 upload).
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := inputval.Validate(req).Err(); err != nil {
		h.fail(w, r, err)
		return
	}
	folderID, err := inputval.ParseOptionalObjectID(req.FolderID, "folder_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := shortCtx(r)
	defer cancel()

	uid := actor(r)
	v, err := h.Files.Create(ctx, uid, filesvc.CreateInput{
		Name:        req.Name,
		StorageID:   req.StorageID,
		Type:        req.Type,
		FolderID:    folderID,
		Size:        req.Size,
		ContentType: req.ContentType,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.FileEvent(ctx, r, audit.EventFileUploaded, uid, v.File)
	writeJSON(w, http.StatusCreated, v)
}

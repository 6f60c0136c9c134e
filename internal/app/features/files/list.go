// internal/app/features/files/list.go
package files

import (
	"net/http"
	"strings"

	filesvc "github.com/dalemusser/stratadrive/internal/app/services/files"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/app/system/normalize"
	"github.com/go-chi/chi/v5"
)

// ServeList handles GET /api/files?query=&favorites=&deleted=&type=&folder_id=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	folderID, err := inputval.ParseOptionalObjectID(q.Get("folder_id"), "folder_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := shortCtx(r)
	defer cancel()

	list, err := h.Files.List(ctx, actor(r), filesvc.Filter{
		Query:         strings.TrimSpace(q.Get("query")),
		FavoritesOnly: parseBool(q.Get("favorites")),
		DeletedOnly:   parseBool(q.Get("deleted")),
		Type:          normalize.FileType(q.Get("type")),
		FolderID:      folderID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeList(w, list)
}

// ServeFavorites handles GET /api/favorites.
func (h *Handler) ServeFavorites(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := shortCtx(r)
	defer cancel()

	list, err := h.Files.ListFavorites(ctx, actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeList(w, list)
}

// ServeFile handles GET /api/files/{id}.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ParseObjectID(chi.URLParam(r, "id"), "file id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := shortCtx(r)
	defer cancel()

	v, err := h.Files.Get(ctx, actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ServeByStorageID handles GET /api/files/storage/{storageID}.
func (h *Handler) ServeByStorageID(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := shortCtx(r)
	defer cancel()

	v, err := h.Files.GetByStorageID(ctx, actor(r), chi.URLParam(r, "storageID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeList(w http.ResponseWriter, list []filesvc.FileView) {
	if list == nil {
		list = []filesvc.FileView{}
	}
	writeJSON(w, http.StatusOK, listResponse{Files: list, Count: len(list)})
}

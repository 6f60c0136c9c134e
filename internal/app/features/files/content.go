// internal/app/features/files/content.go
package files

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ServeContent handles GET /api/files/{id}/content, streaming the blob of
// a file the caller may view.
func (h *Handler) ServeContent(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ParseObjectID(chi.URLParam(r, "id"), "file id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	rc, f, err := h.Files.Open(ctx, actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer rc.Close()

	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": f.Name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if f.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.Log.Warn("stream file content", zap.String("file_id", id.Hex()), zap.Error(err))
	}
}

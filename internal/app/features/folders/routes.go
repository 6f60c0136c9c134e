// internal/app/features/folders/routes.go
package folders

import (
	"net/http"

	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the folder endpoints, typically under /api/folders.
// upload serves POST /{id}/files; it lives in the files feature.
func Routes(h *Handler, sm *auth.SessionManager, upload http.HandlerFunc) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Get("/{id}", h.ServeFolder)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Post("/{id}/restore", h.HandleRestore)
		pr.Patch("/{id}/parent", h.HandleMove)
		if upload != nil {
			pr.Post("/{id}/files", upload)
		}
	})

	return r
}

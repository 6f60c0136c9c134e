// internal/app/features/identitysync/routes.go
package identitysync

import "github.com/go-chi/chi/v5"

// Routes mounts the sync endpoints. Typically under /internal/identity/users.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(h.RequireInternalKey)
	r.Post("/", h.HandleCreate)
	r.Patch("/{token}", h.HandleUpdate)
	r.Delete("/{token}", h.HandleDelete)
	return r
}

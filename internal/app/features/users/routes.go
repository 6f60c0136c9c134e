// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the user endpoints. Typically under /api/users.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/{id}/profile", h.ServeProfile)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleSuperAdmin))
		pr.Patch("/{id}/role", h.HandleSetRole)
	})

	return r
}

// internal/app/features/files/routes.go
package files

import (
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the owner-facing file endpoints. Typically under /api/files.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleUpload)
		pr.Post("/register", h.HandleRegister)
		pr.Get("/storage/{storageID}", h.ServeByStorageID)

		pr.Get("/{id}", h.ServeFile)
		pr.Get("/{id}/content", h.ServeContent)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Post("/{id}/restore", h.HandleRestore)
		pr.Post("/{id}/favorite", h.HandleToggleFavorite)
	})

	return r
}

// FavoritesRoutes serves GET /. Mount under /api/favorites.
func FavoritesRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireSignedIn).Get("/", h.ServeFavorites)
	return r
}

// AdminRoutes serves permanent deletes. Mount under /api/admin/files.
func AdminRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireRole(models.RoleAdmin)).Delete("/{id}", h.HandlePurge)
	return r
}

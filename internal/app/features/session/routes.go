// internal/app/features/session/routes.go
package session

import "github.com/go-chi/chi/v5"

// Routes serves the session endpoints. Mount under /auth/session.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleEstablish)
	r.Delete("/", h.HandleClear)
	return r
}

// MeRoutes serves GET /. Mount under /api/me.
func MeRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeMe)
	return r
}

// internal/app/features/approvals/routes.go
package approvals

import (
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the approval endpoints, typically under /api/approvals.
//
// Decisions are only guarded by sign-in at the router so that refused
// attempts reach the service and land in the audit log.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/", h.HandleCreate)
		pr.Post("/{id}/approve", h.HandleApprove)
		pr.Post("/{id}/reject", h.HandleReject)
		pr.Post("/{id}/revert", h.HandleRevert)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(sm.RequireRole(models.RoleAdmin))

		ar.Get("/", h.ServeList)
		ar.Get("/files/{fileID}", h.ServeOpenForFile)
		ar.Get("/files/{fileID}/history", h.ServeHistory)
		ar.Delete("/files/{fileID}", h.HandleDeleteRecords)
	})

	return r
}

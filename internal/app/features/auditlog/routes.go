// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit log listing (typically under "/api/admin/audit").
//
// Access is restricted to admins. Admins see events of their own tenant;
// super-admins see all events.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleAdmin))

		pr.Get("/", h.ServeList)
	})

	return r
}

// internal/app/features/users/handler.go
package users

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/stratadrive/internal/app/features/errors"
	"github.com/dalemusser/stratadrive/internal/app/services/identity"
	"github.com/dalemusser/stratadrive/internal/app/system/auditlog"
	"github.com/dalemusser/stratadrive/internal/app/system/authz"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/app/system/normalize"
	"github.com/dalemusser/stratadrive/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves user profiles and role management.
type Handler struct {
	Identity *identity.Service
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(ident *identity.Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Identity: ident, Audit: audit, Log: logger}
}

// ServeProfile handles GET /api/users/{id}/profile. Unknown users get the
// placeholder profile rather than a 404.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ParseObjectID(chi.URLParam(r, "id"), "user id")
	if err != nil {
		errorsfeature.WriteError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Identity.GetProfile(ctx, id)
	if err != nil {
		errorsfeature.WriteError(w, r, h.Log, err)
		return
	}
	errorsfeature.WriteJSON(w, http.StatusOK, p)
}

type roleRequest struct {
	Role string `json:"role" validate:"required,role" label:"Role"`
}

// HandleSetRole handles PATCH /api/users/{id}/role.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	_, _, actorID, _ := authz.UserCtx(r)
	targetID, err := inputval.ParseObjectID(chi.URLParam(r, "id"), "user id")
	if err != nil {
		errorsfeature.WriteError(w, r, h.Log, err)
		return
	}

	var req roleRequest
	if err := errorsfeature.DecodeJSON(w, r, &req); err != nil {
		errorsfeature.WriteError(w, r, h.Log, err)
		return
	}
	if err := inputval.Validate(req).Err(); err != nil {
		errorsfeature.WriteError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	before, err := h.Identity.SetRole(ctx, actorID, targetID, req.Role)
	if err != nil {
		errorsfeature.WriteError(w, r, h.Log, err)
		return
	}

	after := *before
	after.Role = normalize.Role(req.Role)
	h.Audit.RoleChanged(ctx, r, actorID, after, before.Role)
	h.Log.Info("role changed",
		zap.String("user_id", after.ID.Hex()),
		zap.String("from", before.Role),
		zap.String("to", after.Role))

	errorsfeature.WriteJSON(w, http.StatusOK, after)
}

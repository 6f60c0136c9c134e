// internal/app/features/session/handler.go
package session

import (
	"context"
	"fmt"
	"net/http"

	errorsfeature "github.com/dalemusser/stratadrive/internal/app/features/errors"
	"github.com/dalemusser/stratadrive/internal/app/services/identity"
	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/auditlog"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/timeouts"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler turns a verified identity token into a cookie session and
// answers "who am I".
type Handler struct {
	Identity   *identity.Service
	SessionMgr *auth.SessionManager
	Audit      *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(ident *identity.Service, sm *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Identity:   ident,
		SessionMgr: sm,
		Audit:      audit,
		Log:        logger,
	}
}

// meResponse wraps the user so a signed-out caller gets {"user": null}.
type meResponse struct {
	User *models.User `json:"user"`
}

// HandleEstablish handles POST /auth/session.
// The request must carry a bearer token that resolves to an active user;
// the cookie session then carries the same identity.
func (h *Handler) HandleEstablish(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.WriteError(w, r, h.Log, fmt.Errorf("%w: a valid identity token is required", apperr.ErrUnauthenticated))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.SessionMgr.EstablishSession(w, r, su.TokenIdentifier); err != nil {
		errorsfeature.WriteError(w, r, h.Log, err)
		return
	}

	uid, _ := primitive.ObjectIDFromHex(su.ID)
	if err := h.Identity.TouchLogin(ctx, uid); err != nil {
		h.Log.Warn("touch login failed", zap.String("user_id", su.ID), zap.Error(err))
	}
	h.Audit.SessionEstablished(ctx, r, audit.EventSessionEstablished, uid, su.TenantID)

	u, err := h.Identity.GetMe(ctx, su.TokenIdentifier)
	if err != nil {
		errorsfeature.WriteError(w, r, h.Log, err)
		return
	}
	errorsfeature.WriteJSON(w, http.StatusOK, meResponse{User: u})
}

// HandleClear handles DELETE /auth/session.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.ClearSession(w, r); err != nil {
		h.Log.Warn("clear session failed", zap.Error(err))
	}
	if su, ok := auth.CurrentUser(r); ok {
		uid, _ := primitive.ObjectIDFromHex(su.ID)
		h.Audit.SessionEstablished(r.Context(), r, audit.EventSessionCleared, uid, su.TenantID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeMe handles GET /api/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.WriteJSON(w, http.StatusOK, meResponse{})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Identity.GetMe(ctx, su.TokenIdentifier)
	if err != nil {
		errorsfeature.WriteError(w, r, h.Log, err)
		return
	}
	errorsfeature.WriteJSON(w, http.StatusOK, meResponse{User: u})
}

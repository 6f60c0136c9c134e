// internal/app/features/identitysync/handler.go
package identitysync

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	errorsfeature "github.com/dalemusser/stratadrive/internal/app/features/errors"
	"github.com/dalemusser/stratadrive/internal/app/services/identity"
	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/auditlog"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/app/system/timeouts"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// KeyHeader carries the shared secret of the identity provider.
const KeyHeader = "X-Internal-Key"

// Handler receives user lifecycle pushes from the identity provider.
type Handler struct {
	Identity *identity.Service
	KeyHash  []byte // bcrypt hash of the internal API key; empty disables the endpoints
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(ident *identity.Service, keyHash string, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Identity: ident,
		KeyHash:  []byte(strings.TrimSpace(keyHash)),
		Audit:    audit,
		Log:      logger,
	}
}

// RequireInternalKey rejects requests whose X-Internal-Key does not match
// the configured hash.
func (h *Handler) RequireInternalKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(h.KeyHash) == 0 {
			errorsfeature.WriteError(w, r, h.Log, fmt.Errorf("%w: identity sync is not configured", apperr.ErrForbidden))
			return
		}
		key := r.Header.Get(KeyHeader)
		if key == "" || bcrypt.CompareHashAndPassword(h.KeyHash, []byte(key)) != nil {
			h.Log.Warn("identity sync: bad internal key", zap.String("remote", r.RemoteAddr))
			errorsfeature.WriteError(w, r, h.Log, fmt.Errorf("%w: invalid internal key", apperr.ErrUnauthenticated))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createRequest struct {
	TokenIdentifier string `json:"token_identifier" validate:"required,max=512" label:"Token identifier"`
	Name            string `json:"name" validate:"max=200" label:"Name"`
	Email           string `json:"email" validate:"omitempty,mailaddr" label:"Email"`
	Image           string `json:"image" validate:"omitempty,httpurl" label:"Image"`
	TenantID        string `json:"tenant_id" validate:"max=100" label:"Tenant"`
}

// HandleCreate handles POST /internal/identity/users.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
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

	u, err := h.Identity.Create(ctx, identity.CreateInput{
		TokenIdentifier: req.TokenIdentifier,
		Name:            req.Name,
		Email:           req.Email,
		Image:           req.Image,
		TenantID:        req.TenantID,
	})
	if err != nil {
		errorsfeature.WriteError(w, r, h.Log, err)
		return
	}
	h.Audit.UserSynced(ctx, r, audit.EventUserCreated, u)
	errorsfeature.WriteJSON(w, http.StatusCreated, u)
}

type updateRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=200" label:"Name"`
	Email *string `json:"email" validate:"omitempty,mailaddr" label:"Email"`
	Image *string `json:"image" validate:"omitempty,httpurl" label:"Image"`
}

// HandleUpdate handles PATCH /internal/identity/users/{token}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
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

	u, err := h.Identity.Update(ctx, chi.URLParam(r, "token"), models.UserUpdate{
		Name:  req.Name,
		Email: req.Email,
		Image: req.Image,
	})
	if err != nil {
		errorsfeature.WriteError(w, r, h.Log, err)
		return
	}
	h.Audit.UserSynced(ctx, r, audit.EventUserUpdated, *u)
	errorsfeature.WriteJSON(w, http.StatusOK, u)
}

// HandleDelete handles DELETE /internal/identity/users/{token}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Identity.Delete(ctx, chi.URLParam(r, "token"))
	if err != nil {
		errorsfeature.WriteError(w, r, h.Log, err)
		return
	}
	h.Audit.UserSynced(ctx, r, audit.EventUserDeleted, *u)
	w.WriteHeader(http.StatusNoContent)
}

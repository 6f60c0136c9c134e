// internal/app/features/approvals/handler.go
package approvals

import (
	"context"
	"errors"
	"net/http"

	errorsfeature "github.com/dalemusser/stratadrive/internal/app/features/errors"
	approvalsvc "github.com/dalemusser/stratadrive/internal/app/services/approvals"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/auditlog"
	"github.com/dalemusser/stratadrive/internal/app/system/authz"
	"github.com/dalemusser/stratadrive/internal/app/system/timeouts"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves approval requests and admin decisions.
type Handler struct {
	Approvals *approvalsvc.Service
	Audit     *auditlog.Logger
	Log       *zap.Logger
}

func NewHandler(approvals *approvalsvc.Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Approvals: approvals, Audit: audit, Log: logger}
}

type listResponse struct {
	Approvals []models.ApprovalRequest `json:"approvals"`
	Count     int                      `json:"count"`
}

func writeList(w http.ResponseWriter, list []models.ApprovalRequest) {
	if list == nil {
		list = []models.ApprovalRequest{}
	}
	errorsfeature.WriteJSON(w, http.StatusOK, listResponse{Approvals: list, Count: len(list)})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	errorsfeature.WriteError(w, r, h.Log, err)
}

func actor(r *http.Request) primitive.ObjectID {
	_, _, uid, _ := authz.UserCtx(r)
	return uid
}

func shortCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), timeouts.Short())
}

// denied reports whether err is a refusal worth an audit entry: a caller
// without the rights, or a request not in a state that allows the action.
func denied(err error) bool {
	return errors.Is(err, apperr.ErrForbidden) ||
		errors.Is(err, apperr.ErrInvalidState) ||
		errors.Is(err, apperr.ErrInvalidTarget)
}

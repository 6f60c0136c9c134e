// internal/app/features/files/handler.go
package files

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	errorsfeature "github.com/dalemusser/stratadrive/internal/app/features/errors"
	filesvc "github.com/dalemusser/stratadrive/internal/app/services/files"
	"github.com/dalemusser/stratadrive/internal/app/system/auditlog"
	"github.com/dalemusser/stratadrive/internal/app/system/authz"
	"github.com/dalemusser/stratadrive/internal/app/system/limits"
	"github.com/dalemusser/stratadrive/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves file metadata, uploads and contents.
type Handler struct {
	Files     *filesvc.Service
	Audit     *auditlog.Logger
	Log       *zap.Logger
	MaxUpload int64 // bytes per file
}

func NewHandler(files *filesvc.Service, audit *auditlog.Logger, logger *zap.Logger, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = limits.DefaultMaxUpload
	}
	return &Handler{
		Files:     files,
		Audit:     audit,
		Log:       logger,
		MaxUpload: maxUpload,
	}
}

type listResponse struct {
	Files []filesvc.FileView `json:"files"`
	Count int                `json:"count"`
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	errorsfeature.WriteError(w, r, h.Log, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	errorsfeature.WriteJSON(w, status, v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return errorsfeature.DecodeJSON(w, r, dst)
}

func shortCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), timeouts.Short())
}

// actor returns the signed-in user's id. A malformed context user yields
// the zero id, which the services reject as unauthenticated.
func actor(r *http.Request) primitive.ObjectID {
	_, _, uid, _ := authz.UserCtx(r)
	return uid
}

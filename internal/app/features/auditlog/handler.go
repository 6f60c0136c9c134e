// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"

	"github.com/dalemusser/stratadrive/internal/app/services/identity"
	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"go.uber.org/zap"
)

// EventQuerier reads stored audit events. audit.Store and the memory
// backend implement it.
type EventQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	CountByFilter(ctx context.Context, filter audit.QueryFilter) (int64, error)
}

type Handler struct {
	Events EventQuerier
	Users  identity.UserGetter
	Log    *zap.Logger
}

// NewHandler constructs an Audit Log feature handler bound to the event
// store and the user lookup used to resolve actor names.
func NewHandler(events EventQuerier, users identity.UserGetter, logger *zap.Logger) *Handler {
	return &Handler{
		Events: events,
		Users:  users,
		Log:    logger,
	}
}

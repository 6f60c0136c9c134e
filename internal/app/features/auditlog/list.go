// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/stratadrive/internal/app/features/errors"
	"github.com/dalemusser/stratadrive/internal/app/policy/filepolicy"
	"github.com/dalemusser/stratadrive/internal/app/services/identity"
	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/authz"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/app/system/paging"
	"github.com/dalemusser/stratadrive/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// ServeList handles GET /api/admin/audit?category=&event_type=&file_id=
// &start_date=&end_date=&start=&limit=. Admins see their own tenant,
// super-admins every tenant.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	_, _, uid, _ := authz.UserCtx(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	actor, err := identity.LoadActor(ctx, h.Users, uid)
	if err != nil {
		errorsfeature.WriteError(w, r, h.Log, err)
		return
	}
	tenant, ok := filepolicy.ReviewScope(*actor)
	if !ok {
		errorsfeature.WriteError(w, r, h.Log, fmt.Errorf("%w: only admins can read the audit log", apperr.ErrForbidden))
		return
	}

	page := paging.Parse(r)
	filter, err := parseFilter(r)
	if err != nil {
		errorsfeature.WriteError(w, r, h.Log, err)
		return
	}
	filter.TenantID = tenant
	filter.Limit = page.LimitPlusOne()
	filter.Offset = page.Offset()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		errorsfeature.WriteError(w, r, h.Log, fmt.Errorf("query audit events: %w", err))
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		errorsfeature.WriteError(w, r, h.Log, fmt.Errorf("count audit events: %w", err))
		return
	}
	res := paging.TrimPage(&events, page)

	names := h.resolveNames(ctx, events)
	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			TenantID:      e.TenantID,
			Category:      e.Category,
			EventType:     e.EventType,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.ActorID != nil {
			item.ActorName = nameOr(names, *e.ActorID)
		}
		if e.UserID != nil {
			item.TargetName = nameOr(names, *e.UserID)
		}
		if e.FileID != nil {
			item.FileID = e.FileID.Hex()
		}
		if e.ApprovalID != nil {
			item.ApprovalID = e.ApprovalID.Hex()
		}
		items = append(items, item)
	}

	errorsfeature.WriteJSON(w, http.StatusOK, listResponse{
		Events: items,
		Total:  total,
		Range:  paging.ComputeRange(page, len(items)),
		Result: res,
	})
}

func parseFilter(r *http.Request) (audit.QueryFilter, error) {
	q := r.URL.Query()
	f := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("event_type")),
	}
	if f.Category != "" {
		if _, ok := categories[f.Category]; !ok {
			return f, fmt.Errorf("%w: unknown category %q", apperr.ErrInvalidInput, f.Category)
		}
	}
	if f.EventType != "" && !knownEventType(f.Category, f.EventType) {
		return f, fmt.Errorf("%w: unknown event type %q", apperr.ErrInvalidInput, f.EventType)
	}

	fileID, err := inputval.ParseOptionalObjectID(q.Get("file_id"), "file_id")
	if err != nil {
		return f, err
	}
	f.FileID = fileID

	if s := strings.TrimSpace(q.Get("start_date")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, fmt.Errorf("%w: start_date must be YYYY-MM-DD", apperr.ErrInvalidInput)
		}
		f.StartTime = &t
	}
	if s := strings.TrimSpace(q.Get("end_date")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, fmt.Errorf("%w: end_date must be YYYY-MM-DD", apperr.ErrInvalidInput)
		}
		// End of day
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		f.EndTime = &endOfDay
	}
	return f, nil
}

// resolveNames looks up the display names of every actor and target user
// in events. Lookup failures leave the id in place.
func (h *Handler) resolveNames(ctx context.Context, events []audit.Event) map[primitive.ObjectID]string {
	names := make(map[primitive.ObjectID]string)
	for _, e := range events {
		for _, id := range []*primitive.ObjectID{e.ActorID, e.UserID} {
			if id == nil {
				continue
			}
			if _, done := names[*id]; done {
				continue
			}
			u, err := h.Users.GetByID(ctx, *id)
			if err != nil {
				h.Log.Debug("audit name lookup", zap.String("user_id", id.Hex()), zap.Error(err))
				names[*id] = ""
				continue
			}
			names[*id] = u.Name
		}
	}
	return names
}

func nameOr(names map[primitive.ObjectID]string, id primitive.ObjectID) string {
	if n := names[id]; n != "" {
		return n
	}
	return id.Hex()
}

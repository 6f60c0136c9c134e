// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EventStore persists audit events. audit.Store and the memory backend
// implement it.
type EventStore interface {
	Log(ctx context.Context, event audit.Event) error
}

// Config holds audit logging configuration, one setting per category.
// Values: "all" (store + zap), "db" (store only), "log" (zap only), "off".
type Config struct {
	Identity  string
	Files     string
	Approvals string
}

// Logger provides convenience methods for logging audit events.
// It logs to the event store and to structured logs (via zap).
type Logger struct {
	store  EventStore
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. A nil store downgrades "all" and "db"
// to zap only.
func New(store EventStore, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func userAgent(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.UserAgent()
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.TenantID != "" {
		fields = append(fields, zap.String("tenant_id", event.TenantID))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FileID != nil {
		fields = append(fields, zap.String("file_id", event.FileID.Hex()))
	}
	if event.ApprovalID != nil {
		fields = append(fields, zap.String("approval_id", event.ApprovalID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) settingFor(category string) string {
	var s string
	switch category {
	case audit.CategoryIdentity:
		s = l.config.Identity
	case audit.CategoryFiles:
		s = l.config.Files
	case audit.CategoryApproval:
		s = l.config.Approvals
	}
	if s == "" {
		return "all"
	}
	return s
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := l.settingFor(event.Category)
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" || l.store == nil {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func oidPtr(id primitive.ObjectID) *primitive.ObjectID {
	if id.IsZero() {
		return nil
	}
	return &id
}

// --- Identity events ---

// UserSynced logs a user created, updated or deleted by identity sync.
func (l *Logger) UserSynced(ctx context.Context, r *http.Request, eventType string, u models.User) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryIdentity,
		EventType: eventType,
		TenantID:  u.TenantID,
		UserID:    oidPtr(u.ID),
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"token_identifier": u.TokenIdentifier},
	})
}

// RoleChanged logs a role assignment.
func (l *Logger) RoleChanged(ctx context.Context, r *http.Request, actorID primitive.ObjectID, target models.User, oldRole string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryIdentity,
		EventType: audit.EventRoleChanged,
		TenantID:  target.TenantID,
		UserID:    oidPtr(target.ID),
		ActorID:   oidPtr(actorID),
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"from": oldRole, "to": target.Role},
	})
}

// SessionEstablished logs a cookie session being set up or cleared.
func (l *Logger) SessionEstablished(ctx context.Context, r *http.Request, eventType string, userID primitive.ObjectID, tenantID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryIdentity,
		EventType: eventType,
		TenantID:  tenantID,
		UserID:    oidPtr(userID),
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
	})
}

// --- File events ---

// FileEvent logs an owner or admin action on a file.
func (l *Logger) FileEvent(ctx context.Context, r *http.Request, eventType string, actorID primitive.ObjectID, f models.File) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryFiles,
		EventType: eventType,
		TenantID:  f.TenantID,
		ActorID:   oidPtr(actorID),
		FileID:    oidPtr(f.ID),
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"name": f.Name, "storage_id": f.StorageID},
	})
}

// FolderEvent logs an owner action on a folder.
func (l *Logger) FolderEvent(ctx context.Context, r *http.Request, eventType string, actorID primitive.ObjectID, f models.Folder) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryFiles,
		EventType: eventType,
		TenantID:  f.TenantID,
		ActorID:   oidPtr(actorID),
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"folder_id": f.ID.Hex(), "name": f.Name},
	})
}

// FilesSwept logs a garbage-collector pass that did something.
func (l *Logger) FilesSwept(ctx context.Context, deleted, failed int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryFiles,
		EventType: audit.EventFilesSwept,
		Success:   failed == 0,
		Details: map[string]string{
			"deleted": strconv.Itoa(deleted),
			"failed":  strconv.Itoa(failed),
		},
	})
}

// --- Approval events ---

// ApprovalRequested logs a new approval request.
func (l *Logger) ApprovalRequested(ctx context.Context, r *http.Request, a models.ApprovalRequest) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryApproval,
		EventType:  audit.EventApprovalRequested,
		TenantID:   a.TenantID,
		ActorID:    oidPtr(a.RequestedBy.ID),
		FileID:     oidPtr(a.FileID),
		ApprovalID: oidPtr(a.ID),
		IP:         getClientIP(r),
		UserAgent:  userAgent(r),
		Success:    true,
		Details:    map[string]string{"type": a.Type},
	})
}

// ApprovalDecided logs an accept, reject or revert. a is the approval as
// it was stored after the transition.
func (l *Logger) ApprovalDecided(ctx context.Context, r *http.Request, eventType string, actorID primitive.ObjectID, a models.ApprovalRequest) {
	details := map[string]string{"type": a.Type, "status": a.Status}
	if a.AdminSignature != "" {
		details["signature"] = a.AdminSignature
	}
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryApproval,
		EventType:  eventType,
		TenantID:   a.TenantID,
		ActorID:    oidPtr(actorID),
		FileID:     oidPtr(a.FileID),
		ApprovalID: oidPtr(a.ID),
		IP:         getClientIP(r),
		UserAgent:  userAgent(r),
		Success:    true,
		Details:    details,
	})
}

// ApprovalDenied logs a decision attempt that failed a precondition.
func (l *Logger) ApprovalDenied(ctx context.Context, r *http.Request, eventType string, actorID, approvalID primitive.ObjectID, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryApproval,
		EventType:     eventType,
		ActorID:       oidPtr(actorID),
		ApprovalID:    oidPtr(approvalID),
		IP:            getClientIP(r),
		UserAgent:     userAgent(r),
		Success:       false,
		FailureReason: reason,
	})
}

// ApprovalRecordsDeleted logs the purge of a file's approval history.
func (l *Logger) ApprovalRecordsDeleted(ctx context.Context, r *http.Request, actorID, fileID primitive.ObjectID, count int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryApproval,
		EventType: audit.EventApprovalRecordsDeleted,
		ActorID:   oidPtr(actorID),
		FileID:    oidPtr(fileID),
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"count": strconv.FormatInt(count, 10)},
	})
}

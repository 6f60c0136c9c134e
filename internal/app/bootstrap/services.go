// internal/app/bootstrap/services.go
package bootstrap

import (
	approvalsvc "github.com/dalemusser/stratadrive/internal/app/services/approvals"
	filesvc "github.com/dalemusser/stratadrive/internal/app/services/files"
	foldersvc "github.com/dalemusser/stratadrive/internal/app/services/folders"
	"github.com/dalemusser/stratadrive/internal/app/services/gc"
	"github.com/dalemusser/stratadrive/internal/app/services/identity"
	"github.com/dalemusser/stratadrive/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Services bundles the domain services built over one set of stores.
type Services struct {
	Identity  *identity.Service
	Files     *filesvc.Service
	Folders   *foldersvc.Service
	Approvals *approvalsvc.Service
	GC        *gc.Collector
	Audit     *auditlog.Logger
}

// BuildServices wires the domain services over deps. Also used by the
// operator CLI.
func BuildServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) Services {
	st := deps.Stores
	ident := identity.New(st.Users, logger)
	appr := approvalsvc.New(st.Users, st.Approvals, st.Files, logger)
	collector := gc.New(st.Files, st.Favorites, deps.Blobs, logger, appCfg.GCRetention)
	if appCfg.GCBatchSize > 0 {
		collector.BatchSize = appCfg.GCBatchSize
	}
	return Services{
		Identity:  ident,
		Files:     filesvc.New(st.Users, st.Files, st.Favorites, st.Folders, deps.Blobs, appr, logger),
		Folders:   foldersvc.New(st.Users, st.Folders, logger),
		Approvals: appr,
		GC:        collector,
		Audit: auditlog.New(st.Audit, logger, auditlog.Config{
			Identity:  appCfg.AuditLogIdentity,
			Files:     appCfg.AuditLogFiles,
			Approvals: appCfg.AuditLogApprovals,
		}),
	}
}

// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/stratadrive/internal/app/services/gc"
	"github.com/dalemusser/stratadrive/internal/app/services/identity"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/auditlog"
	"github.com/dalemusser/stratadrive/internal/app/system/timeouts"
	"github.com/dalemusser/stratadrive/internal/app/system/workers"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It applies
// timeouts, seeds the super-admin and starts the background file sweeper.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	svcs := BuildServices(appCfg, deps, logger)

	if token := strings.TrimSpace(appCfg.SuperAdminToken); token != "" {
		if err := ensureSuperAdmin(ctx, svcs.Identity, token, logger); err != nil {
			logger.Error("failed to ensure superadmin", zap.Error(err))
			return err
		}
	}

	if appCfg.GCInterval > 0 && deps.sweeper != nil {
		w := workers.NewFileSweeper(sweepFunc(svcs.GC, svcs.Audit), logger, appCfg.GCInterval)
		w.Start()
		deps.sweeper.w = w
		logger.Info("file sweeper started",
			zap.Duration("interval", appCfg.GCInterval),
			zap.Duration("retention", appCfg.GCRetention))
	}
	return nil
}

// sweepFunc runs one collection pass and audits passes that did work.
func sweepFunc(c *gc.Collector, audit *auditlog.Logger) workers.SweepFunc {
	return func(ctx context.Context) error {
		res, err := c.Sweep(ctx)
		if res.Deleted > 0 || res.Failed > 0 {
			audit.FilesSwept(ctx, res.Deleted, res.Failed)
		}
		return err
	}
}

// ensureSuperAdmin makes sure the user behind token exists with the
// super-admin role. An unknown token gets a new user.
func ensureSuperAdmin(ctx context.Context, ident *identity.Service, token string, logger *zap.Logger) error {
	u, err := ident.Users.GetByToken(ctx, token)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		created, cerr := ident.Create(ctx, identity.CreateInput{
			TokenIdentifier: token,
			Name:            "Super Admin",
		})
		if cerr != nil {
			return fmt.Errorf("create superadmin: %w", cerr)
		}
		u = &created
		logger.Info("created superadmin user", zap.String("token", token))
	case err != nil:
		return fmt.Errorf("load superadmin: %w", err)
	}

	if u.Role == models.RoleSuperAdmin {
		return nil
	}
	if _, err := ident.AssignRole(ctx, u.ID, models.RoleSuperAdmin); err != nil {
		return fmt.Errorf("promote superadmin: %w", err)
	}
	logger.Info("promoted user to superadmin", zap.String("token", token), zap.String("old_role", u.Role))
	return nil
}

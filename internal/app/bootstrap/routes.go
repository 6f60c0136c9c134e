// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	approvalsfeature "github.com/dalemusser/stratadrive/internal/app/features/approvals"
	auditlogfeature "github.com/dalemusser/stratadrive/internal/app/features/auditlog"
	errorsfeature "github.com/dalemusser/stratadrive/internal/app/features/errors"
	filesfeature "github.com/dalemusser/stratadrive/internal/app/features/files"
	foldersfeature "github.com/dalemusser/stratadrive/internal/app/features/folders"
	healthfeature "github.com/dalemusser/stratadrive/internal/app/features/health"
	identitysyncfeature "github.com/dalemusser/stratadrive/internal/app/features/identitysync"
	sessionfeature "github.com/dalemusser/stratadrive/internal/app/features/session"
	usersfeature "github.com/dalemusser/stratadrive/internal/app/features/users"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/blobstore"
	"github.com/dalemusser/stratadrive/internal/app/system/limits"
	"github.com/dalemusser/stratadrive/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. The session manager resolves the
// caller from either a bearer identity token or the session cookie, and
// every feature router is mounted under its API prefix.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	svcs := BuildServices(appCfg, deps, logger)

	// Bearer tokens are verified with the identity secret; the fetcher
	// re-loads the user on each request so role changes apply at once.
	sessionMgr.SetTokenVerifier(appCfg.IdentityJWTSecret, appCfg.IdentityJWTIssuer)
	sessionMgr.SetUserFetcher(svcs.Identity)

	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()

	// Loads the caller into the request context when signed in.
	r.Use(sessionMgr.LoadSessionUser)

	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators.
	var pinger healthfeature.Pinger
	if deps.MongoClient != nil {
		pinger = deps.MongoClient
	}
	healthHandler := healthfeature.NewHandler(pinger, appCfg.StorageType, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Local and memory blobs are served by the app; S3 hands out presigned URLs.
	if appCfg.StorageType != "s3" {
		r.Handle(appCfg.StorageBaseURL+"/*", http.StripPrefix(appCfg.StorageBaseURL, blobstore.Handler(deps.Blobs, logger)))
	}

	// Session and sync endpoints are throttled per client IP.
	var authLimiter *ratelimit.Limiter
	if appCfg.AuthRateLimit > 0 {
		authLimiter = ratelimit.New(appCfg.AuthRateLimit, time.Minute)
	}

	// Identity
	sessionHandler := sessionfeature.NewHandler(svcs.Identity, sessionMgr, svcs.Audit, logger)
	r.With(ratelimit.PerIP(authLimiter, "session", logger)).Mount("/auth/session", sessionfeature.Routes(sessionHandler))
	r.Mount("/api/me", sessionfeature.MeRoutes(sessionHandler))

	usersHandler := usersfeature.NewHandler(svcs.Identity, svcs.Audit, logger)
	r.Mount("/api/users", usersfeature.Routes(usersHandler, sessionMgr))

	syncHandler := identitysyncfeature.NewHandler(svcs.Identity, appCfg.InternalAPIKeyHash, svcs.Audit, logger)
	r.With(ratelimit.PerIP(authLimiter, "identity-sync", logger)).Mount("/internal/identity/users", identitysyncfeature.Routes(syncHandler))

	// Files and favorites
	filesHandler := filesfeature.NewHandler(svcs.Files, svcs.Audit, logger, limits.MaxUploadBytes(appCfg.MaxUploadMB))
	r.Mount("/api/files", filesfeature.Routes(filesHandler, sessionMgr))
	r.Mount("/api/favorites", filesfeature.FavoritesRoutes(filesHandler, sessionMgr))
	r.Mount("/api/admin/files", filesfeature.AdminRoutes(filesHandler, sessionMgr))

	// Folders; uploads into a folder go through the files handler.
	foldersHandler := foldersfeature.NewHandler(svcs.Folders, svcs.Audit, logger)
	r.Mount("/api/folders", foldersfeature.Routes(foldersHandler, sessionMgr, filesHandler.HandleUploadToFolder))

	// Approval workflow
	approvalsHandler := approvalsfeature.NewHandler(svcs.Approvals, svcs.Audit, logger)
	r.Mount("/api/approvals", approvalsfeature.Routes(approvalsHandler, sessionMgr))

	// Audit log (admins see their tenant, super-admins everything)
	auditHandler := auditlogfeature.NewHandler(deps.Stores.Audit, deps.Stores.Users, logger)
	r.Mount("/api/admin/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	return r, nil
}

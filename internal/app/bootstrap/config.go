// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for StrataDrive.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: STRATADRIVE_MONGO_URI, STRATADRIVE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: "mongo", Desc: "Persistence backend: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "strata_drive", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "stratadrive-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 24h, 720h)"},

	// Identity provider
	{Name: "identity_jwt_secret", Default: "", Desc: "HS256 secret used to verify bearer identity tokens"},
	{Name: "identity_jwt_issuer", Default: "", Desc: "Expected issuer of identity tokens (blank skips the check)"},
	{Name: "internal_api_key_hash", Default: "", Desc: "bcrypt hash of the identity sync key (blank disables /internal/identity)"},
	{Name: "superadmin_token", Default: "", Desc: "Token identifier of the superadmin user (promotes/creates on startup)"},

	// Blob storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local', 's3' or 'memory'"},
	{Name: "storage_local_path", Default: "./uploads/files", Desc: "Local storage path for uploaded files"},
	{Name: "storage_base_url", Default: "/blobs", Desc: "URL prefix for serving local and memory blobs"},

	// S3 configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "files/", Desc: "S3 key prefix"},
	{Name: "storage_s3_endpoint", Default: "", Desc: "S3-compatible endpoint URL (blank for AWS)"},
	{Name: "storage_s3_access_key", Default: "", Desc: "S3 access key (blank uses the default credential chain)"},
	{Name: "storage_s3_secret_key", Default: "", Desc: "S3 secret key"},
	{Name: "storage_url_expiry", Default: "15m", Desc: "Lifetime of presigned blob URLs"},

	{Name: "max_upload_mb", Default: 50, Desc: "Largest accepted upload in MB"},
	{Name: "auth_rate_limit", Default: 30, Desc: "Per-IP requests per minute on session and identity sync endpoints (0 disables)"},

	// Garbage collection
	{Name: "gc_interval", Default: "2m", Desc: "How often flagged files are swept (0 disables)"},
	{Name: "gc_retention", Default: "0s", Desc: "How long a flagged file is kept before it is swept"},
	{Name: "gc_batch_size", Default: 200, Desc: "Files removed per sweep batch"},

	// Timeouts for store calls made from handlers and workers
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document reads"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for list queries and simple writes"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for uploads, decisions and multi-record writes"},

	// Audit logging settings
	{Name: "audit_log_identity", Default: "all", Desc: "Identity event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_files", Default: "all", Desc: "File event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_approvals", Default: "all", Desc: "Approval event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STRATADRIVE_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "STRATADRIVE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend:     strings.ToLower(strings.TrimSpace(appValues.String("store_backend"))),
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 30*24*time.Hour),

		IdentityJWTSecret:  appValues.String("identity_jwt_secret"),
		IdentityJWTIssuer:  appValues.String("identity_jwt_issuer"),
		InternalAPIKeyHash: appValues.String("internal_api_key_hash"),
		SuperAdminToken:    appValues.String("superadmin_token"),

		StorageType:      strings.ToLower(strings.TrimSpace(appValues.String("storage_type"))),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageBaseURL:   strings.TrimRight(appValues.String("storage_base_url"), "/"),

		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageS3Endpoint:  appValues.String("storage_s3_endpoint"),
		StorageS3AccessKey: appValues.String("storage_s3_access_key"),
		StorageS3SecretKey: appValues.String("storage_s3_secret_key"),
		StorageURLExpiry:   appValues.Duration("storage_url_expiry", 15*time.Minute),

		MaxUploadMB:   appValues.Int("max_upload_mb"),
		AuthRateLimit: appValues.Int("auth_rate_limit"),

		GCInterval:  appValues.Duration("gc_interval", 2*time.Minute),
		GCRetention: appValues.Duration("gc_retention", 0),
		GCBatchSize: appValues.Int("gc_batch_size"),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),

		AuditLogIdentity:  appValues.String("audit_log_identity"),
		AuditLogFiles:     appValues.String("audit_log_files"),
		AuditLogApprovals: appValues.String("audit_log_approvals"),
	}

	return coreCfg, appCfg, nil
}

var auditSettings = map[string]bool{"all": true, "db": true, "log": true, "off": true}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI format is checked early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	var problems []string

	switch appCfg.StoreBackend {
	case "mongo":
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			problems = append(problems, fmt.Sprintf("invalid MongoDB URI: %v", err))
		}
		if strings.TrimSpace(appCfg.MongoDatabase) == "" {
			problems = append(problems, "mongo_database is required")
		}
	case "memory":
		if coreCfg != nil && coreCfg.Env == "prod" {
			logger.Warn("memory store backend in prod; all data is lost on restart")
		}
	default:
		problems = append(problems, fmt.Sprintf("store_backend must be 'mongo' or 'memory', got %q", appCfg.StoreBackend))
	}

	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" {
			problems = append(problems, "storage_local_path is required for local storage")
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" || appCfg.StorageS3Region == "" {
			problems = append(problems, "storage_s3_bucket and storage_s3_region are required for s3 storage")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("storage_type must be 'local', 's3' or 'memory', got %q", appCfg.StorageType))
	}
	if appCfg.StorageType != "s3" && !strings.HasPrefix(appCfg.StorageBaseURL, "/") {
		problems = append(problems, "storage_base_url must be an absolute path for local and memory storage")
	}

	if appCfg.IdentityJWTSecret == "" {
		logger.Warn("identity_jwt_secret is empty; bearer tokens will be rejected")
	}
	if appCfg.AuthRateLimit < 0 {
		problems = append(problems, "auth_rate_limit must not be negative")
	}
	if appCfg.GCInterval < 0 || appCfg.GCRetention < 0 {
		problems = append(problems, "gc_interval and gc_retention must not be negative")
	}
	for key, v := range map[string]string{
		"audit_log_identity":  appCfg.AuditLogIdentity,
		"audit_log_files":     appCfg.AuditLogFiles,
		"audit_log_approvals": appCfg.AuditLogApprovals,
	} {
		if v != "" && !auditSettings[v] {
			problems = append(problems, fmt.Sprintf("%s must be all, db, log or off", key))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

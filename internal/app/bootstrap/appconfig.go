// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration; ports, TLS, logging level
// and CORS live in WAFFLE's CoreConfig.
type AppConfig struct {
	// Persistence backend: "mongo" or "memory" (tests, demos)
	StoreBackend string

	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: stratadrive-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Identity provider
	IdentityJWTSecret  string // HS256 secret for bearer identity tokens
	IdentityJWTIssuer  string // expected "iss" claim; blank skips the check
	InternalAPIKeyHash string // bcrypt hash of the identity sync key
	SuperAdminToken    string // token identifier promoted to super-admin on startup

	// Blob storage configuration
	StorageType      string // "local", "s3" or "memory"
	StorageLocalPath string // root directory for "local"
	StorageBaseURL   string // URL prefix served by this app for local/memory blobs

	// S3 configuration (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageS3Endpoint  string // S3-compatible endpoint (MinIO etc.); blank for AWS
	StorageS3AccessKey string // blank uses the default credential chain
	StorageS3SecretKey string
	StorageURLExpiry   time.Duration // presigned URL lifetime

	// Uploads
	MaxUploadMB int

	// Per-IP requests per minute on the session and identity sync
	// endpoints; 0 disables throttling.
	AuthRateLimit int

	// Garbage collection of flagged files
	GCInterval  time.Duration // 0 disables the background sweeper
	GCRetention time.Duration // how long a flagged file is kept
	GCBatchSize int

	// Store and blob-store call timeouts; zero keeps the defaults.
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Audit logging: "all" (db+log), "db", "log", or "off" per category
	AuditLogIdentity  string
	AuditLogFiles     string
	AuditLogApprovals string
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dalemusser/stratadrive/internal/app/bootstrap"
)

// ctlConfig is the operator profile read from a TOML file. It carries the
// subset of server settings the maintenance commands need.
type ctlConfig struct {
	StoreBackend  string `toml:"store_backend"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`

	Storage storageConfig `toml:"storage"`
	GC      gcConfig      `toml:"gc"`

	IdentityJWTSecret string `toml:"identity_jwt_secret"`
	IdentityJWTIssuer string `toml:"identity_jwt_issuer"`
}

type storageConfig struct {
	Type      string `toml:"type"` // "local", "s3" or "memory"
	LocalPath string `toml:"local_path,omitempty"`
	BaseURL   string `toml:"base_url,omitempty"`

	S3Region    string `toml:"s3_region,omitempty"`
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
}

type gcConfig struct {
	Retention string `toml:"retention"` // Go duration, e.g. "24h"
	BatchSize int    `toml:"batch_size"`
}

func defaultCtlConfig() ctlConfig {
	return ctlConfig{
		StoreBackend:  "mongo",
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "strata_drive",
		Storage:       storageConfig{Type: "local", LocalPath: "./uploads/files", BaseURL: "/blobs", S3Prefix: "files/"},
		GC:            gcConfig{Retention: "0s", BatchSize: 200},
	}
}

// readCtlConfig decodes path over the defaults. A missing file is an error;
// unknown keys are reported so typos do not pass silently.
func readCtlConfig(path string) (ctlConfig, error) {
	cfg := defaultCtlConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}
	return cfg, nil
}

// appConfig maps the profile onto the server configuration.
func (c ctlConfig) appConfig() (bootstrap.AppConfig, error) {
	retention, err := time.ParseDuration(c.GC.Retention)
	if err != nil {
		return bootstrap.AppConfig{}, fmt.Errorf("gc.retention: %w", err)
	}
	return bootstrap.AppConfig{
		StoreBackend:       c.StoreBackend,
		MongoURI:           c.MongoURI,
		MongoDatabase:      c.MongoDatabase,
		MongoMaxPoolSize:   4,
		IdentityJWTSecret:  c.IdentityJWTSecret,
		IdentityJWTIssuer:  c.IdentityJWTIssuer,
		StorageType:        c.Storage.Type,
		StorageLocalPath:   c.Storage.LocalPath,
		StorageBaseURL:     c.Storage.BaseURL,
		StorageS3Region:    c.Storage.S3Region,
		StorageS3Bucket:    c.Storage.S3Bucket,
		StorageS3Prefix:    c.Storage.S3Prefix,
		StorageS3Endpoint:  c.Storage.S3Endpoint,
		StorageS3AccessKey: c.Storage.S3AccessKey,
		StorageS3SecretKey: c.Storage.S3SecretKey,
		StorageURLExpiry:   15 * time.Minute,
		GCRetention:        retention,
		GCBatchSize:        c.GC.BatchSize,
		AuditLogIdentity:   "db",
		AuditLogFiles:      "db",
		AuditLogApprovals:  "db",
	}, nil
}

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestReadCtlConfig(t *testing.T) {
	path := writeConfig(t, `
store_backend = "memory"
identity_jwt_secret = "s3cret"

[storage]
type = "s3"
s3_bucket = "drive"
s3_region = "us-east-2"

[gc]
retention = "24h"
`)
	cc, err := readCtlConfig(path)
	if err != nil {
		t.Fatalf("readCtlConfig: %v", err)
	}
	if cc.StoreBackend != "memory" || cc.Storage.Type != "s3" || cc.Storage.S3Bucket != "drive" {
		t.Errorf("decoded = %+v", cc)
	}
	// Defaults survive for keys the file does not set.
	if cc.MongoDatabase != "strata_drive" || cc.GC.BatchSize != 200 || cc.Storage.S3Prefix != "files/" {
		t.Errorf("defaults lost: %+v", cc)
	}

	appCfg, err := cc.appConfig()
	if err != nil {
		t.Fatalf("appConfig: %v", err)
	}
	if appCfg.GCRetention != 24*time.Hour || appCfg.StorageS3Region != "us-east-2" || appCfg.IdentityJWTSecret != "s3cret" {
		t.Errorf("app config = %+v", appCfg)
	}
}

func TestReadCtlConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "mongo_url = \"x\"\n", "unknown config keys"},
		{"bad toml", "store_backend = \n", "parsing config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readCtlConfig(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}

	if _, err := readCtlConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file accepted")
	}

	cc := defaultCtlConfig()
	cc.GC.Retention = "soon"
	if _, err := cc.appConfig(); err == nil || !strings.Contains(err.Error(), "gc.retention") {
		t.Errorf("bad retention err = %v", err)
	}
}

func TestHashKey(t *testing.T) {
	if _, err := hashKey("short"); err == nil {
		t.Error("short key accepted")
	}
	key := "a-long-internal-sync-key"
	h, err := hashKey(key)
	if err != nil {
		t.Fatalf("hashKey: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(h), []byte(key)) != nil {
		t.Error("hash does not match key")
	}
}

// Package blobstore stores file contents outside the database. The file
// metadata keeps only the key (storage_id) returned by NewKey.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no blob exists under a key.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidKey is returned for empty keys or keys that escape the store.
	ErrInvalidKey = errors.New("invalid blob key")
)

// Store is an object store for file contents.
type Store interface {
	// Put writes size bytes from r under key, replacing any existing blob.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Open returns the blob contents. The caller closes the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// URL returns a URL the client can fetch the blob from.
	URL(ctx context.Context, key string) (string, error)
	// Delete removes the blob. Missing blobs return ErrNotFound.
	Delete(ctx context.Context, key string) error
}

// Config selects and configures a backend.
type Config struct {
	Type string // "local", "s3" or "memory"

	LocalPath string // root directory for "local"
	BaseURL   string // URL prefix for "local" and "memory" blobs (e.g. /blobs)

	S3Region    string
	S3Bucket    string
	S3Prefix    string
	S3Endpoint  string // S3-compatible endpoint; empty for AWS
	S3AccessKey string // empty uses the default credential chain
	S3SecretKey string
	URLExpiry   time.Duration // presigned URL lifetime
}

// New creates a Store implementation based on cfg.Type.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemory(cfg.BaseURL), nil
	case "local", "":
		if cfg.LocalPath == "" {
			return nil, fmt.Errorf("local blob store requires storage_local_path to be set")
		}
		return NewLocal(cfg.LocalPath, cfg.BaseURL)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// NewKey returns a fresh, unguessable key for a file named filename.
// The extension is kept so content types survive on backends that do not
// record them.
func NewKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\ ") {
		ext = ""
	}
	return uuid.New().String() + ext
}

// ValidateKey rejects keys that are empty, absolute, or contain "..".
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

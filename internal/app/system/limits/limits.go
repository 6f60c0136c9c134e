// internal/app/system/limits/limits.go
package limits

// Request body size limits.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBody is the maximum size of a JSON request body.
	MaxJSONBody = 1 << 20 // 1 MB

	// DefaultMaxUpload is the default maximum size of a single uploaded file.
	// Overridden by the max_upload_mb setting.
	DefaultMaxUpload = 50 << 20 // 50 MB

	// MultipartMemory is how much of a multipart upload is buffered in
	// memory before spilling to temporary files.
	MultipartMemory = 8 << 20 // 8 MB
)

// MaxUploadBytes converts a configured megabyte limit to bytes, falling
// back to DefaultMaxUpload when mb is not positive.
func MaxUploadBytes(mb int) int64 {
	if mb <= 0 {
		return DefaultMaxUpload
	}
	return int64(mb) << 20
}

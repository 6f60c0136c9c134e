// Package normalize canonicalizes user input before it is validated or
// stored.
package normalize

import (
	"strings"

	"github.com/dalemusser/stratadrive/internal/domain/models"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name. Case is preserved.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Status trims and lowercases a status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Role trims and lowercases a role. The legacy spelling "superadmin" is
// mapped to models.RoleSuperAdmin.
func Role(s string) string {
	r := strings.ToLower(strings.TrimSpace(s))
	switch r {
	case "superadmin", "super_admin":
		return models.RoleSuperAdmin
	}
	return r
}

// FileType trims and lowercases a file type.
func FileType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TenantID trims a tenant id, substituting models.DefaultTenantID when empty.
func TenantID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.DefaultTenantID
	}
	return s
}

// QueryParam trims a query-string value. Case is preserved.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Flag interprets a query-string boolean. "1", "true", "yes" and "on" are
// true, case-insensitively; anything else is false.
func Flag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

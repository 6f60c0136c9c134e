// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false. Callers can trust that ok=true means a
// resolved user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in context - fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// HasRoleAtLeast reports whether the current user's role is min or higher.
func HasRoleAtLeast(r *http.Request, min string) bool {
	role, _, _, ok := UserCtx(r)
	return ok && models.RoleAtLeast(role, min)
}

// IsSuperAdmin reports whether the current request's user is a super-admin.
func IsSuperAdmin(r *http.Request) bool {
	return HasRoleAtLeast(r, models.RoleSuperAdmin)
}

// IsAdmin reports whether the current request's user is an admin.
// Super-admins are also considered admins.
func IsAdmin(r *http.Request) bool {
	return HasRoleAtLeast(r, models.RoleAdmin)
}

// TenantID returns the current user's tenant, or "" when not signed in.
func TenantID(r *http.Request) string {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return ""
	}
	return user.TenantID
}

// CanAccessTenant reports whether the current user may act on records of
// tenant. Super-admins span all tenants; everyone else is confined to
// their own.
func CanAccessTenant(r *http.Request, tenant string) bool {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return false
	}
	if models.RoleAtLeast(strings.ToLower(user.Role), models.RoleSuperAdmin) {
		return true
	}
	return user.TenantID == tenant
}

// Package filepolicy provides authorization policies for files, folders and
// approval requests.
//
// Authorization rules:
//   - Owners can view, delete, restore and favorite their own files and folders
//   - Admins can view and review files within their own tenant
//   - Super-admins can view and review files in every tenant
//   - Members cannot review files or read approval queues
//   - Only super-admins change roles
//
// Policies take the acting user as freshly loaded from the store, never the
// identity cached on the request.
package filepolicy

import (
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsOwner reports whether actor owns the record with the given owner id.
func IsOwner(actor models.User, ownerID primitive.ObjectID) bool {
	return !actor.ID.IsZero() && actor.ID == ownerID
}

// CanReview reports whether actor may decide approval requests.
func CanReview(actor models.User) bool {
	return actor.IsActive() && models.RoleAtLeast(actor.Role, models.RoleAdmin)
}

// CanActInTenant reports whether actor may review records of tenant.
//
// Authorization:
//   - Super-admin: any tenant
//   - Admin: own tenant only
//   - Others: never
func CanActInTenant(actor models.User, tenant string) bool {
	if !CanReview(actor) {
		return false
	}
	if models.RoleAtLeast(actor.Role, models.RoleSuperAdmin) {
		return true
	}
	return actor.TenantID == tenant
}

// CanViewFile reports whether actor may read f's metadata.
func CanViewFile(actor models.User, f models.File) bool {
	return IsOwner(actor, f.UserID) || CanActInTenant(actor, f.TenantID)
}

// ReviewScope returns the tenant filter for approval listings: "" for
// every tenant. ok is false when actor may not list approvals at all.
func ReviewScope(actor models.User) (tenant string, ok bool) {
	if !CanReview(actor) {
		return "", false
	}
	if models.RoleAtLeast(actor.Role, models.RoleSuperAdmin) {
		return "", true
	}
	return actor.TenantID, true
}

// CanManageRoles reports whether actor may change other users' roles.
func CanManageRoles(actor models.User) bool {
	return actor.IsActive() && models.RoleAtLeast(actor.Role, models.RoleSuperAdmin)
}

// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User status values.
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// DefaultTenantID is assigned to users synced without an explicit tenant.
const DefaultTenantID = "default"

// User is the internal record behind an external identity.
//
// NOTE:
//   - TokenIdentifier is the opaque identity token supplied by the identity
//     provider. It is unique across all users.
//   - Role is one of RoleMember, RoleAdmin, RoleSuperAdmin.
type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TokenIdentifier string             `bson:"token_identifier" json:"token_identifier"`
	Name            string             `bson:"name" json:"name"`
	NameCI          string             `bson:"name_ci" json:"-"`
	Email           string             `bson:"email,omitempty" json:"email,omitempty"`
	Image           string             `bson:"image,omitempty" json:"image,omitempty"`
	Role            string             `bson:"role" json:"role"`
	Status          string             `bson:"status" json:"status"`
	TenantID        string             `bson:"tenant_id" json:"tenant_id"`
	Permissions     []string           `bson:"permissions,omitempty" json:"permissions,omitempty"`

	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	LastLoginAt time.Time `bson:"last_login_at" json:"last_login_at"`
}

// IsActive reports whether the user may act in the system.
func (u User) IsActive() bool {
	return u.Status == "" || u.Status == UserStatusActive
}

// UserUpdate carries the profile fields an identity sync may change.
// Nil fields are left untouched.
type UserUpdate struct {
	Name  *string
	Email *string
	Image *string
}

// UserProfile is the public view of a user.
type UserProfile struct {
	Name   string `json:"name"`
	Image  string `json:"image,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

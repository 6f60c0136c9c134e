package filepolicy_test

import (
	"testing"

	"github.com/dalemusser/stratadrive/internal/app/policy/filepolicy"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func user(role, tenant string) models.User {
	return models.User{ID: primitive.NewObjectID(), Role: role, TenantID: tenant, Status: models.UserStatusActive}
}

func TestCanViewFile(t *testing.T) {
	owner := user(models.RoleMember, "acme")
	file := models.File{ID: primitive.NewObjectID(), UserID: owner.ID, TenantID: "acme"}

	disabledAdmin := user(models.RoleAdmin, "acme")
	disabledAdmin.Status = models.UserStatusDisabled

	tests := []struct {
		name  string
		actor models.User
		want  bool
	}{
		{"owner", owner, true},
		{"other member same tenant", user(models.RoleMember, "acme"), false},
		{"admin same tenant", user(models.RoleAdmin, "acme"), true},
		{"admin other tenant", user(models.RoleAdmin, "globex"), false},
		{"super-admin other tenant", user(models.RoleSuperAdmin, "globex"), true},
		{"disabled admin", disabledAdmin, false},
		{"zero user", models.User{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filepolicy.CanViewFile(tt.actor, file); got != tt.want {
				t.Errorf("CanViewFile = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReviewScope(t *testing.T) {
	tests := []struct {
		name       string
		actor      models.User
		wantTenant string
		wantOK     bool
	}{
		{"member", user(models.RoleMember, "acme"), "", false},
		{"admin", user(models.RoleAdmin, "acme"), "acme", true},
		{"super-admin", user(models.RoleSuperAdmin, "acme"), "", true},
		{"unknown role", user("owner", "acme"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenant, ok := filepolicy.ReviewScope(tt.actor)
			if tenant != tt.wantTenant || ok != tt.wantOK {
				t.Errorf("ReviewScope = (%q, %v), want (%q, %v)", tenant, ok, tt.wantTenant, tt.wantOK)
			}
		})
	}
}

func TestCanManageRoles(t *testing.T) {
	if filepolicy.CanManageRoles(user(models.RoleAdmin, "acme")) {
		t.Error("admin must not manage roles")
	}
	if !filepolicy.CanManageRoles(user(models.RoleSuperAdmin, "acme")) {
		t.Error("super-admin must manage roles")
	}
}

package users_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/features/users"
	"github.com/dalemusser/stratadrive/internal/app/services/identity"
	"github.com/dalemusser/stratadrive/internal/app/store/memstore"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/stratadrive/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	db      *memstore.DB
	handler http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := memstore.New()
	sm, err := auth.NewSessionManager("users-test-key-with-32-characters!!", "", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	h := users.NewHandler(identity.New(db.Users(), zap.NewNop()), nil, zap.NewNop())
	return &env{db: db, handler: users.Routes(h, sm)}
}

func (e *env) user(t *testing.T, name, role string) models.User {
	t.Helper()
	u, err := e.db.Users().Create(context.Background(), models.User{
		TokenIdentifier: "tok-" + name, Name: name, Role: role, TenantID: "acme",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestServeProfile(t *testing.T) {
	e := newEnv(t)
	ann := e.user(t, "Ann", models.RoleMember)
	bob := e.user(t, "Bob", models.RoleAdmin)

	rec := e.do(testutil.WithUser(testutil.NewRequest("GET", "/"+bob.ID.Hex()+"/profile"), ann))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var p models.UserProfile
	testutil.DecodeJSON(t, rec, &p)
	if p.Name != "Bob" || p.Role != models.RoleAdmin {
		t.Errorf("profile = %+v", p)
	}

	rec = e.do(testutil.WithUser(testutil.NewRequest("GET", "/"+primitive.NewObjectID().Hex()+"/profile"), ann))
	p = models.UserProfile{}
	testutil.DecodeJSON(t, rec, &p)
	if p != identity.UnknownProfile {
		t.Errorf("unknown user profile = %+v", p)
	}

	rec = e.do(testutil.WithUser(testutil.NewRequest("GET", "/not-an-id/profile"), ann))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", rec.Code)
	}

	rec = e.do(testutil.NewRequest("GET", "/"+bob.ID.Hex()+"/profile"))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("signed out status = %d", rec.Code)
	}
}

func TestHandleSetRole(t *testing.T) {
	e := newEnv(t)
	root := e.user(t, "Root", models.RoleSuperAdmin)
	admin := e.user(t, "Admin", models.RoleAdmin)
	ann := e.user(t, "Ann", models.RoleMember)

	tests := []struct {
		name     string
		actor    models.User
		body     any
		wantCode int
	}{
		{"admin is not enough", admin, map[string]string{"role": "admin"}, http.StatusForbidden},
		{"invalid role", root, map[string]string{"role": "owner"}, http.StatusBadRequest},
		{"unknown field", root, map[string]string{"rank": "admin"}, http.StatusBadRequest},
		{"promote", root, map[string]string{"role": "Admin"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewJSONRequest(t, "PATCH", "/"+ann.ID.Hex()+"/role", tt.body)
			rec := e.do(testutil.WithUser(req, tt.actor))
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}

	got, err := e.db.Users().GetByID(context.Background(), ann.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if got.Role != models.RoleAdmin {
		t.Errorf("role = %q, want admin", got.Role)
	}

	req := testutil.NewJSONRequest(t, "PATCH", "/"+primitive.NewObjectID().Hex()+"/role", map[string]string{"role": "admin"})
	if rec := e.do(testutil.WithUser(req, root)); rec.Code != http.StatusNotFound {
		t.Errorf("missing user status = %d", rec.Code)
	}
}

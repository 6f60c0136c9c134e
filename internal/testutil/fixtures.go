package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that call a handler method directly.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts records directly into a test database, bypassing
// stores and services.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an active user with the given role in tenant.
func (f *Fixtures) CreateUser(ctx context.Context, name, role, tenant string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:              primitive.NewObjectID(),
		TokenIdentifier: "tok-" + primitive.NewObjectID().Hex(),
		Name:            name,
		NameCI:          text.Fold(name),
		Role:            role,
		Status:          models.UserStatusActive,
		TenantID:        tenant,
		Permissions:     []string{"read", "upload"},
		CreatedAt:       now,
		LastLoginAt:     now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateFile inserts a pending file owned by owner.
func (f *Fixtures) CreateFile(ctx context.Context, owner models.User, name string) models.File {
	f.t.Helper()

	file := models.File{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Type:      models.FileTypePDF,
		StorageID: primitive.NewObjectID().Hex() + ".pdf",
		UserID:    owner.ID,
		TenantID:  owner.TenantID,
		Size:      128,
		Status:    models.FileStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("files").InsertOne(ctx, file); err != nil {
		f.t.Fatalf("failed to create test file: %v", err)
	}
	return file
}

// CreateFolder inserts a folder owned by owner under parent (nil = root).
func (f *Fixtures) CreateFolder(ctx context.Context, owner models.User, name string, parent *primitive.ObjectID) models.Folder {
	f.t.Helper()

	folder := models.Folder{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		UserID:    owner.ID,
		ParentID:  parent,
		TenantID:  owner.TenantID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("folders").InsertOne(ctx, folder); err != nil {
		f.t.Fatalf("failed to create test folder: %v", err)
	}
	return folder
}

// CreateApproval inserts an approval request for file with the given status.
func (f *Fixtures) CreateApproval(ctx context.Context, file models.File, requester models.User, typ, status string) models.ApprovalRequest {
	f.t.Helper()

	a := models.ApprovalRequest{
		ID:          primitive.NewObjectID(),
		FileID:      file.ID,
		FileName:    file.Name,
		TenantID:    file.TenantID,
		RequestedBy: models.Requester{ID: requester.ID, Name: requester.Name},
		RequestedAt: time.Now().UTC(),
		Type:        typ,
		Status:      status,
	}
	if _, err := f.db.Collection("approvals").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test approval: %v", err)
	}
	return a
}

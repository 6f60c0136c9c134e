package files_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dalemusser/stratadrive/internal/app/services/files"
	"github.com/dalemusser/stratadrive/internal/app/store/memstore"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/blobstore"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type recordingPurger struct {
	calls []primitive.ObjectID
}

func (p *recordingPurger) DeleteApprovalRecords(_ context.Context, fileID, _ primitive.ObjectID) (int64, error) {
	p.calls = append(p.calls, fileID)
	return 2, nil
}

type env struct {
	db     *memstore.DB
	blobs  *blobstore.Memory
	purger *recordingPurger
	svc    *files.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := memstore.New()
	blobs := blobstore.NewMemory("/blobs")
	purger := &recordingPurger{}
	svc := files.New(db.Users(), db.Files(), db.Favorites(), db.Folders(), blobs, purger, zap.NewNop())
	return &env{db: db, blobs: blobs, purger: purger, svc: svc}
}

func (e *env) user(t *testing.T, role, tenant string) models.User {
	t.Helper()
	u, err := e.db.Users().Create(context.Background(), models.User{
		TokenIdentifier: "tok-" + primitive.NewObjectID().Hex(),
		Name:            role + " user",
		Role:            role,
		TenantID:        tenant,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *env) upload(t *testing.T, owner models.User, name, body string) files.FileView {
	t.Helper()
	v, err := e.svc.Upload(context.Background(), owner.ID, files.UploadInput{
		Filename: name, Size: int64(len(body)), Body: strings.NewReader(body),
	})
	if err != nil {
		t.Fatalf("Upload(%s) failed: %v", name, err)
	}
	return v
}

func TestTypeFor(t *testing.T) {
	tests := []struct {
		name, filename, contentType, want string
		wantErr                           bool
	}{
		{"image content type", "x", "image/png", models.FileTypeImage, false},
		{"csv with params", "x", "text/csv; charset=utf-8", models.FileTypeCSV, false},
		{"pdf content type", "x", "application/pdf", models.FileTypePDF, false},
		{"extension fallback", "Photo.JPG", "application/octet-stream", models.FileTypeImage, false},
		{"csv extension", "data.csv", "", models.FileTypeCSV, false},
		{"unsupported", "run.exe", "application/x-msdownload", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := files.TypeFor(tt.filename, tt.contentType)
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("TypeFor = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestUpload(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, models.RoleMember, "acme")

	v := e.upload(t, owner, "Q3 <b>Report</b>.pdf", "%PDF-1.7")

	if v.Name != "Q3 Report.pdf" {
		t.Errorf("Name = %q, want markup stripped", v.Name)
	}
	if v.Status != models.FileStatusPending || v.ShouldDelete || v.IsApproved {
		t.Errorf("new upload should be pending and live: %+v", v.File)
	}
	if v.Type != models.FileTypePDF || v.TenantID != "acme" || v.UserID != owner.ID {
		t.Errorf("unexpected metadata: %+v", v.File)
	}
	if !e.blobs.Has(v.StorageID) {
		t.Error("blob not stored")
	}
	if v.URL != "/blobs/"+v.StorageID {
		t.Errorf("URL = %q", v.URL)
	}
}

func TestUpload_Rejected(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, models.RoleMember, "acme")
	other := e.user(t, models.RoleMember, "acme")
	ctx := context.Background()

	theirs, _ := e.db.Folders().Create(ctx, models.Folder{Name: "Theirs", UserID: other.ID, TenantID: "acme"})
	trashed, _ := e.db.Folders().Create(ctx, models.Folder{Name: "Trash", UserID: owner.ID, TenantID: "acme"})
	_ = e.db.Folders().SetShouldDelete(ctx, trashed.ID, true)
	missing := primitive.NewObjectID()

	tests := []struct {
		name    string
		in      files.UploadInput
		actor   primitive.ObjectID
		wantErr error
	}{
		{"unsupported type", files.UploadInput{Filename: "a.exe"}, owner.ID, apperr.ErrInvalidInput},
		{"foreign folder", files.UploadInput{Filename: "a.pdf", FolderID: &theirs.ID}, owner.ID, apperr.ErrForbidden},
		{"deleted folder", files.UploadInput{Filename: "a.pdf", FolderID: &trashed.ID}, owner.ID, apperr.ErrInvalidTarget},
		{"missing folder", files.UploadInput{Filename: "a.pdf", FolderID: &missing}, owner.ID, apperr.ErrNotFound},
		{"unknown actor", files.UploadInput{Filename: "a.pdf"}, primitive.NewObjectID(), apperr.ErrUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Body = strings.NewReader("x")
			tt.in.Size = 1
			if _, err := e.svc.Upload(ctx, tt.actor, tt.in); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
	if e.blobs.Len() != 0 {
		t.Errorf("rejected uploads left %d blobs", e.blobs.Len())
	}
}

type failingFiles struct {
	files.FileStore
}

func (failingFiles) Create(context.Context, models.File) (models.File, error) {
	return models.File{}, errors.New("insert failed")
}

func TestUpload_RemovesBlobWhenInsertFails(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, models.RoleMember, "acme")
	e.svc.Files = failingFiles{FileStore: e.db.Files()}

	_, err := e.svc.Upload(context.Background(), owner.ID, files.UploadInput{
		Filename: "a.csv", Size: 3, Body: strings.NewReader("a,b"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if e.blobs.Len() != 0 {
		t.Errorf("blob left behind after failed insert")
	}
}

func TestDeleteRestore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, models.RoleMember, "acme")
	stranger := e.user(t, models.RoleAdmin, "acme")
	v := e.upload(t, owner, "keep.pdf", "x")

	if _, err := e.svc.Delete(ctx, stranger.ID, v.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("non-owner delete: expected ErrForbidden, got %v", err)
	}
	if _, err := e.svc.Delete(ctx, owner.ID, primitive.NewObjectID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing file: expected ErrNotFound, got %v", err)
	}

	for i := 0; i < 2; i++ {
		f, err := e.svc.Delete(ctx, owner.ID, v.ID)
		if err != nil || !f.ShouldDelete {
			t.Fatalf("Delete #%d = %+v, %v", i+1, f, err)
		}
	}
	live, _ := e.svc.List(ctx, owner.ID, files.Filter{})
	if len(live) != 0 {
		t.Errorf("deleted file listed")
	}
	trash, _ := e.svc.List(ctx, owner.ID, files.Filter{DeletedOnly: true})
	if len(trash) != 1 {
		t.Errorf("deleted-only listing = %d files", len(trash))
	}

	for i := 0; i < 2; i++ {
		f, err := e.svc.Restore(ctx, owner.ID, v.ID)
		if err != nil || f.ShouldDelete {
			t.Fatalf("Restore #%d = %+v, %v", i+1, f, err)
		}
	}
	live, _ = e.svc.List(ctx, owner.ID, files.Filter{})
	if len(live) != 1 {
		t.Errorf("restored file not listed")
	}
}

func TestFavoritesAndSearch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, models.RoleMember, "acme")
	other := e.user(t, models.RoleMember, "acme")
	budget := e.upload(t, owner, "Budget Review.csv", "a,b")
	e.upload(t, owner, "photo.png", "img")

	if _, err := e.svc.ToggleFavorite(ctx, other.ID, budget.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("non-owner favorite: expected ErrForbidden, got %v", err)
	}

	on, err := e.svc.ToggleFavorite(ctx, owner.ID, budget.ID)
	if err != nil || !on {
		t.Fatalf("ToggleFavorite = %v, %v", on, err)
	}
	favs, _ := e.svc.ListFavorites(ctx, owner.ID)
	if len(favs) != 1 || favs[0].ID != budget.ID {
		t.Errorf("favorites = %v", favs)
	}

	found, _ := e.svc.List(ctx, owner.ID, files.Filter{Query: "  REVIEW "})
	if len(found) != 1 || found[0].ID != budget.ID {
		t.Errorf("search = %v", found)
	}
	images, _ := e.svc.List(ctx, owner.ID, files.Filter{Type: models.FileTypeImage})
	if len(images) != 1 || images[0].Type != models.FileTypeImage {
		t.Errorf("type filter = %v", images)
	}
	if _, err := e.svc.List(ctx, owner.ID, files.Filter{Type: "exe"}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad type filter: expected ErrInvalidInput, got %v", err)
	}

	on, _ = e.svc.ToggleFavorite(ctx, owner.ID, budget.ID)
	if on {
		t.Error("second toggle should unfavorite")
	}
	favs, _ = e.svc.ListFavorites(ctx, owner.ID)
	if len(favs) != 0 {
		t.Errorf("favorites after untoggle = %v", favs)
	}
}

func TestGet_Visibility(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, models.RoleMember, "acme")
	v := e.upload(t, owner, "plan.pdf", "x")

	tests := []struct {
		name    string
		actor   models.User
		wantErr error
	}{
		{"owner", owner, nil},
		{"admin same tenant", e.user(t, models.RoleAdmin, "acme"), nil},
		{"super-admin other tenant", e.user(t, models.RoleSuperAdmin, "globex"), nil},
		{"admin other tenant", e.user(t, models.RoleAdmin, "globex"), apperr.ErrForbidden},
		{"member same tenant", e.user(t, models.RoleMember, "acme"), apperr.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.svc.Get(ctx, tt.actor.ID, v.ID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil || got.ID != v.ID {
				t.Errorf("Get = %v, %v", got.ID, err)
			}
		})
	}

	byKey, err := e.svc.GetByStorageID(ctx, owner.ID, v.StorageID)
	if err != nil || byKey.ID != v.ID {
		t.Errorf("GetByStorageID = %v, %v", byKey.ID, err)
	}

	rc, f, err := e.svc.Open(ctx, owner.ID, v.ID)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "x" || f.ID != v.ID {
		t.Errorf("Open returned %q for %v", data, f.ID)
	}
}

func TestPermanentlyDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, models.RoleMember, "acme")
	admin := e.user(t, models.RoleAdmin, "acme")
	v := e.upload(t, owner, "gone.pdf", "x")
	_, _ = e.svc.ToggleFavorite(ctx, owner.ID, v.ID)

	before, _ := e.db.Files().GetByID(ctx, v.ID)
	if _, err := e.svc.PermanentlyDelete(ctx, owner.ID, v.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("member purge: expected ErrForbidden, got %v", err)
	}
	after, _ := e.db.Files().GetByID(ctx, v.ID)
	if *before != *after || !e.blobs.Has(v.StorageID) || len(e.purger.calls) != 0 {
		t.Fatal("forbidden purge changed state")
	}

	foreign := e.user(t, models.RoleAdmin, "globex")
	if _, err := e.svc.PermanentlyDelete(ctx, foreign.ID, v.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("cross-tenant purge: expected ErrForbidden, got %v", err)
	}

	res, err := e.svc.PermanentlyDelete(ctx, admin.ID, v.ID)
	if err != nil {
		t.Fatalf("PermanentlyDelete failed: %v", err)
	}
	if res.Approvals != 2 || res.Favorites != 1 {
		t.Errorf("result = %+v", res)
	}
	if e.blobs.Has(v.StorageID) {
		t.Error("blob not removed")
	}
	if _, err := e.db.Files().GetByID(ctx, v.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("file still present: %v", err)
	}
	if len(e.purger.calls) != 1 || e.purger.calls[0] != v.ID {
		t.Errorf("purger calls = %v", e.purger.calls)
	}
}

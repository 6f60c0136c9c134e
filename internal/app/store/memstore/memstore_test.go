package memstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/app/store/memstore"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/stratadrive/internal/domain/workflow"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seedFile(t *testing.T, db *memstore.DB, name string) (models.User, models.File) {
	t.Helper()
	ctx := context.Background()
	u, err := db.Users().Create(ctx, models.User{TokenIdentifier: "tok-" + name, Name: "Owner " + name, TenantID: "acme"})
	if err != nil {
		t.Fatalf("Create user failed: %v", err)
	}
	f, err := db.Files().Create(ctx, models.File{
		Name: name, Type: models.FileTypePDF, StorageID: name + ".pdf",
		UserID: u.ID, TenantID: u.TenantID,
	})
	if err != nil {
		t.Fatalf("Create file failed: %v", err)
	}
	return u, f
}

func request(u models.User, f models.File, typ string) models.ApprovalRequest {
	return models.ApprovalRequest{
		FileID: f.ID, FileName: f.Name, TenantID: f.TenantID,
		RequestedBy: models.Requester{ID: u.ID, Name: u.Name},
		RequestedAt: time.Now(), Type: typ,
	}
}

func TestUsers_Lifecycle(t *testing.T) {
	db := memstore.New()
	users := db.Users()
	ctx := context.Background()

	u, err := users.Create(ctx, models.User{TokenIdentifier: "tok-1", Name: "Ada", Role: "superadmin"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if u.Role != models.RoleSuperAdmin || u.TenantID != models.DefaultTenantID {
		t.Errorf("defaults not applied: %+v", u)
	}
	if _, err := users.Create(ctx, models.User{TokenIdentifier: "tok-1"}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	name := "Ada L."
	now := time.Now().Add(time.Hour)
	got, err := users.Update(ctx, "tok-1", models.UserUpdate{Name: &name}, now)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Name != "Ada L." || !got.LastLoginAt.Equal(now) {
		t.Errorf("Update did not apply: %+v", got)
	}

	if _, err := users.DeleteByToken(ctx, "tok-1"); err != nil {
		t.Fatalf("DeleteByToken failed: %v", err)
	}
	if _, err := users.GetByID(ctx, u.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFiles_ListAndMarked(t *testing.T) {
	db := memstore.New()
	files := db.Files()
	ctx := context.Background()
	u, a := seedFile(t, db, "alpha")

	b, _ := files.Create(ctx, models.File{Name: "Beta.csv", Type: "csv", StorageID: "b.csv", UserID: u.ID, CreatedAt: a.CreatedAt.Add(time.Second)})
	if _, err := files.Create(ctx, models.File{Name: "dup", Type: "csv", StorageID: "b.csv", UserID: u.ID}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate storage id, got %v", err)
	}

	live, _ := files.List(ctx, models.FileQuery{OwnerID: u.ID})
	if len(live) != 2 || live[0].ID != b.ID {
		t.Fatalf("expected newest first, got %v", live)
	}

	now := time.Now()
	if err := files.SetShouldDelete(ctx, a.ID, true, now); err != nil {
		t.Fatalf("SetShouldDelete failed: %v", err)
	}
	live, _ = files.List(ctx, models.FileQuery{OwnerID: u.ID})
	if len(live) != 1 {
		t.Errorf("deleted file still listed")
	}
	deleted, _ := files.List(ctx, models.FileQuery{OwnerID: u.ID, Deleted: true})
	if len(deleted) != 1 || deleted[0].ID != a.ID {
		t.Errorf("deleted-only listing wrong: %v", deleted)
	}

	marked, _ := files.ListMarkedForDeletion(ctx, now.Add(-time.Second), 0)
	if len(marked) != 0 {
		t.Errorf("file inside retention window was listed")
	}
	marked, _ = files.ListMarkedForDeletion(ctx, now, 0)
	if len(marked) != 1 {
		t.Errorf("expected 1 marked file, got %d", len(marked))
	}
}

func TestFolders_List(t *testing.T) {
	db := memstore.New()
	folders := db.Folders()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	root, _ := folders.Create(ctx, models.Folder{Name: "Root", UserID: owner})
	child, _ := folders.Create(ctx, models.Folder{Name: "Child", UserID: owner, ParentID: &root.ID})

	roots, _ := folders.List(ctx, models.FolderQuery{OwnerID: owner, RootOnly: true})
	if len(roots) != 1 || roots[0].ID != root.ID {
		t.Errorf("root listing wrong: %v", roots)
	}
	kids, _ := folders.List(ctx, models.FolderQuery{OwnerID: owner, ParentID: &root.ID})
	if len(kids) != 1 || kids[0].ID != child.ID {
		t.Errorf("child listing wrong: %v", kids)
	}
	if err := folders.MoveUnder(ctx, root.ID, &child.ID, 10); !errors.Is(err, apperr.ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget moving root under its child, got %v", err)
	}
	if err := folders.MoveUnder(ctx, child.ID, nil, 10); err != nil {
		t.Fatalf("MoveUnder failed: %v", err)
	}
	roots, _ = folders.List(ctx, models.FolderQuery{OwnerID: owner, RootOnly: true})
	if len(roots) != 2 {
		t.Errorf("expected 2 roots after move, got %d", len(roots))
	}
}

func TestFavorites_ConcurrentTogglesCancel(t *testing.T) {
	db := memstore.New()
	favs := db.Favorites()
	user, file := primitive.NewObjectID(), primitive.NewObjectID()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = favs.Toggle(context.Background(), user, file, time.Now())
		}()
	}
	wg.Wait()

	ids, _ := favs.ListFileIDs(context.Background(), user)
	if len(ids) != 0 {
		t.Errorf("an even number of toggles should leave no favorite, got %v", ids)
	}
}

func TestApprovals_ConcurrentInsertOneWins(t *testing.T) {
	db := memstore.New()
	u, f := seedFile(t, db, "contested")
	approvals := db.Approvals()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		invalid int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := approvals.Insert(context.Background(), request(u, f, models.ApprovalTypeAddition))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperr.ErrInvalidTarget):
				invalid++
			}
		}()
	}
	wg.Wait()

	if ok != 1 || invalid != 7 {
		t.Errorf("successes = %d, invalid = %d; want 1 and 7", ok, invalid)
	}
}

func TestApprovals_ConcurrentDecisionsOneCommits(t *testing.T) {
	db := memstore.New()
	u, f := seedFile(t, db, "decide")
	approvals := db.Approvals()
	ctx := context.Background()

	a, err := approvals.Insert(ctx, request(u, f, models.ApprovalTypeAddition))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	admin := primitive.NewObjectID()
	approve, _ := workflow.NewDecision(workflow.EventApprove, a, f, admin, "", time.Now())
	reject, _ := workflow.NewDecision(workflow.EventReject, a, f, admin, "", time.Now())

	errs := make(chan error, 2)
	for _, d := range []workflow.Decision{approve, reject} {
		go func(d workflow.Decision) { errs <- approvals.ApplyDecision(ctx, d) }(d)
	}
	var failures int
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			if !errors.Is(err, apperr.ErrInvalidState) {
				t.Errorf("unexpected error kind: %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly one decision to fail, got %d", failures)
	}

	gotA, _ := approvals.GetByID(ctx, a.ID)
	gotF, _ := db.Files().GetByID(ctx, f.ID)
	if workflow.FileStatusFor(gotA.Status) != gotF.Status {
		t.Errorf("file %q does not mirror approval %q", gotF.Status, gotA.Status)
	}
}

func TestApprovals_DeletionRevertRestoresFile(t *testing.T) {
	db := memstore.New()
	u, f := seedFile(t, db, "trash")
	approvals := db.Approvals()
	ctx := context.Background()

	a, _ := approvals.Insert(ctx, request(u, f, models.ApprovalTypeDeletion))
	d, _ := workflow.NewDecision(workflow.EventApprove, a, f, primitive.NewObjectID(), "ok", time.Now())
	if err := approvals.ApplyDecision(ctx, d); err != nil {
		t.Fatalf("ApplyDecision failed: %v", err)
	}
	gotF, _ := db.Files().GetByID(ctx, f.ID)
	if !gotF.ShouldDelete || !gotF.IsApproved {
		t.Fatalf("accepted deletion should flag file, got %+v", gotF)
	}

	accepted, _ := approvals.GetByID(ctx, a.ID)
	r, _ := workflow.NewRevert(*accepted)
	if err := approvals.ApplyRevert(ctx, r); err != nil {
		t.Fatalf("ApplyRevert failed: %v", err)
	}
	gotF, _ = db.Files().GetByID(ctx, f.ID)
	if gotF.Status != models.FileStatusPending || gotF.ShouldDelete || gotF.IsApproved {
		t.Errorf("file not restored: %+v", gotF)
	}
	gotA, _ := approvals.GetByID(ctx, a.ID)
	if gotA.Status != models.ApprovalStatusPending || gotA.ApprovedBy != nil || gotA.AdminSignature != "" {
		t.Errorf("approval not reopened: %+v", gotA)
	}
	if err := approvals.ApplyRevert(ctx, r); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on repeated revert, got %v", err)
	}
}

func TestAudit_Query(t *testing.T) {
	db := memstore.New()
	store := db.Audit()
	ctx := context.Background()
	file := primitive.NewObjectID()

	base := time.Now()
	for i, typ := range []string{audit.EventFileUploaded, audit.EventFileDeleted, audit.EventFileRestored} {
		_ = store.Log(ctx, audit.Event{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			TenantID:  "acme",
			Category:  audit.CategoryFiles,
			EventType: typ,
			FileID:    &file,
		})
	}
	_ = store.Log(ctx, audit.Event{TenantID: "globex", Category: audit.CategoryFiles, EventType: audit.EventFileUploaded})

	events, _ := store.Query(ctx, audit.QueryFilter{TenantID: "acme", FileID: &file})
	if len(events) != 3 || events[0].EventType != audit.EventFileRestored {
		t.Errorf("expected 3 events newest first, got %v", events)
	}
	n, _ := store.CountByFilter(ctx, audit.QueryFilter{EventType: audit.EventFileUploaded})
	if n != 2 {
		t.Errorf("CountByFilter = %d, want 2", n)
	}
	page, _ := store.Query(ctx, audit.QueryFilter{TenantID: "acme", Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].EventType != audit.EventFileDeleted {
		t.Errorf("paging wrong: %v", page)
	}
}

func TestFiles_TakeForCollectionSkipsRestored(t *testing.T) {
	db := memstore.New()
	files := db.Files()
	ctx := context.Background()
	_, f := seedFile(t, db, "gamma")
	now := time.Now()

	if _, err := files.TakeForCollection(ctx, f.ID, now); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unflagged file taken: %v", err)
	}
	_ = files.SetShouldDelete(ctx, f.ID, true, now)
	taken, err := files.TakeForCollection(ctx, f.ID, now)
	if err != nil {
		t.Fatalf("TakeForCollection failed: %v", err)
	}
	if _, err := files.TakeForCollection(ctx, f.ID, now); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second take should miss, got %v", err)
	}
	if err := files.Reinstate(ctx, *taken); err != nil {
		t.Fatalf("Reinstate failed: %v", err)
	}
	if err := files.Reinstate(ctx, *taken); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected ErrConflict reinstating twice, got %v", err)
	}
}

package approvalstore_test

import (
	"errors"
	"testing"
	"time"

	approvalstore "github.com/dalemusser/stratadrive/internal/app/store/approvals"
	filestore "github.com/dalemusser/stratadrive/internal/app/store/files"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/indexes"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/stratadrive/internal/domain/workflow"
	"github.com/dalemusser/stratadrive/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newRequest(f models.File, u models.User, typ string) models.ApprovalRequest {
	return models.ApprovalRequest{
		FileID:      f.ID,
		FileName:    f.Name,
		TenantID:    f.TenantID,
		RequestedBy: models.Requester{ID: u.ID, Name: u.Name},
		RequestedAt: time.Now().UTC(),
		Type:        typ,
	}
}

func TestStore_Insert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := approvalstore.New(db)
	fixtures := testutil.NewFixtures(t, db)

	owner := fixtures.CreateUser(ctx, "Owner", models.RoleMember, "acme")
	file := fixtures.CreateFile(ctx, owner, "plan.pdf")

	a, err := store.Insert(ctx, newRequest(file, owner, models.ApprovalTypeAddition))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if a.Status != models.ApprovalStatusPending || a.ID.IsZero() {
		t.Errorf("unexpected inserted request %+v", a)
	}

	_, err = store.Insert(ctx, newRequest(file, owner, models.ApprovalTypeDeletion))
	if !errors.Is(err, apperr.ErrInvalidTarget) {
		t.Errorf("second open request: expected ErrInvalidTarget, got %v", err)
	}

	missing := file
	missing.ID = primitive.NewObjectID()
	_, err = store.Insert(ctx, newRequest(missing, owner, models.ApprovalTypeAddition))
	if !errors.Is(err, apperr.ErrInvalidTarget) {
		t.Errorf("missing file: expected ErrInvalidTarget, got %v", err)
	}

	open, err := store.FindOpenForFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("FindOpenForFile failed: %v", err)
	}
	if open.ID != a.ID {
		t.Errorf("FindOpenForFile = %v, want %v", open.ID, a.ID)
	}
}

func TestStore_ApplyDecision(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := approvalstore.New(db)
	files := filestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", models.RoleMember, "acme")
	admin := fixtures.CreateUser(ctx, "Admin", models.RoleAdmin, "acme")
	file := fixtures.CreateFile(ctx, owner, "plan.pdf")
	a := fixtures.CreateApproval(ctx, file, owner, models.ApprovalTypeAddition, models.ApprovalStatusPending)

	d, err := workflow.NewDecision(workflow.EventApprove, a, file, admin.ID, "looks good", time.Now().UTC())
	if err != nil {
		t.Fatalf("NewDecision failed: %v", err)
	}
	if err := store.ApplyDecision(ctx, d); err != nil {
		t.Fatalf("ApplyDecision failed: %v", err)
	}

	gotA, _ := store.GetByID(ctx, a.ID)
	if gotA.Status != models.ApprovalStatusAccepted {
		t.Errorf("approval status = %q", gotA.Status)
	}
	if gotA.ApprovedBy == nil || *gotA.ApprovedBy != admin.ID || gotA.ApprovedAt == nil {
		t.Error("approver not recorded")
	}
	if gotA.Remarks != "looks good" || gotA.AdminSignature != d.Signature {
		t.Errorf("remarks/signature = %q/%q", gotA.Remarks, gotA.AdminSignature)
	}
	gotF, _ := files.GetByID(ctx, file.ID)
	if gotF.Status != models.FileStatusApproved || !gotF.IsApproved || gotF.ShouldDelete {
		t.Errorf("file = %+v, want approved and live", gotF)
	}

	// A second decision built from the stale snapshot loses.
	d2, _ := workflow.NewDecision(workflow.EventReject, a, file, admin.ID, "", time.Now().UTC())
	if err := store.ApplyDecision(ctx, d2); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	gotF, _ = files.GetByID(ctx, file.ID)
	if gotF.Status != models.FileStatusApproved {
		t.Errorf("losing decision changed file to %q", gotF.Status)
	}
}

func TestStore_ApplyDecision_FileNoLongerPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := approvalstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", models.RoleMember, "acme")
	admin := fixtures.CreateUser(ctx, "Admin", models.RoleAdmin, "acme")
	file := fixtures.CreateFile(ctx, owner, "plan.pdf")
	a := fixtures.CreateApproval(ctx, file, owner, models.ApprovalTypeAddition, models.ApprovalStatusPending)

	d, err := workflow.NewDecision(workflow.EventApprove, a, file, admin.ID, "", time.Now().UTC())
	if err != nil {
		t.Fatalf("NewDecision failed: %v", err)
	}
	if _, err := db.Collection("files").UpdateOne(ctx,
		bson.M{"_id": file.ID}, bson.M{"$set": bson.M{"status": models.FileStatusRejected}}); err != nil {
		t.Fatalf("setup update failed: %v", err)
	}

	if err := store.ApplyDecision(ctx, d); !errors.Is(err, apperr.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	gotA, _ := store.GetByID(ctx, a.ID)
	if gotA.Status != models.ApprovalStatusPending || gotA.AdminSignature != "" {
		t.Errorf("approval should stay pending, got %+v", gotA)
	}
}

func TestStore_ApplyDecision_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := approvalstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	d := workflow.Decision{ApprovalID: primitive.NewObjectID(), FileID: primitive.NewObjectID(), Status: models.ApprovalStatusAccepted}
	if err := store.ApplyDecision(ctx, d); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_DeletionAcceptAndRevert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := approvalstore.New(db)
	files := filestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", models.RoleMember, "acme")
	admin := fixtures.CreateUser(ctx, "Admin", models.RoleAdmin, "acme")
	file := fixtures.CreateFile(ctx, owner, "old.csv")
	a := fixtures.CreateApproval(ctx, file, owner, models.ApprovalTypeDeletion, models.ApprovalStatusPending)

	d, _ := workflow.NewDecision(workflow.EventApprove, a, file, admin.ID, "", time.Now().UTC())
	if err := store.ApplyDecision(ctx, d); err != nil {
		t.Fatalf("ApplyDecision failed: %v", err)
	}
	gotF, _ := files.GetByID(ctx, file.ID)
	if !gotF.ShouldDelete || gotF.DeletedAt == nil {
		t.Fatalf("accepted deletion should flag the file, got %+v", gotF)
	}

	accepted, _ := store.GetByID(ctx, a.ID)
	r, err := workflow.NewRevert(*accepted)
	if err != nil {
		t.Fatalf("NewRevert failed: %v", err)
	}
	if err := store.ApplyRevert(ctx, r); err != nil {
		t.Fatalf("ApplyRevert failed: %v", err)
	}

	gotA, _ := store.GetByID(ctx, a.ID)
	if gotA.Status != models.ApprovalStatusPending {
		t.Errorf("approval status = %q, want pending", gotA.Status)
	}
	if gotA.ApprovedBy != nil || gotA.ApprovedAt != nil || gotA.Remarks != "" || gotA.AdminSignature != "" {
		t.Errorf("decision fields not cleared: %+v", gotA)
	}
	gotF, _ = files.GetByID(ctx, file.ID)
	if gotF.Status != models.FileStatusPending || gotF.IsApproved || gotF.ShouldDelete || gotF.DeletedAt != nil {
		t.Errorf("file not restored to pending: %+v", gotF)
	}

	// Applying the same revert twice fails on the expected status.
	if err := store.ApplyRevert(ctx, r); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestStore_ApplyRevert_FileGone(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := approvalstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", models.RoleMember, "acme")
	file := fixtures.CreateFile(ctx, owner, "gone.pdf")
	a := fixtures.CreateApproval(ctx, file, owner, models.ApprovalTypeAddition, models.ApprovalStatusRejected)
	if _, err := db.Collection("files").DeleteOne(ctx, bson.M{"_id": file.ID}); err != nil {
		t.Fatalf("setup delete failed: %v", err)
	}

	r, _ := workflow.NewRevert(a)
	if err := store.ApplyRevert(ctx, r); err != nil {
		t.Fatalf("ApplyRevert failed: %v", err)
	}
	gotA, _ := store.GetByID(ctx, a.ID)
	if gotA.Status != models.ApprovalStatusPending {
		t.Errorf("approval status = %q, want pending", gotA.Status)
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := approvalstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", models.RoleMember, "acme")
	other := fixtures.CreateUser(ctx, "Other", models.RoleMember, "globex")
	f1 := fixtures.CreateFile(ctx, owner, "one.pdf")
	f2 := fixtures.CreateFile(ctx, other, "two.pdf")

	first := fixtures.CreateApproval(ctx, f1, owner, models.ApprovalTypeAddition, models.ApprovalStatusRejected)
	time.Sleep(5 * time.Millisecond)
	second := fixtures.CreateApproval(ctx, f1, owner, models.ApprovalTypeAddition, models.ApprovalStatusPending)
	fixtures.CreateApproval(ctx, f2, other, models.ApprovalTypeAddition, models.ApprovalStatusPending)

	all, err := store.List(ctx, models.ApprovalQuery{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List all = %d, want 3", len(all))
	}

	pending, _ := store.List(ctx, models.ApprovalQuery{Status: models.ApprovalStatusPending, TenantID: "acme"})
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Errorf("tenant pending = %v", pending)
	}

	history, _ := store.List(ctx, models.ApprovalQuery{FileID: &f1.ID, OldestFirst: true})
	if len(history) != 2 || history[0].ID != first.ID || history[1].ID != second.ID {
		t.Errorf("history not oldest first: %v", history)
	}

	if n, err := store.DeleteForFile(ctx, f1.ID, "globex"); err != nil || n != 0 {
		t.Errorf("foreign tenant delete = %d, %v, want 0", n, err)
	}
	n, err := store.DeleteForFile(ctx, f1.ID, "acme")
	if err != nil {
		t.Fatalf("DeleteForFile failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	if _, err := store.FindOpenForFile(ctx, f1.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

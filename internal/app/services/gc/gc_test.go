package gc_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/services/gc"
	"github.com/dalemusser/stratadrive/internal/app/store/memstore"
	"github.com/dalemusser/stratadrive/internal/app/system/blobstore"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	db    *memstore.DB
	blobs *blobstore.Memory
	owner primitive.ObjectID
}

func newFixture() *fixture {
	return &fixture{db: memstore.New(), blobs: blobstore.NewMemory("/blobs"), owner: primitive.NewObjectID()}
}

func (fx *fixture) file(t *testing.T, name string, flagged bool, flaggedAt time.Time) models.File {
	t.Helper()
	ctx := context.Background()
	key := name + ".csv"
	if err := fx.blobs.Put(ctx, key, strings.NewReader("a,b\n"), 4, "text/csv"); err != nil {
		t.Fatalf("put blob: %v", err)
	}
	f, err := fx.db.Files().Create(ctx, models.File{
		Name: name, Type: models.FileTypeCSV, StorageID: key, UserID: fx.owner, TenantID: "acme",
	})
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if flagged {
		if err := fx.db.Files().SetShouldDelete(ctx, f.ID, true, flaggedAt); err != nil {
			t.Fatalf("flag file: %v", err)
		}
	}
	return f
}

func (fx *fixture) exists(t *testing.T, id primitive.ObjectID) bool {
	t.Helper()
	_, err := fx.db.Files().GetByID(context.Background(), id)
	return err == nil
}

func TestSweep_RemovesOnlyFlagged(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	now := time.Now().UTC()

	var flagged, kept []models.File
	for i := 0; i < 3; i++ {
		flagged = append(flagged, fx.file(t, fmt.Sprintf("gone-%d", i), true, now))
	}
	for i := 0; i < 2; i++ {
		kept = append(kept, fx.file(t, fmt.Sprintf("kept-%d", i), false, now))
	}
	if _, err := fx.db.Favorites().Toggle(ctx, fx.owner, flagged[0].ID, now); err != nil {
		t.Fatalf("toggle favorite: %v", err)
	}

	c := gc.New(fx.db.Files(), fx.db.Favorites(), fx.blobs, zap.NewNop(), 0)
	res, err := c.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if res.Deleted != 3 || res.Failed != 0 {
		t.Errorf("result = %+v, want 3 deleted", res)
	}
	for _, f := range flagged {
		if fx.exists(t, f.ID) || fx.blobs.Has(f.StorageID) {
			t.Errorf("%s survived the sweep", f.Name)
		}
	}
	for _, f := range kept {
		if !fx.exists(t, f.ID) || !fx.blobs.Has(f.StorageID) {
			t.Errorf("%s was removed", f.Name)
		}
	}
	favs, _ := fx.db.Favorites().ListFileIDs(ctx, fx.owner)
	if len(favs) != 0 {
		t.Errorf("favorite of removed file survived: %v", favs)
	}

	again, err := c.Sweep(ctx)
	if err != nil {
		t.Fatalf("second Sweep failed: %v", err)
	}
	if again != (gc.Result{}) {
		t.Errorf("second sweep = %+v, want no-op", again)
	}
	if fx.blobs.Len() != 2 {
		t.Errorf("blob count = %d, want 2", fx.blobs.Len())
	}
}

func TestSweep_MissingBlobCountsAsDeleted(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	f := fx.file(t, "orphan", true, time.Now().UTC())
	if err := fx.blobs.Delete(ctx, f.StorageID); err != nil {
		t.Fatalf("delete blob: %v", err)
	}

	res, err := gc.New(fx.db.Files(), fx.db.Favorites(), fx.blobs, zap.NewNop(), 0).Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if res.Deleted != 1 || fx.exists(t, f.ID) {
		t.Errorf("orphaned record not removed: %+v", res)
	}
}

// flakyBlobs fails deletes for one key.
type flakyBlobs struct {
	*blobstore.Memory
	failKey string
}

func (b flakyBlobs) Delete(ctx context.Context, key string) error {
	if key == b.failKey {
		return errors.New("bucket unavailable")
	}
	return b.Memory.Delete(ctx, key)
}

func TestSweep_BlobFailureDoesNotStopOthers(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	now := time.Now().UTC()
	bad := fx.file(t, "bad", true, now.Add(-time.Minute))
	good1 := fx.file(t, "good1", true, now)
	good2 := fx.file(t, "good2", true, now)

	c := gc.New(fx.db.Files(), fx.db.Favorites(), flakyBlobs{Memory: fx.blobs, failKey: bad.StorageID}, zap.NewNop(), 0)
	c.BatchSize = 1
	res, err := c.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if res.Deleted != 2 || res.Failed != 1 {
		t.Errorf("result = %+v, want 2 deleted 1 failed", res)
	}
	if !fx.exists(t, bad.ID) {
		t.Error("file with failed blob delete should stay for the next sweep")
	}
	if got, _ := fx.db.Files().GetByID(ctx, bad.ID); got == nil || !got.ShouldDelete {
		t.Error("file with failed blob delete should stay flagged")
	}
	if fx.exists(t, good1.ID) || fx.exists(t, good2.ID) {
		t.Error("other flagged files should be removed")
	}
}

// restoringFiles clears the flag on one file right after it has been listed,
// the way an owner restoring it mid-sweep would.
type restoringFiles struct {
	*memstore.Files
	restore primitive.ObjectID
}

func (r restoringFiles) ListMarkedForDeletion(ctx context.Context, cutoff time.Time, limit int) ([]models.File, error) {
	out, err := r.Files.ListMarkedForDeletion(ctx, cutoff, limit)
	if err != nil {
		return nil, err
	}
	if err := r.Files.SetShouldDelete(ctx, r.restore, false, time.Now()); err != nil {
		return nil, err
	}
	return out, nil
}

func TestSweep_RestoredAfterListingIsKept(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	now := time.Now().UTC()
	kept := fx.file(t, "kept", true, now)
	gone := fx.file(t, "gone", true, now)

	files := restoringFiles{Files: fx.db.Files(), restore: kept.ID}
	c := gc.New(files, fx.db.Favorites(), fx.blobs, zap.NewNop(), 0)
	res, err := c.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if res.Deleted != 1 || res.Skipped != 1 || res.Failed != 0 {
		t.Errorf("result = %+v, want 1 deleted 1 skipped", res)
	}
	if !fx.exists(t, kept.ID) {
		t.Fatal("restored file record was removed")
	}
	if !fx.blobs.Has(kept.StorageID) {
		t.Error("restored file lost its blob")
	}
	if fx.exists(t, gone.ID) {
		t.Error("flagged file should be removed")
	}
}

func TestSweep_Retention(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	old := fx.file(t, "old", true, now.Add(-48*time.Hour))
	recent := fx.file(t, "recent", true, now.Add(-time.Hour))

	c := gc.New(fx.db.Files(), fx.db.Favorites(), fx.blobs, zap.NewNop(), 24*time.Hour)
	c.Clock = func() time.Time { return now }
	res, err := c.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if res.Deleted != 1 || fx.exists(t, old.ID) || !fx.exists(t, recent.ID) {
		t.Errorf("retention not honoured: %+v", res)
	}
}

func TestSweep_ManyBatches(t *testing.T) {
	fx := newFixture()
	now := time.Now().UTC()
	for i := 0; i < 7; i++ {
		fx.file(t, fmt.Sprintf("f%d", i), true, now)
	}
	c := gc.New(fx.db.Files(), fx.db.Favorites(), fx.blobs, zap.NewNop(), 0)
	c.BatchSize = 3
	res, err := c.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if res.Deleted != 7 || fx.blobs.Len() != 0 {
		t.Errorf("result = %+v, %d blobs left", res, fx.blobs.Len())
	}
}

package favoritestore_test

import (
	"testing"
	"time"

	favoritestore "github.com/dalemusser/stratadrive/internal/app/store/favorites"
	"github.com/dalemusser/stratadrive/internal/app/system/indexes"
	"github.com/dalemusser/stratadrive/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Toggle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := favoritestore.New(db)

	user := primitive.NewObjectID()
	file := primitive.NewObjectID()

	on, err := store.Toggle(ctx, user, file, time.Now())
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if !on {
		t.Fatal("first toggle should favorite")
	}
	ids, err := store.ListFileIDs(ctx, user)
	if err != nil {
		t.Fatalf("ListFileIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != file {
		t.Fatalf("ListFileIDs = %v, want [%v]", ids, file)
	}

	on, err = store.Toggle(ctx, user, file, time.Now())
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if on {
		t.Fatal("second toggle should unfavorite")
	}
	ids, _ = store.ListFileIDs(ctx, user)
	if len(ids) != 0 {
		t.Errorf("expected no favorites, got %v", ids)
	}
}

func TestStore_DeleteForFile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := favoritestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	file := primitive.NewObjectID()
	other := primitive.NewObjectID()
	u1, u2 := primitive.NewObjectID(), primitive.NewObjectID()
	for _, u := range []primitive.ObjectID{u1, u2} {
		if _, err := store.Toggle(ctx, u, file, time.Now()); err != nil {
			t.Fatalf("Toggle failed: %v", err)
		}
	}
	if _, err := store.Toggle(ctx, u1, other, time.Now()); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}

	n, err := store.DeleteForFile(ctx, file)
	if err != nil {
		t.Fatalf("DeleteForFile failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	ids, _ := store.ListFileIDs(ctx, u1)
	if len(ids) != 1 || ids[0] != other {
		t.Errorf("unrelated favorite should survive, got %v", ids)
	}
}

package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/validators"
	"github.com/dalemusser/stratadrive/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	collMap := make(map[string]bool)
	for _, name := range names {
		collMap[name] = true
	}
	for _, expected := range []string{"users", "files", "folders", "favorites", "approvals", "audit_events"} {
		if !collMap[expected] {
			t.Errorf("expected collection %q to exist", expected)
		}
	}
}

func validFile() bson.M {
	return bson.M{
		"name":          "report.pdf",
		"name_ci":       "report.pdf",
		"type":          "pdf",
		"storage_id":    "abc.pdf",
		"user_id":       primitive.NewObjectID(),
		"tenant_id":     "acme",
		"size":          int64(10),
		"status":        "pending",
		"is_approved":   false,
		"should_delete": false,
		"created_at":    time.Now(),
	}
}

func validApproval() bson.M {
	return bson.M{
		"file_id":      primitive.NewObjectID(),
		"file_name":    "report.pdf",
		"tenant_id":    "acme",
		"requested_by": bson.M{"id": primitive.NewObjectID(), "name": "Ann"},
		"requested_at": time.Now(),
		"type":         "addition",
		"status":       "pending",
	}
}

func with(doc bson.M, key string, value any) bson.M {
	out := bson.M{}
	for k, v := range doc {
		out[k] = v
	}
	if value == nil {
		delete(out, key)
	} else {
		out[key] = value
	}
	return out
}

func TestValidators(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	tests := []struct {
		name    string
		coll    string
		doc     bson.M
		wantErr bool
	}{
		{"valid user", "users", bson.M{"token_identifier": "tok", "role": "member", "status": "active", "tenant_id": "acme"}, false},
		{"user without token", "users", bson.M{"role": "member", "status": "active", "tenant_id": "acme"}, true},
		{"user legacy role", "users", bson.M{"token_identifier": "t2", "role": "superadmin", "status": "active", "tenant_id": "acme"}, true},
		{"user bad status", "users", bson.M{"token_identifier": "t3", "role": "admin", "status": "gone", "tenant_id": "acme"}, true},

		{"valid file", "files", validFile(), false},
		{"file bad type", "files", with(validFile(), "type", "exe"), true},
		{"file bad status", "files", with(validFile(), "status", "accepted"), true},
		{"file blank name", "files", with(validFile(), "name", "   "), true},
		{"file without flag", "files", with(validFile(), "should_delete", nil), true},

		{"valid folder", "folders", bson.M{"name": "Docs", "name_ci": "docs", "user_id": primitive.NewObjectID(), "tenant_id": "acme", "should_delete": false}, false},
		{"folder string parent", "folders", bson.M{"name": "Docs", "name_ci": "docs", "user_id": primitive.NewObjectID(), "tenant_id": "acme", "should_delete": false, "parent_id": "root"}, true},

		{"valid favorite", "favorites", bson.M{"user_id": primitive.NewObjectID(), "file_id": primitive.NewObjectID()}, false},
		{"favorite without file", "favorites", bson.M{"user_id": primitive.NewObjectID()}, true},

		{"valid approval", "approvals", validApproval(), false},
		{"approval bad type", "approvals", with(validApproval(), "type", "rename"), true},
		{"approval file status", "approvals", with(validApproval(), "status", "approved"), true},
		{"approval requester without id", "approvals", with(validApproval(), "requested_by", bson.M{"name": "Ann"}), true},

		{"audit has no validator", "audit_events", bson.M{"anything": 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("insert failed: %v", err)
			}
		})
	}
}

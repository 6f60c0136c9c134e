package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_LogAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := audit.New(db)
	fileID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()

	events := []audit.Event{
		{Category: audit.CategoryApproval, EventType: audit.EventApprovalRequested, TenantID: "acme", FileID: &fileID, Success: true, Timestamp: time.Now().Add(-2 * time.Minute)},
		{Category: audit.CategoryApproval, EventType: audit.EventApprovalAccepted, TenantID: "acme", FileID: &fileID, ActorID: &actorID, Success: true, Timestamp: time.Now().Add(-time.Minute)},
		{Category: audit.CategoryFiles, EventType: audit.EventFileUploaded, TenantID: "globex", Success: true},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	got, err := store.Query(ctx, audit.QueryFilter{FileID: &fileID})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events for file, got %d", len(got))
	}
	if got[0].EventType != audit.EventApprovalAccepted {
		t.Errorf("expected newest first, got %q", got[0].EventType)
	}
	if got[0].ID.IsZero() {
		t.Error("expected Log to assign an ID")
	}

	n, err := store.CountByFilter(ctx, audit.QueryFilter{TenantID: "acme", Category: audit.CategoryApproval})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 acme approval events, got %d", n)
	}

	n, err = store.CountByFilter(ctx, audit.QueryFilter{ActorID: &actorID})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 event by actor, got %d", n)
	}
}

func TestStore_QueryLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := audit.New(db)
	for i := 0; i < 5; i++ {
		if err := store.Log(ctx, audit.Event{Category: audit.CategoryFiles, EventType: audit.EventFileDeleted, Success: true}); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	got, err := store.Query(ctx, audit.QueryFilter{Limit: 3})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 events, got %d", len(got))
	}
}

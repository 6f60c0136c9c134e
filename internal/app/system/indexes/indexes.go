// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"files", ensureFiles},
		{"folders", ensureFolders},
		{"favorites", ensureFavorites},
		{"approvals", ensureApprovals},
		{"audit_events", ensureAuditEvents},
	}
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string `bson:"name"`
	Key     bson.D `bson:"key"`
	Unique  *bool  `bson:"unique,omitempty"`
	Partial bson.D `bson:"partialFilterExpression,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func partialSig(p interface{}) string {
	switch v := p.(type) {
	case nil:
		return ""
	case bson.D:
		return keySig(v)
	case bson.M:
		d := make(bson.D, 0, len(v))
		for k, val := range v {
			d = append(d, bson.E{Key: k, Value: val})
		}
		return keySig(d)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func sameBoolPtr(a, b *bool) bool {
	av := a != nil && *a
	bv := b != nil && *b
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	existing := listExisting(ctx, coll)

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		var desiredPartial interface{}
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
			desiredPartial = m.Options.PartialFilterExpression
		}
		desiredSig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[desiredSig]; ok {
			if sameBoolPtr(desiredUnique, ex.Unique) &&
				partialSig(desiredPartial) == partialSig(ex.Partial) &&
				(desiredName == "" || ex.Name == desiredName) {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig))
				continue
			}

			// Name or options differ. Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				zap.L().Warn("drop existing index failed",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Error(err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		// Every request resolves the caller by token identifier.
		{
			Keys:    bson.D{{Key: "token_identifier", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_token_identifier"),
		},
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "role", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_users_tenant_role_nameci"),
		},
	})
}

func ensureFiles(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("files"), []mongo.IndexModel{
		// Owner listings filter on should_delete and sort newest first.
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "should_delete", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_files_user_deleted_created"),
		},
		{
			Keys:    bson.D{{Key: "storage_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_files_storage_id"),
		},
		// Garbage collector scan.
		{
			Keys:    bson.D{{Key: "should_delete", Value: 1}, {Key: "deleted_at", Value: 1}},
			Options: options.Index().SetName("idx_files_should_delete"),
		},
		{
			Keys:    bson.D{{Key: "folder_id", Value: 1}},
			Options: options.Index().SetName("idx_files_folder"),
		},
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_files_tenant_status"),
		},
	})
}

func ensureFolders(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("folders"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "parent_id", Value: 1},
				{Key: "name_ci", Value: 1},
			},
			Options: options.Index().SetName("idx_folders_user_parent_nameci"),
		},
		{
			Keys:    bson.D{{Key: "parent_id", Value: 1}},
			Options: options.Index().SetName("idx_folders_parent"),
		},
	})
}

func ensureFavorites(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("favorites"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "file_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_favorites_user_file"),
		},
		{
			Keys:    bson.D{{Key: "file_id", Value: 1}},
			Options: options.Index().SetName("idx_favorites_file"),
		},
	})
}

func ensureApprovals(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("approvals"), []mongo.IndexModel{
		// At most one open request per file.
		{
			Keys: bson.D{{Key: "file_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: "pending"}}).
				SetName("uniq_approvals_open_per_file"),
		},
		// History per file, oldest first.
		{
			Keys:    bson.D{{Key: "file_id", Value: 1}, {Key: "requested_at", Value: 1}},
			Options: options.Index().SetName("idx_approvals_file_requested"),
		},
		{
			Keys: bson.D{
				{Key: "tenant_id", Value: 1},
				{Key: "status", Value: 1},
				{Key: "requested_at", Value: -1},
			},
			Options: options.Index().SetName("idx_approvals_tenant_status_requested"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "requested_at", Value: -1}},
			Options: options.Index().SetName("idx_approvals_status_requested"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_tenant_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "file_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_file_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_timestamp"),
		},
	})
}

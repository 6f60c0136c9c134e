// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/stratadrive/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("files", filesSchema())
	ensure("folders", foldersSchema())
	ensure("favorites", favoritesSchema())
	ensure("approvals", approvalsSchema())

	// Append-only; the shape varies by event type.
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func enum(values ...string) bson.M {
	a := bson.A{}
	for _, v := range values {
		a = append(a, v)
	}
	return bson.M{"enum": a}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"token_identifier", "role", "status", "tenant_id"},
			"properties": bson.M{
				"token_identifier": nonBlank,
				"name":             bson.M{"bsonType": "string"},
				"name_ci":          bson.M{"bsonType": "string"},
				"email":            bson.M{"bsonType": "string"},
				"role":             enum(models.RoleMember, models.RoleAdmin, models.RoleSuperAdmin),
				"status":           enum(models.UserStatusActive, models.UserStatusDisabled),
				"tenant_id":        nonBlank,
				"permissions":      bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			},
		},
	}
}

func filesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "type", "storage_id", "user_id", "tenant_id", "status", "is_approved", "should_delete"},
			"properties": bson.M{
				"name":          nonBlank,
				"name_ci":       bson.M{"bsonType": "string"},
				"type":          enum(models.FileTypeImage, models.FileTypeCSV, models.FileTypePDF),
				"storage_id":    nonBlank,
				"folder_id":     bson.M{"bsonType": "objectId"},
				"user_id":       bson.M{"bsonType": "objectId"},
				"tenant_id":     nonBlank,
				"size":          bson.M{"bsonType": bson.A{"long", "int"}, "minimum": 0},
				"status":        enum(models.FileStatusPending, models.FileStatusApproved, models.FileStatusRejected),
				"is_approved":   bson.M{"bsonType": "bool"},
				"should_delete": bson.M{"bsonType": "bool"},
				"deleted_at":    bson.M{"bsonType": "date"},
				"created_at":    bson.M{"bsonType": "date"},
			},
		},
	}
}

func foldersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "user_id", "tenant_id", "should_delete"},
			"properties": bson.M{
				"name":          nonBlank,
				"name_ci":       bson.M{"bsonType": "string"},
				"user_id":       bson.M{"bsonType": "objectId"},
				"parent_id":     bson.M{"bsonType": "objectId"},
				"tenant_id":     nonBlank,
				"should_delete": bson.M{"bsonType": "bool"},
				"created_at":    bson.M{"bsonType": "date"},
			},
		},
	}
}

func favoritesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "file_id"},
			"properties": bson.M{
				"user_id":    bson.M{"bsonType": "objectId"},
				"file_id":    bson.M{"bsonType": "objectId"},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func approvalsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"file_id", "file_name", "tenant_id", "requested_by", "requested_at", "type", "status"},
			"properties": bson.M{
				"file_id":   bson.M{"bsonType": "objectId"},
				"file_name": bson.M{"bsonType": "string"},
				"tenant_id": nonBlank,
				"requested_by": bson.M{
					"bsonType": "object",
					"required": bson.A{"id"},
					"properties": bson.M{
						"id":   bson.M{"bsonType": "objectId"},
						"name": bson.M{"bsonType": "string"},
					},
				},
				"requested_at":    bson.M{"bsonType": "date"},
				"type":            enum(models.ApprovalTypeAddition, models.ApprovalTypeDeletion),
				"description":     bson.M{"bsonType": "string"},
				"status":          enum(models.ApprovalStatusPending, models.ApprovalStatusAccepted, models.ApprovalStatusRejected),
				"approved_by":     bson.M{"bsonType": "objectId"},
				"approved_at":     bson.M{"bsonType": "date"},
				"remarks":         bson.M{"bsonType": "string"},
				"admin_signature": bson.M{"bsonType": "string"},
			},
		},
	}
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Folder is a node in a user's folder tree.
type Folder struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	NameCI       string              `bson:"name_ci" json:"-"`
	UserID       primitive.ObjectID  `bson:"user_id" json:"user_id"`
	ParentID     *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"` // nil = root folder
	TenantID     string              `bson:"tenant_id" json:"tenant_id"`
	ShouldDelete bool                `bson:"should_delete" json:"should_delete"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
}

// IsRoot returns true if the folder is at the root level.
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}

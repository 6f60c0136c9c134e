package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// File types accepted for upload.
const (
	FileTypeImage = "image"
	FileTypeCSV   = "csv"
	FileTypePDF   = "pdf"
)

// File review status, mirrored from the file's approval record.
const (
	FileStatusPending  = "pending"
	FileStatusApproved = "approved"
	FileStatusRejected = "rejected"
)

// File is the metadata record for an uploaded blob.
type File struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name        string              `bson:"name" json:"name"`
	NameCI      string              `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Type        string              `bson:"type" json:"type"`
	StorageID   string              `bson:"storage_id" json:"storage_id"` // blob store handle
	FolderID    *primitive.ObjectID `bson:"folder_id,omitempty" json:"folder_id,omitempty"`
	UserID      primitive.ObjectID  `bson:"user_id" json:"user_id"`
	TenantID    string              `bson:"tenant_id" json:"tenant_id"`
	Size        int64               `bson:"size" json:"size"`
	ContentType string              `bson:"content_type,omitempty" json:"content_type,omitempty"`

	Status       string `bson:"status" json:"status"`
	IsApproved   bool   `bson:"is_approved" json:"is_approved"`
	ShouldDelete bool   `bson:"should_delete" json:"should_delete"`
	// DeletedAt is when ShouldDelete was last set. The garbage collector
	// honours a retention window measured from it.
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// IsInRoot returns true if the file is not inside any folder.
func (f *File) IsInRoot() bool {
	return f.FolderID == nil
}

// IsValidFileType reports whether t is an accepted file type.
func IsValidFileType(t string) bool {
	switch t {
	case FileTypeImage, FileTypeCSV, FileTypePDF:
		return true
	}
	return false
}

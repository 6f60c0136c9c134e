package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// FileQuery selects files for listing. Zero values mean "no filter",
// except Deleted which always selects on should_delete.
type FileQuery struct {
	OwnerID      primitive.ObjectID
	NameContains string // already folded
	IDs          []primitive.ObjectID
	OnlyIDs      bool // restrict to IDs even when empty
	Deleted      bool
	Type         string
	FolderID     *primitive.ObjectID
}

// FolderQuery selects folders for listing.
type FolderQuery struct {
	OwnerID      primitive.ObjectID
	TenantID     string
	ParentID     *primitive.ObjectID
	RootOnly     bool
	NameContains string // already folded
	Deleted      bool
}

// ApprovalQuery selects approval requests. Empty fields are not filtered.
// Results are ordered by requested_at, newest first unless OldestFirst.
type ApprovalQuery struct {
	Status      string
	FileID      *primitive.ObjectID
	TenantID    string
	OldestFirst bool
}

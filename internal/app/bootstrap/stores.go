// internal/app/bootstrap/stores.go
package bootstrap

import (
	featureaudit "github.com/dalemusser/stratadrive/internal/app/features/auditlog"
	approvalsvc "github.com/dalemusser/stratadrive/internal/app/services/approvals"
	filesvc "github.com/dalemusser/stratadrive/internal/app/services/files"
	foldersvc "github.com/dalemusser/stratadrive/internal/app/services/folders"
	"github.com/dalemusser/stratadrive/internal/app/services/gc"
	"github.com/dalemusser/stratadrive/internal/app/services/identity"
	approvalstore "github.com/dalemusser/stratadrive/internal/app/store/approvals"
	auditstore "github.com/dalemusser/stratadrive/internal/app/store/audit"
	favoritestore "github.com/dalemusser/stratadrive/internal/app/store/favorites"
	filestore "github.com/dalemusser/stratadrive/internal/app/store/files"
	folderstore "github.com/dalemusser/stratadrive/internal/app/store/folders"
	"github.com/dalemusser/stratadrive/internal/app/store/memstore"
	userstore "github.com/dalemusser/stratadrive/internal/app/store/users"
	"github.com/dalemusser/stratadrive/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
)

// FileStore is everything the services ask of file persistence.
type FileStore interface {
	filesvc.FileStore
	gc.FileStore
}

// AuditStore records and lists audit events.
type AuditStore interface {
	auditlog.EventStore
	featureaudit.EventQuerier
}

// Stores is the persistence layer, backed by MongoDB or memory.
type Stores struct {
	Users     identity.UserStore
	Files     FileStore
	Folders   foldersvc.FolderStore
	Favorites filesvc.FavoriteStore
	Approvals approvalsvc.ApprovalStore
	Audit     AuditStore
}

func mongoStores(db *mongo.Database) Stores {
	return Stores{
		Users:     userstore.New(db),
		Files:     filestore.New(db),
		Folders:   folderstore.New(db),
		Favorites: favoritestore.New(db),
		Approvals: approvalstore.New(db),
		Audit:     auditstore.New(db),
	}
}

func memoryStores(db *memstore.DB) Stores {
	return Stores{
		Users:     db.Users(),
		Files:     db.Files(),
		Folders:   db.Folders(),
		Favorites: db.Favorites(),
		Approvals: db.Approvals(),
		Audit:     db.Audit(),
	}
}

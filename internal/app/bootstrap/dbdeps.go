// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/stratadrive/internal/app/system/blobstore"
	"github.com/dalemusser/stratadrive/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
// MongoClient and MongoDatabase are nil on the memory backend.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Stores Stores
	Blobs  blobstore.Store

	// sweeper is set by Startup so Shutdown can stop it.
	sweeper *sweeperHolder
}

type sweeperHolder struct {
	w *workers.FileSweeper
}

// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/stratadrive/internal/app/store/memstore"
	"github.com/dalemusser/stratadrive/internal/app/system/blobstore"
	"github.com/dalemusser/stratadrive/internal/app/system/indexes"
	"github.com/dalemusser/stratadrive/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the persistence backend and the blob store.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	blobs, err := blobstore.New(ctx, blobstore.Config{
		Type:        appCfg.StorageType,
		LocalPath:   appCfg.StorageLocalPath,
		BaseURL:     appCfg.StorageBaseURL,
		S3Region:    appCfg.StorageS3Region,
		S3Bucket:    appCfg.StorageS3Bucket,
		S3Prefix:    appCfg.StorageS3Prefix,
		S3Endpoint:  appCfg.StorageS3Endpoint,
		S3AccessKey: appCfg.StorageS3AccessKey,
		S3SecretKey: appCfg.StorageS3SecretKey,
		URLExpiry:   appCfg.StorageURLExpiry,
	})
	if err != nil {
		return DBDeps{}, fmt.Errorf("blob store: %w", err)
	}
	logger.Info("blob store ready", zap.String("type", appCfg.StorageType))

	deps := DBDeps{Blobs: blobs, sweeper: &sweeperHolder{}}

	if appCfg.StoreBackend == "memory" {
		logger.Warn("using in-memory store backend")
		deps.Stores = memoryStores(memstore.New())
		return deps, nil
	}

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize))

	db := client.Database(appCfg.MongoDatabase)
	deps.MongoClient = client
	deps.MongoDatabase = db
	deps.Stores = mongoStores(db)
	return deps, nil
}

// EnsureSchema creates indexes and collection validators. Both are
// idempotent. The memory backend has nothing to set up.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure validators failed", zap.Error(err))
		return err
	}
	logger.Info("schema ready")
	return nil
}

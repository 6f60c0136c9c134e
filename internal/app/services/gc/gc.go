// Package gc physically removes files that have been flagged for deletion.
package gc

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/blobstore"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultBatchSize is how many flagged files one store round-trip returns.
const DefaultBatchSize = 200

// FileStore is what the collector needs from the file store.
type FileStore interface {
	ListMarkedForDeletion(ctx context.Context, cutoff time.Time, limit int) ([]models.File, error)
	TakeForCollection(ctx context.Context, id primitive.ObjectID, cutoff time.Time) (*models.File, error)
	Reinstate(ctx context.Context, f models.File) error
}

// FavoriteStore drops favorites that point at a removed file.
type FavoriteStore interface {
	DeleteForFile(ctx context.Context, fileID primitive.ObjectID) (int64, error)
}

// Collector deletes flagged files. Approval history is kept; it is only
// removed by an explicit permanent delete.
type Collector struct {
	Files     FileStore
	Favorites FavoriteStore
	Blobs     blobstore.Store
	Log       *zap.Logger

	BatchSize int
	// Retention is how long a file stays flagged before it is collected.
	// Zero collects on the next sweep.
	Retention time.Duration
	Clock     func() time.Time
}

// Result summarises one sweep.
type Result struct {
	Scanned int `json:"scanned"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
	// Skipped counts files restored or removed elsewhere after listing.
	Skipped int `json:"skipped"`
}

func New(files FileStore, favorites FavoriteStore, blobs blobstore.Store, logger *zap.Logger, retention time.Duration) *Collector {
	return &Collector{
		Files:     files,
		Favorites: favorites,
		Blobs:     blobs,
		Log:       logger,
		BatchSize: DefaultBatchSize,
		Retention: retention,
		Clock:     func() time.Time { return time.Now().UTC() },
	}
}

// Sweep removes every file flagged before now-Retention. A file whose blob
// cannot be removed is logged and left flagged for the next sweep; it
// does not stop the others. Files restored after listing are skipped. The returned error is only set when the
// flagged files cannot be listed.
func (c *Collector) Sweep(ctx context.Context) (Result, error) {
	var res Result
	batch := c.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock()
	}
	cutoff := now.Add(-c.Retention)

	failed := make(map[primitive.ObjectID]bool)
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		// Failed files stay flagged; ask for enough rows to see past them.
		limit := batch + len(failed)
		files, err := c.Files.ListMarkedForDeletion(ctx, cutoff, limit)
		if err != nil {
			return res, err
		}

		fresh := 0
		for _, f := range files {
			if failed[f.ID] {
				continue
			}
			fresh++
			res.Scanned++
			err := c.remove(ctx, f, cutoff)
			if errors.Is(err, errGone) {
				res.Skipped++
				continue
			}
			if err != nil {
				res.Failed++
				failed[f.ID] = true
				c.Log.Warn("gc: could not remove file",
					zap.String("file_id", f.ID.Hex()),
					zap.String("storage_id", f.StorageID),
					zap.Error(err))
				continue
			}
			res.Deleted++
		}
		if len(files) < limit || fresh == 0 {
			break
		}
	}

	if res.Scanned > 0 {
		c.Log.Info("gc sweep finished",
			zap.Int("scanned", res.Scanned),
			zap.Int("deleted", res.Deleted),
			zap.Int("failed", res.Failed),
			zap.Int("skipped", res.Skipped))
	}
	return res, nil
}

var errGone = errors.New("gc: file no longer flagged")

// remove claims the record first so a concurrent restore either wins before
// the claim or sees the file as gone. The blob is only touched once the
// record is claimed; if the blob cannot be deleted the record goes back.
func (c *Collector) remove(ctx context.Context, f models.File, cutoff time.Time) error {
	taken, err := c.Files.TakeForCollection(ctx, f.ID, cutoff)
	if errors.Is(err, apperr.ErrNotFound) {
		return errGone
	}
	if err != nil {
		return err
	}
	if taken.StorageID != "" {
		if err := c.Blobs.Delete(ctx, taken.StorageID); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			if rerr := c.Files.Reinstate(ctx, *taken); rerr != nil {
				c.Log.Error("gc: could not reinstate file after blob failure",
					zap.String("file_id", taken.ID.Hex()),
					zap.String("storage_id", taken.StorageID),
					zap.Error(rerr))
			}
			return err
		}
	}
	if c.Favorites != nil {
		if _, err := c.Favorites.DeleteForFile(ctx, taken.ID); err != nil {
			c.Log.Warn("gc: favorites left for removed file",
				zap.String("file_id", taken.ID.Hex()), zap.Error(err))
		}
	}
	return nil
}

// Package history persists normalized record batches and merges windows of
// stored records back into a reconciliation run. The engine depends only on
// the Store interface; MySQL and in-memory implementations are provided.
package history

import (
	"context"
	"time"

	"channel-reconciler/internal/models"
)

// Store is the historical record collaborator. Saving a batch for a
// (config, source, order date) triple that already exists replaces the
// earlier batch, so re-uploads never double records.
type Store interface {
	// SaveBatch stores one source's normalized records under the batch
	// metadata, replacing any prior batch with the same config, source and
	// order date.
	SaveBatch(ctx context.Context, batch models.UploadedBatch, records []*models.OrderRecord) error

	// Query returns the stored records of one config and source whose
	// record time falls in [from, to). The end is exclusive.
	Query(ctx context.Context, configID, source string, from, to time.Time) ([]*models.OrderRecord, error)

	// Batches lists the upload metadata of one config, newest first
	Batches(ctx context.Context, configID string) ([]models.UploadedBatch, error)

	// Cleanup deletes records and batch metadata older than the cutoff,
	// returning the number of records removed.
	Cleanup(ctx context.Context, configID string, before time.Time) (int64, error)

	Close() error
}

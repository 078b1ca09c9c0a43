package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"channel-reconciler/internal/models"
)

// MemoryStore is an in-process Store used by tests and single-shot runs
// that have no database configured.
type MemoryStore struct {
	mu      sync.RWMutex
	batches []storedBatch
}

type storedBatch struct {
	meta    models.UploadedBatch
	records []*models.OrderRecord
}

// NewMemoryStore builds an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveBatch(ctx context.Context, batch models.UploadedBatch, records []*models.OrderRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.batches[:0]
	for _, b := range s.batches {
		if b.meta.ConfigID == batch.ConfigID && b.meta.Source == batch.Source && b.meta.OrderDate == batch.OrderDate {
			continue
		}
		kept = append(kept, b)
	}
	s.batches = append(kept, storedBatch{meta: batch, records: records})
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, configID, source string, from, to time.Time) ([]*models.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.OrderRecord
	for _, b := range s.batches {
		if b.meta.ConfigID != configID || b.meta.Source != source {
			continue
		}
		for _, rec := range b.records {
			t, ok := rec.Time()
			if !ok {
				continue
			}
			if !t.Before(from) && t.Before(to) {
				out = append(out, cloneRecord(rec))
			}
		}
	}
	return out, nil
}

// cloneRecord copies a stored record so callers can tag or mutate query
// results without touching the store's copy.
func cloneRecord(rec *models.OrderRecord) *models.OrderRecord {
	out := *rec
	out.Fields = make(map[string]models.FieldValue, len(rec.Fields))
	for name, fv := range rec.Fields {
		out.Fields[name] = fv
	}
	out.FieldOrder = append([]string(nil), rec.FieldOrder...)
	if rec.Original != nil {
		out.Original = make(map[string]string, len(rec.Original))
		for k, v := range rec.Original {
			out.Original[k] = v
		}
	}
	return &out
}

func (s *MemoryStore) Batches(ctx context.Context, configID string) ([]models.UploadedBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.UploadedBatch
	for _, b := range s.batches {
		if b.meta.ConfigID == configID {
			out = append(out, b.meta)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

func (s *MemoryStore) Cleanup(ctx context.Context, configID string, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	kept := s.batches[:0]
	for _, b := range s.batches {
		date, err := time.Parse("2006-01-02", b.meta.OrderDate)
		if b.meta.ConfigID == configID && err == nil && date.Before(before) {
			removed += int64(len(b.records))
			continue
		}
		kept = append(kept, b)
	}
	s.batches = kept
	return removed, nil
}

func (s *MemoryStore) Close() error { return nil }

package history

import (
	"context"
	"time"

	"channel-reconciler/internal/models"
	"channel-reconciler/pkg/logger"
)

// Merger unions stored records into a side's current record set before
// matching.
type Merger struct {
	store Store
	log   logger.Logger
}

// NewMerger wires a merger over a store
func NewMerger(store Store, log logger.Logger) *Merger {
	return &Merger{store: store, log: log.WithComponent("merger")}
}

// Merge queries the window [minBatchDate - historyDays, minBatchDate) for
// the given config and source, tags every returned record historical and
// appends it to the current set. A batch without any time-typed field has
// no window to anchor on; it is returned unchanged.
func (m *Merger) Merge(ctx context.Context, configID, source string, current []*models.OrderRecord, historyDays int) ([]*models.OrderRecord, error) {
	minDate, ok := minBatchDate(current)
	if !ok {
		m.log.WithField("source", source).Warn("no record times in batch, skipping historical merge")
		return current, nil
	}

	from := minDate.AddDate(0, 0, -historyDays)
	stored, err := m.store.Query(ctx, configID, source, from, minDate)
	if err != nil {
		return nil, err
	}
	for _, rec := range stored {
		rec.Historical = true
	}

	m.log.WithFields(logger.Fields{
		"source":  source,
		"from":    from.Format("2006-01-02"),
		"to":      minDate.Format("2006-01-02"),
		"merged":  len(stored),
		"current": len(current),
	}).Info("historical records merged")

	return append(current, stored...), nil
}

// minBatchDate finds the day boundary of the earliest record time, in UTC
func minBatchDate(records []*models.OrderRecord) (time.Time, bool) {
	var min time.Time
	found := false
	for _, rec := range records {
		t, ok := rec.Time()
		if !ok {
			continue
		}
		if !found || t.Before(min) {
			min = t
			found = true
		}
	}
	if !found {
		return time.Time{}, false
	}
	day := time.Date(min.Year(), min.Month(), min.Day(), 0, 0, 0, 0, time.UTC)
	return day, true
}

package normalize

import "channel-reconciler/internal/models"

// Deduplicate drops records whose saved field values all equal an earlier
// record's, keeping the first occurrence in input order. It returns the
// surviving records and the number dropped.
func Deduplicate(records []*models.OrderRecord) ([]*models.OrderRecord, int) {
	seen := make(map[string]bool, len(records))
	kept := records[:0:0]
	for _, rec := range records {
		key := rec.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, rec)
	}
	return kept, len(records) - len(kept)
}

// Package matcher joins the two sources' canonical record sets on the
// configured identifier and classifies every record into one of four
// outcome buckets.
package matcher

import "channel-reconciler/internal/models"

// identifierIndex is a hash index from identifier to the records carrying
// it, preserving insertion order. Claiming pops the first unclaimed record
// so duplicate identifiers resolve first-available.
type identifierIndex struct {
	records []*models.OrderRecord
	byID    map[string][]int
	claimed []bool
}

func newIdentifierIndex(records []*models.OrderRecord) *identifierIndex {
	idx := &identifierIndex{
		records: records,
		byID:    make(map[string][]int, len(records)),
		claimed: make([]bool, len(records)),
	}
	for i, rec := range records {
		idx.byID[rec.ID] = append(idx.byID[rec.ID], i)
	}
	return idx
}

// claim pops the first unclaimed record with the given identifier
func (idx *identifierIndex) claim(id string) (*models.OrderRecord, bool) {
	positions := idx.byID[id]
	for len(positions) > 0 && idx.claimed[positions[0]] {
		positions = positions[1:]
	}
	idx.byID[id] = positions
	if len(positions) == 0 {
		return nil, false
	}
	pos := positions[0]
	idx.claimed[pos] = true
	idx.byID[id] = positions[1:]
	return idx.records[pos], true
}

// unclaimed returns the records never popped, in insertion order
func (idx *identifierIndex) unclaimed() []*models.OrderRecord {
	var rest []*models.OrderRecord
	for i, rec := range idx.records {
		if !idx.claimed[i] {
			rest = append(rest, rec)
		}
	}
	return rest
}

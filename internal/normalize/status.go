package normalize

import "channel-reconciler/internal/models"

// StatusResolver canonicalizes raw status strings through a source's
// configured status mappings.
type StatusResolver struct {
	byRaw map[string]string
}

// NewStatusResolver indexes the mappings by raw status. The configuration
// validator has already rejected a raw status appearing twice, so first-in
// wins here without ambiguity.
func NewStatusResolver(mappings []models.StatusMapping) *StatusResolver {
	byRaw := make(map[string]string)
	for _, sm := range mappings {
		for _, raw := range sm.SourceStatus {
			if _, exists := byRaw[raw]; !exists {
				byRaw[raw] = sm.TargetStatus
			}
		}
	}
	return &StatusResolver{byRaw: byRaw}
}

// Resolve maps a raw status to its canonical form. Unknown statuses get the
// unmapped sentinel rather than an error so the record still participates in
// matching while staying visible in output.
func (r *StatusResolver) Resolve(raw string) string {
	if target, ok := r.byRaw[raw]; ok {
		return target
	}
	return models.StatusUnmapped
}

// Annotate resolves and stores the canonical status on each record
func (r *StatusResolver) Annotate(records []*models.OrderRecord) {
	for _, rec := range records {
		rec.Status = r.Resolve(rec.RawStatus)
	}
}

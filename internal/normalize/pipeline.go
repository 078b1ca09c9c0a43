package normalize

import (
	"channel-reconciler/internal/models"
	apperrors "channel-reconciler/pkg/errors"
	"channel-reconciler/pkg/logger"
)

// Pipeline runs one source's full normalization: record building, status
// canonicalization, optional duplicate removal, and identifier assignment.
// It is a pure function of its inputs; two pipelines never share state.
type Pipeline struct {
	sourceName string
	source     *models.SourceConfig
	statuses   *StatusResolver
	idField    string
	log        logger.Logger
}

// NewPipeline wires a pipeline for one side of a channel. The idField names
// the canonical field whose boundary form becomes each record's identifier;
// statusMappings are that side's status mappings from the match config.
func NewPipeline(sourceName string, source *models.SourceConfig, statusMappings []models.StatusMapping, idField string, log logger.Logger) *Pipeline {
	return &Pipeline{
		sourceName: sourceName,
		source:     source,
		statuses:   NewStatusResolver(statusMappings),
		idField:    idField,
		log:        log.WithComponent("pipeline").WithField("source", sourceName),
	}
}

// Run turns raw rows into canonical records plus diagnostics. Row-level
// failures are recovered into the diagnostics; only configuration-shape
// problems return an error.
func (p *Pipeline) Run(rows [][]string) ([]*models.OrderRecord, *Diagnostics, error) {
	builder, err := NewBuilder(p.source, p.log)
	if err != nil {
		return nil, nil, err
	}
	records, diags, err := builder.Build(rows)
	if err != nil {
		return nil, nil, err
	}

	p.statuses.Annotate(records)

	if p.source.RemoveDuplicate {
		var dropped int
		records, dropped = Deduplicate(records)
		diags.DuplicatesRemoved = dropped
		if dropped > 0 {
			p.log.WithField("dropped", dropped).Info("duplicate records removed")
		}
	}

	p.assignIdentifiers(records, diags)
	return records, diags, nil
}

// assignIdentifiers copies the configured identifier field onto each record
// and warns about identifiers shared by distinct surviving records.
func (p *Pipeline) assignIdentifiers(records []*models.OrderRecord, diags *Diagnostics) {
	counts := make(map[string]int, len(records))
	for _, rec := range records {
		if fv, ok := rec.Field(p.idField); ok {
			rec.ID = fv.String()
		}
		counts[rec.ID]++
	}
	for id, n := range counts {
		if id == "" || n < 2 {
			continue
		}
		warn := apperrors.DuplicateIdentifierWarning(p.sourceName, id, n)
		diags.Warnings = append(diags.Warnings, warn)
		p.log.WithFields(logger.Fields{
			"identifier": id,
			"count":      n,
		}).Warn("duplicate identifier after deduplication")
	}
}

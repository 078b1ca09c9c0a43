package normalize

import (
	"strconv"
	"strings"
	"time"

	"channel-reconciler/internal/models"
	apperrors "channel-reconciler/pkg/errors"
	"channel-reconciler/pkg/logger"
)

// Diagnostics collects the non-fatal findings of one source pipeline run.
// Row errors and warnings never abort the run; they travel alongside the
// canonical record set.
type Diagnostics struct {
	// RowErrors holds one entry per excluded row
	RowErrors []*apperrors.Error

	// Warnings holds non-excluding findings, such as duplicate identifiers
	// that survived deduplication.
	Warnings []*apperrors.Error

	// DuplicatesRemoved counts rows dropped by the deduplicator
	DuplicatesRemoved int
}

// HasRowErrors reports whether any row was excluded
func (d *Diagnostics) HasRowErrors() bool {
	return len(d.RowErrors) > 0
}

// Builder assembles canonical records from the raw rows of one source
type Builder struct {
	source *models.SourceConfig
	loc    *time.Location
	log    logger.Logger

	// columnIndex maps each mapping (by position) to its row column
	columnIndex []int
}

// NewBuilder resolves the source's timezone and column positions. With a
// zero header the sourceColumn values are zero-based indexes; otherwise the
// last skipped row names the columns and sourceColumn values are looked up
// in it once the first rows arrive.
func NewBuilder(source *models.SourceConfig, log logger.Logger) (*Builder, error) {
	loc, err := source.Location()
	if err != nil {
		return nil, err
	}
	return &Builder{
		source: source,
		loc:    loc,
		log:    log.WithComponent("builder"),
	}, nil
}

// resolveColumns fixes each mapping's column index, using the header row
// when the source declares one.
func (b *Builder) resolveColumns(rows [][]string) error {
	b.columnIndex = make([]int, len(b.source.Mappings))

	if b.source.Header == 0 {
		for i, m := range b.source.Mappings {
			idx, err := strconv.Atoi(strings.TrimSpace(m.SourceColumn))
			if err != nil || idx < 0 {
				return apperrors.ConfigError(apperrors.CodeInvalidConfig,
					"mapping.sourceColumn", m.SourceColumn, err)
			}
			b.columnIndex[i] = idx
		}
		return nil
	}

	if len(rows) < b.source.Header {
		return apperrors.ConfigError(apperrors.CodeMissingColumn,
			"header", b.source.Header, nil)
	}
	header := rows[b.source.Header-1]
	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[strings.TrimSpace(name)] = i
	}
	for i, m := range b.source.Mappings {
		idx, ok := byName[strings.TrimSpace(m.SourceColumn)]
		if !ok {
			return apperrors.ConfigError(apperrors.CodeMissingColumn,
				"mapping.sourceColumn", m.SourceColumn, nil)
		}
		b.columnIndex[i] = idx
	}
	return nil
}

// Build skips header rows, normalizes every remaining row, and returns the
// canonical records. A row failing on any mapped field is excluded and
// recorded in the diagnostics; the batch continues.
func (b *Builder) Build(rows [][]string) ([]*models.OrderRecord, *Diagnostics, error) {
	diags := &Diagnostics{}

	if err := b.resolveColumns(rows); err != nil {
		return nil, nil, err
	}

	records := make([]*models.OrderRecord, 0, len(rows))
	for rowIdx := b.source.Header; rowIdx < len(rows); rowIdx++ {
		rec, err := b.buildRow(rows[rowIdx], rowIdx)
		if err != nil {
			appErr, ok := apperrors.As(err)
			if !ok {
				appErr = apperrors.InternalError("build row", err)
			}
			diags.RowErrors = append(diags.RowErrors, appErr)
			b.log.WithError(err).WithField("row", rowIdx).Debug("row excluded")
			continue
		}
		records = append(records, rec)
	}

	b.log.WithFields(logger.Fields{
		"rows":     len(rows) - b.source.Header,
		"records":  len(records),
		"excluded": len(diags.RowErrors),
	}).Debug("batch built")

	return records, diags, nil
}

func (b *Builder) buildRow(row []string, rowIdx int) (*models.OrderRecord, error) {
	rec := models.NewOrderRecord()
	for i := range b.source.Mappings {
		m := &b.source.Mappings[i]
		col := b.columnIndex[i]
		if col >= len(row) {
			return nil, apperrors.FieldError(apperrors.CodeMissingColumn,
				rowIdx, m.FieldName, "", nil)
		}
		raw := row[col]

		fv, err := NormalizeField(raw, m, b.loc)
		if err != nil {
			code := apperrors.CodeFormat
			if appErr, ok := apperrors.As(err); ok {
				code = appErr.Code
			}
			return nil, apperrors.FieldError(code, rowIdx, m.FieldName, raw, err)
		}
		rec.SetField(m.FieldName, fv)

		if m.SaveOriginal {
			if rec.Original == nil {
				rec.Original = make(map[string]string)
			}
			rec.Original[m.FieldName] = raw
		}
		if m.FieldType == models.FieldOrderStatus && rec.RawStatus == "" {
			rec.RawStatus = fv.Text
		}
	}
	return rec, nil
}

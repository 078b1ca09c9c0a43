// Package exporter writes reconciliation results to CSV files and Excel
// workbooks. Columns are ordered identifier, time, amount, status, then the
// remaining fields in mapping order, so the significant columns always come
// first regardless of the source layout.
package exporter

import (
	"fmt"

	"channel-reconciler/internal/models"
	"channel-reconciler/pkg/logger"
)

// Category selects which result bucket to export
type Category string

const (
	CategoryMatched    Category = "matched"
	CategoryDiffAmount Category = "diff"
	CategoryOnlyInA    Category = "only-a"
	CategoryOnlyInB    Category = "only-b"
	CategoryAll        Category = "all"
)

// IsValid checks the category name
func (c Category) IsValid() bool {
	switch c {
	case CategoryMatched, CategoryDiffAmount, CategoryOnlyInA, CategoryOnlyInB, CategoryAll:
		return true
	default:
		return false
	}
}

// singleCategories is every concrete bucket, in export order
var singleCategories = []Category{
	CategoryMatched, CategoryDiffAmount, CategoryOnlyInA, CategoryOnlyInB,
}

// canonicalStatusColumn carries the mapped status alongside the raw fields
const canonicalStatusColumn = "canonicalStatus"

// historicalColumn flags records merged in from the historical store
const historicalColumn = "historical"

// amountDiffColumn is the computed column added to diffAmount exports
const amountDiffColumn = "amountDiff"

// Exporter renders result buckets into tabular form
type Exporter struct {
	cfg *models.ChannelConfig
	log logger.Logger
}

// New builds an exporter for one channel's result
func New(cfg *models.ChannelConfig, log logger.Logger) *Exporter {
	return &Exporter{cfg: cfg, log: log.WithComponent("exporter")}
}

// prioritize orders field names: identifier first, then the first time and
// amount fields, then the status field, then everything else in first-seen
// order.
func prioritize(records []*models.OrderRecord, idField string) []string {
	var order []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, name := range rec.FieldOrder {
			if !seen[name] {
				seen[name] = true
				order = append(order, name)
			}
		}
	}

	kindOf := func(name string) models.ValueKind {
		for _, rec := range records {
			if fv, ok := rec.Field(name); ok {
				return fv.Kind
			}
		}
		return models.KindString
	}

	rank := func(name string) int {
		switch {
		case name == idField:
			return 0
		case kindOf(name) == models.KindTime:
			return 1
		case kindOf(name) == models.KindAmount:
			return 2
		case kindOf(name) == models.KindStatus:
			return 3
		default:
			return 4
		}
	}

	// stable insertion sort keeps first-seen order inside each rank
	sorted := make([]string, 0, len(order))
	for r := 0; r <= 4; r++ {
		for _, name := range order {
			if rank(name) == r {
				sorted = append(sorted, name)
			}
		}
	}
	return sorted
}

// recordRow renders one record against a fixed column list
func recordRow(rec *models.OrderRecord, columns []string) []string {
	row := make([]string, 0, len(columns)+2)
	for _, name := range columns {
		if fv, ok := rec.Field(name); ok {
			row = append(row, fv.String())
		} else {
			row = append(row, "")
		}
	}
	row = append(row, rec.Status)
	row = append(row, fmt.Sprintf("%t", rec.Historical))
	return row
}

// sideColumns suffixes the two sides' headers so a pair row stays readable
func sideColumns(columns []string, sourceName string) []string {
	out := make([]string, len(columns))
	for i, name := range columns {
		out[i] = name + " (" + sourceName + ")"
	}
	return out
}

// table is one rendered bucket: a header row plus data rows
type table struct {
	header []string
	rows   [][]string
}

// pairTable renders matched or diffAmount pairs. The diff column is only
// present for the diffAmount bucket.
func (e *Exporter) pairTable(pairs []models.MatchedPair, withDiff bool) table {
	recordsA := make([]*models.OrderRecord, len(pairs))
	recordsB := make([]*models.OrderRecord, len(pairs))
	for i, p := range pairs {
		recordsA[i] = p.A
		recordsB[i] = p.B
	}
	colsA := prioritize(recordsA, e.cfg.Match.SourceAIDField)
	colsB := prioritize(recordsB, e.cfg.Match.SourceBIDField)

	header := append([]string{}, sideColumns(colsA, e.cfg.SourceAName)...)
	header = append(header, canonicalStatusColumn+" ("+e.cfg.SourceAName+")", historicalColumn+" ("+e.cfg.SourceAName+")")
	header = append(header, sideColumns(colsB, e.cfg.SourceBName)...)
	header = append(header, canonicalStatusColumn+" ("+e.cfg.SourceBName+")", historicalColumn+" ("+e.cfg.SourceBName+")")
	if withDiff {
		header = append(header, amountDiffColumn)
	}

	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		row := append([]string{}, recordRow(p.A, colsA)...)
		row = append(row, recordRow(p.B, colsB)...)
		if withDiff {
			if diff, ok := p.AmountDiff(); ok {
				row = append(row, diff.String())
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return table{header: header, rows: rows}
}

// recordTable renders an onlyIn bucket
func (e *Exporter) recordTable(records []*models.OrderRecord, idField string) table {
	cols := prioritize(records, idField)
	header := append([]string{}, cols...)
	header = append(header, canonicalStatusColumn, historicalColumn)

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, recordRow(rec, cols))
	}
	return table{header: header, rows: rows}
}

// render produces the table of one concrete category
func (e *Exporter) render(category Category, result *models.ReconciliationResult) table {
	switch category {
	case CategoryMatched:
		return e.pairTable(result.Matched, false)
	case CategoryDiffAmount:
		return e.pairTable(result.DiffAmount, true)
	case CategoryOnlyInA:
		return e.recordTable(result.OnlyInA, e.cfg.Match.SourceAIDField)
	default:
		return e.recordTable(result.OnlyInB, e.cfg.Match.SourceBIDField)
	}
}

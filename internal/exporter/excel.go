package exporter

import (
	"github.com/xuri/excelize/v2"

	"channel-reconciler/internal/models"
	apperrors "channel-reconciler/pkg/errors"
)

// sheetNames maps each bucket to its workbook sheet
var sheetNames = map[Category]string{
	CategoryMatched:    "Matched",
	CategoryDiffAmount: "Amount Differences",
	CategoryOnlyInA:    "Only In Source A",
	CategoryOnlyInB:    "Only In Source B",
}

// WriteExcel exports the whole result as one workbook with a sheet per
// bucket.
func (e *Exporter) WriteExcel(path string, result *models.ReconciliationResult) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, cat := range singleCategories {
		name := sheetNames[cat]
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return apperrors.FileError(apperrors.CodeFileWrite, path, err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return apperrors.FileError(apperrors.CodeFileWrite, path, err)
			}
		}
		if err := writeSheet(f, name, e.render(cat, result)); err != nil {
			return apperrors.FileError(apperrors.CodeFileWrite, path, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return apperrors.FileError(apperrors.CodeFileWrite, path, err)
	}
	e.log.WithField("path", path).Info("workbook exported")
	return nil
}

func writeSheet(f *excelize.File, sheet string, t table) error {
	writeRow := func(rowIdx int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(sheet, cell, &row)
	}

	if err := writeRow(1, t.header); err != nil {
		return err
	}
	for i, row := range t.rows {
		if err := writeRow(i+2, row); err != nil {
			return err
		}
	}
	return nil
}

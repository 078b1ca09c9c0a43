package exporter

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"channel-reconciler/internal/models"
	apperrors "channel-reconciler/pkg/errors"
	"channel-reconciler/pkg/logger"
)

// WriteCSV exports the chosen category into dir, one file per concrete
// bucket named `<base>-<category>.csv`. CategoryAll writes all four files.
// It returns the paths written.
func (e *Exporter) WriteCSV(dir, base string, category Category, result *models.ReconciliationResult) ([]string, error) {
	if !category.IsValid() {
		return nil, apperrors.ConfigError(apperrors.CodeInvalidConfig,
			"export.category", string(category), nil)
	}
	categories := []Category{category}
	if category == CategoryAll {
		categories = singleCategories
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileWrite, dir, err)
	}

	var paths []string
	for _, cat := range categories {
		path := filepath.Join(dir, base+"-"+string(cat)+".csv")
		if err := e.writeCSVFile(path, e.render(cat, result)); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	e.log.WithFields(logger.Fields{
		"dir":   dir,
		"files": len(paths),
	}).Info("results exported")
	return paths, nil
}

func (e *Exporter) writeCSVFile(path string, t table) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.FileError(apperrors.CodeFileWrite, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.header); err != nil {
		return apperrors.FileError(apperrors.CodeFileWrite, path, err)
	}
	for _, row := range t.rows {
		if err := w.Write(row); err != nil {
			return apperrors.FileError(apperrors.CodeFileWrite, path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return apperrors.FileError(apperrors.CodeFileWrite, path, err)
	}
	return nil
}

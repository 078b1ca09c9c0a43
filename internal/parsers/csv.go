// Package parsers reads raw tabular input at the edge of the system. The
// engine itself only ever sees [][]string batches; all file handling stays
// here.
package parsers

import (
	"encoding/csv"
	"io"
	"os"

	apperrors "channel-reconciler/pkg/errors"
	"channel-reconciler/pkg/logger"
)

// Reader loads CSV files into raw row batches
type Reader struct {
	log logger.Logger
}

// NewReader builds a CSV reader
func NewReader(log logger.Logger) *Reader {
	return &Reader{log: log.WithComponent("parser")}
}

// ReadFile streams the entire file into a raw row batch. Rows may have
// varying field counts; the record builder handles short rows per mapping.
func (r *Reader) ReadFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileError(apperrors.CodeFileNotFound, path, err)
		}
		return nil, apperrors.FileError(apperrors.CodeFileRead, path, err)
	}
	defer f.Close()

	rows, err := r.readAll(f)
	if err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileRead, path, err)
	}

	r.log.WithFields(logger.Fields{
		"path": path,
		"rows": len(rows),
	}).Debug("file loaded")
	return rows, nil
}

func (r *Reader) readAll(src io.Reader) ([][]string, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// PeekHeaders returns the file's first row, used by config tooling to show
// the available column names.
func (r *Reader) PeekHeaders(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileError(apperrors.CodeFileNotFound, path, err)
		}
		return nil, apperrors.FileError(apperrors.CodeFileRead, path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	row, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileRead, path, err)
	}
	return row, nil
}

package columnar

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	"github.com/couchcryptid/rio-sonora-etl/internal/table"
)

// CSVWriter writes reference tables as UTF-8 CSV with a single header row.
type CSVWriter struct {
	logger  *slog.Logger
	onChunk ProgressFunc
}

// NewCSVWriter creates a CSVWriter. onChunk may be nil.
func NewCSVWriter(logger *slog.Logger, onChunk ProgressFunc) *CSVWriter {
	return &CSVWriter{logger: logger, onChunk: onChunk}
}

// Write creates (or truncates) path and writes t to it, flushing every
// chunkSize rows.
func (w *CSVWriter) Write(t *table.Table, path string, chunkSize int) (err error) {
	if chunkSize <= 0 {
		return &domain.WriteError{Path: path, Err: ErrChunkSize}
	}

	f, err := os.Create(path)
	if err != nil {
		return &domain.WriteError{Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &domain.WriteError{Path: path, Err: cerr}
		}
	}()

	return w.WriteTo(f, path, t, chunkSize)
}

// WriteTo writes t to dst. Null cells are written as empty fields.
func (w *CSVWriter) WriteTo(dst io.Writer, name string, t *table.Table, chunkSize int) error {
	if chunkSize <= 0 {
		return &domain.WriteError{Path: name, Err: ErrChunkSize}
	}

	total := t.Len()
	w.logger.Info("writing csv file", "path", name, "rows", total, "chunk_size", chunkSize)

	cw := csv.NewWriter(dst)
	if err := cw.Write(t.Columns()); err != nil {
		return &domain.WriteError{Path: name, Err: err}
	}

	record := make([]string, t.Width())
	err := eachChunk(total, chunkSize, func(chunk, start, end int) error {
		for i := start; i < end; i++ {
			for j := range record {
				record[j] = t.At(i, j).String()
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		report(w.logger, w.onChunk, Progress{Path: name, Chunk: chunk, Written: end, Total: total})
		return nil
	})
	if err != nil {
		return &domain.WriteError{Path: name, Err: err}
	}

	// Header-only tables still need the header flushed.
	cw.Flush()
	if err := cw.Error(); err != nil {
		return &domain.WriteError{Path: name, Err: err}
	}

	w.logger.Info("csv file written", "path", name, "rows", total)
	return nil
}

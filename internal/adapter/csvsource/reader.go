// Package csvsource reads delimited files published in ISO-8859-1 (Latin-1)
// into tables.
package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	"github.com/couchcryptid/rio-sonora-etl/internal/table"
)

// Reader decodes CSV files with a header row. Every cell is read as text;
// empty cells become null. Short rows are padded with nulls.
type Reader struct {
	logger   *slog.Logger
	encoding encoding.Encoding
}

// NewReader creates a Reader for Latin-1 input.
func NewReader(logger *slog.Logger) *Reader {
	return &Reader{logger: logger, encoding: charmap.ISO8859_1}
}

// ReadFile reads the CSV at path. A missing file is a *domain.MissingInputError.
func (r *Reader) ReadFile(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &domain.MissingInputError{Path: path}
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return r.Read(f, path)
}

// Read decodes src. name identifies the source in errors and logs.
func (r *Reader) Read(src io.Reader, name string) (*table.Table, error) {
	cr := csv.NewReader(transform.NewReader(src, r.encoding.NewDecoder()))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		r.logger.Warn("csv source is empty", "source", name)
		return table.New()
	}
	if err != nil {
		return nil, &domain.MalformedSourceError{Source: name, Reason: "read header", Err: err}
	}

	t, err := table.New(header...)
	if err != nil {
		return nil, &domain.MalformedSourceError{Source: name, Reason: "invalid header", Err: err}
	}

	vals := make([]table.Value, len(header))
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.MalformedSourceError{Source: name, Reason: "parse csv", Err: err}
		}
		if len(record) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, &domain.MalformedSourceError{
				Source: name,
				Reason: fmt.Sprintf("line %d has %d fields, header has %d", line, len(record), len(header)),
			}
		}
		for j := range vals {
			vals[j] = table.Null()
			if j < len(record) && record[j] != "" {
				vals[j] = table.Str(record[j])
			}
		}
		if err := t.Append(vals...); err != nil {
			return nil, err
		}
	}

	r.logger.Debug("csv source read", "source", name, "rows", t.Len(), "columns", t.Width())
	return t, nil
}

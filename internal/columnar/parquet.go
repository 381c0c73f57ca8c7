package columnar

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	"github.com/couchcryptid/rio-sonora-etl/internal/table"
)

// recordWriter is the part of *pqarrow.FileWriter the writer drives.
type recordWriter interface {
	Write(rec arrow.Record) error
	Close() error
}

type openFunc func(schema *arrow.Schema, dst io.Writer, props *parquet.WriterProperties, arrowProps pqarrow.ArrowWriterProperties) (recordWriter, error)

func openPqarrow(schema *arrow.Schema, dst io.Writer, props *parquet.WriterProperties, arrowProps pqarrow.ArrowWriterProperties) (recordWriter, error) {
	fw, err := pqarrow.NewFileWriter(schema, dst, props, arrowProps)
	if err != nil {
		return nil, err
	}
	return fw, nil
}

// ParquetWriter writes tables as parquet files with one row group per chunk.
type ParquetWriter struct {
	logger  *slog.Logger
	mem     memory.Allocator
	onChunk ProgressFunc
	open    openFunc
}

// NewParquetWriter creates a ParquetWriter. onChunk may be nil.
func NewParquetWriter(logger *slog.Logger, onChunk ProgressFunc) *ParquetWriter {
	return &ParquetWriter{
		logger:  logger,
		mem:     memory.NewGoAllocator(),
		onChunk: onChunk,
		open:    openPqarrow,
	}
}

// Write creates (or truncates) path and writes t to it in chunks of
// chunkSize rows. Any failure is returned as a *domain.WriteError; a partially
// written file is left in place.
func (w *ParquetWriter) Write(t *table.Table, path string, chunkSize int) (err error) {
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

// WriteTo writes t to dst. name identifies the destination in progress
// reports and errors.
func (w *ParquetWriter) WriteTo(dst io.Writer, name string, t *table.Table, chunkSize int) error {
	if chunkSize <= 0 {
		return &domain.WriteError{Path: name, Err: ErrChunkSize}
	}

	total := t.Len()
	w.logger.Info("writing parquet file", "path", name, "rows", total, "chunk_size", chunkSize)

	// One schema for the whole table so every row group agrees.
	kinds := t.Schema()
	schema := arrowSchema(kinds)

	// bufio hides Close from the parquet writer; the caller owns dst.
	bw := bufio.NewWriter(dst)
	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithMaxRowGroupLength(int64(chunkSize)),
	)
	fw, err := w.open(schema, bw, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return &domain.WriteError{Path: name, Err: fmt.Errorf("create parquet writer: %w", err)}
	}

	err = eachChunk(total, chunkSize, func(chunk, start, end int) error {
		rec := buildRecord(w.mem, schema, kinds, t.Slice(start, end))
		defer rec.Release()

		if err := fw.Write(rec); err != nil {
			return fmt.Errorf("write row group %d: %w", chunk, err)
		}
		report(w.logger, w.onChunk, Progress{Path: name, Chunk: chunk, Written: end, Total: total})
		return nil
	})
	if err != nil {
		_ = fw.Close()
		return &domain.WriteError{Path: name, Err: err}
	}

	if err := fw.Close(); err != nil {
		return &domain.WriteError{Path: name, Err: fmt.Errorf("close parquet writer: %w", err)}
	}
	if err := bw.Flush(); err != nil {
		return &domain.WriteError{Path: name, Err: err}
	}

	w.logger.Info("parquet file written", "path", name, "rows", total)
	return nil
}

func arrowSchema(s table.Schema) *arrow.Schema {
	fields := make([]arrow.Field, len(s))
	for i, f := range s {
		fields[i] = arrow.Field{Name: f.Name, Type: arrowType(f.Kind), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(k table.Kind) arrow.DataType {
	switch k {
	case table.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case table.KindInt:
		return arrow.PrimitiveTypes.Int64
	default:
		return arrow.BinaryTypes.String
	}
}

func buildRecord(mem memory.Allocator, schema *arrow.Schema, kinds table.Schema, chunk *table.Table) arrow.Record {
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for j, f := range kinds {
		fb := b.Field(j)
		for i := 0; i < chunk.Len(); i++ {
			appendValue(fb, f.Kind, chunk.At(i, j))
		}
	}
	return b.NewRecord()
}

// appendValue relies on Table.Schema: float columns hold only numbers, int
// columns only integers, and anything else is rendered as text.
func appendValue(b array.Builder, kind table.Kind, v table.Value) {
	if v.IsNull() {
		b.AppendNull()
		return
	}
	switch kind {
	case table.KindFloat:
		f, _ := v.Float64()
		b.(*array.Float64Builder).Append(f)
	case table.KindInt:
		n, _ := v.Int64()
		b.(*array.Int64Builder).Append(n)
	default:
		b.(*array.StringBuilder).Append(v.String())
	}
}

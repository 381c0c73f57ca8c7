package columnar

import (
	"context"
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/couchcryptid/rio-sonora-etl/internal/table"
)

// ReadParquet decodes a parquet file written by ParquetWriter. It returns the
// table and the number of row groups in the file.
func ReadParquet(ctx context.Context, path string) (*table.Table, int, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, 0, fmt.Errorf("open parquet %s: %w", path, err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, 0, fmt.Errorf("read parquet %s: %w", path, err)
	}

	arrowTable, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read parquet %s: %w", path, err)
	}
	defer arrowTable.Release()

	schema := arrowTable.Schema()
	names := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		names[i] = f.Name
	}
	out, err := table.New(names...)
	if err != nil {
		return nil, 0, err
	}

	tr := array.NewTableReader(arrowTable, -1)
	defer tr.Release()

	for tr.Next() {
		rec := tr.Record()
		for i := 0; i < int(rec.NumRows()); i++ {
			row := make([]table.Value, rec.NumCols())
			for j := range row {
				v, err := valueAt(rec.Column(j), i)
				if err != nil {
					return nil, 0, fmt.Errorf("read parquet %s column %q: %w", path, names[j], err)
				}
				row[j] = v
			}
			if err := out.Append(row...); err != nil {
				return nil, 0, err
			}
		}
	}

	return out, rdr.NumRowGroups(), nil
}

func valueAt(col arrow.Array, i int) (table.Value, error) {
	if col.IsNull(i) {
		return table.Null(), nil
	}
	switch c := col.(type) {
	case *array.Float64:
		return table.Float(c.Value(i)), nil
	case *array.Int64:
		return table.Int(c.Value(i)), nil
	case *array.String:
		return table.Str(c.Value(i)), nil
	default:
		return table.Value{}, fmt.Errorf("unsupported arrow type %s", col.DataType())
	}
}

// Package table is the in-memory form every dataset passes through between
// reading and writing: named columns, rows kept in input order, and typed
// cells that may be missing.
package table

import (
	"fmt"
	"slices"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
)

// Table is a row-ordered tidy table. Column names are unique.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New creates an empty table with the given columns.
func New(columns ...string) (*Table, error) {
	t := &Table{
		columns: slices.Clone(columns),
		index:   make(map[string]int, len(columns)),
	}
	var dup []string
	for i, c := range columns {
		if _, ok := t.index[c]; ok {
			dup = append(dup, c)
			continue
		}
		t.index[c] = i
	}
	if len(dup) > 0 {
		return nil, &domain.SchemaError{Op: "new table", Columns: dup, Reason: "duplicate column names"}
	}
	return t, nil
}

// MustNew is New for fixed column lists; it panics on duplicates.
func MustNew(columns ...string) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Require returns a SchemaError naming every absent column.
func (t *Table) Require(op string, names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return missingColumns(op, missing)
	}
	return nil
}

// Append adds a row. The number of values must match the column count.
func (t *Table) Append(values ...Value) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("append row: got %d values for %d columns", len(values), len(t.columns))
	}
	t.rows = append(t.rows, slices.Clone(values))
	return nil
}

// Value returns the cell at row i of the named column, or null when the
// column does not exist.
func (t *Table) Value(i int, name string) Value {
	j, ok := t.index[name]
	if !ok {
		return Null()
	}
	return t.rows[i][j]
}

// At returns the cell at row i, column j.
func (t *Table) At(i, j int) Value { return t.rows[i][j] }

// Row returns a read-only handle on row i.
func (t *Table) Row(i int) Row { return Row{t: t, i: i} }

// Records returns a deep copy of all rows.
func (t *Table) Records() [][]Value {
	out := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = slices.Clone(r)
	}
	return out
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]Value, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, missingColumns("column", []string{name})
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Slice returns rows [start, end) as a table sharing storage with t. The
// result must be treated as read-only.
func (t *Table) Slice(start, end int) *Table {
	return &Table{columns: t.columns, index: t.index, rows: t.rows[start:end]}
}

// Select projects the named columns in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	if err := t.Require("select", names...); err != nil {
		return nil, err
	}
	out, err := New(names...)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(names))
	for k, n := range names {
		idx[k] = t.index[n]
	}
	out.rows = make([][]Value, len(t.rows))
	for i, r := range t.rows {
		row := make([]Value, len(idx))
		for k, j := range idx {
			row[k] = r[j]
		}
		out.rows[i] = row
	}
	return out, nil
}

// Drop removes the named columns. Every name must exist.
func (t *Table) Drop(names ...string) (*Table, error) {
	if err := t.Require("drop", names...); err != nil {
		return nil, err
	}
	keep := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if !slices.Contains(names, c) {
			keep = append(keep, c)
		}
	}
	return t.Select(keep...)
}

// Rename maps a column name to a new one.
type Rename struct {
	From string
	To   string
}

// Rename returns a copy of t with columns renamed. Mappings whose source
// column is absent are ignored; a mapping that produces duplicate names is a
// SchemaError.
func (t *Table) Rename(renames ...Rename) (*Table, error) {
	to := make(map[string]string, len(renames))
	for _, r := range renames {
		to[r.From] = r.To
	}
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		if n, ok := to[c]; ok {
			names[i] = n
		} else {
			names[i] = c
		}
	}
	out, err := New(names...)
	if err != nil {
		return nil, &domain.SchemaError{Op: "rename", Columns: duplicates(names), Reason: "mapping produces duplicate column names"}
	}
	out.rows = t.Records()
	return out, nil
}

// Filter returns the rows for which keep returns true, in order.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{columns: t.columns, index: t.index}
	for i := range t.rows {
		if keep(Row{t: t, i: i}) {
			out.rows = append(out.rows, slices.Clone(t.rows[i]))
		}
	}
	return out
}

// Update replaces every value of the named column with fn's result. The
// first error aborts the update; rows already visited keep their new value.
func (t *Table) Update(name string, fn func(row int, v Value) (Value, error)) error {
	j, ok := t.index[name]
	if !ok {
		return missingColumns("update", []string{name})
	}
	for i, r := range t.rows {
		v, err := fn(i, r[j])
		if err != nil {
			return err
		}
		r[j] = v
	}
	return nil
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

// Index is the row's position in its table.
func (r Row) Index() int { return r.i }

// Value returns the named cell, or null for an unknown column.
func (r Row) Value(name string) Value { return r.t.Value(r.i, name) }

func duplicates(names []string) []string {
	seen := make(map[string]bool, len(names))
	var dup []string
	for _, n := range names {
		if seen[n] {
			dup = append(dup, n)
		}
		seen[n] = true
	}
	return dup
}

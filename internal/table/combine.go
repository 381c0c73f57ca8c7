package table

import (
	"slices"
	"strconv"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
)

// Suffixes appended to non-key columns present on both sides of a join.
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// InnerJoin joins left and right on equal, non-null key values. Output rows
// follow left order, and for each left row the matching right rows in right
// order, so a key seen once on the left and K times on the right yields K
// rows. The key appears once; other shared column names get LeftSuffix and
// RightSuffix.
func InnerJoin(left, right *Table, key string) (*Table, error) {
	if err := left.Require("join left", key); err != nil {
		return nil, err
	}
	if err := right.Require("join right", key); err != nil {
		return nil, err
	}

	lk, rk := left.index[key], right.index[key]

	var rightCols []int
	for j := range right.columns {
		if j != rk {
			rightCols = append(rightCols, j)
		}
	}

	names := make([]string, 0, len(left.columns)+len(rightCols))
	for _, c := range left.columns {
		if c != key && right.Has(c) {
			c += LeftSuffix
		}
		names = append(names, c)
	}
	for _, j := range rightCols {
		c := right.columns[j]
		if left.Has(c) {
			c += RightSuffix
		}
		names = append(names, c)
	}

	out, err := New(names...)
	if err != nil {
		return nil, err
	}

	matches := make(map[string][]int, right.Len())
	for i, r := range right.rows {
		if k := r[rk]; !k.IsNull() {
			matches[k.String()] = append(matches[k.String()], i)
		}
	}

	for _, l := range left.rows {
		k := l[lk]
		if k.IsNull() {
			continue
		}
		for _, i := range matches[k.String()] {
			row := make([]Value, 0, len(names))
			row = append(row, l...)
			for _, j := range rightCols {
				row = append(row, right.rows[i][j])
			}
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// Concat stacks tables row-wise. Every table must have the same set of
// columns; they are aligned by name to the first table's order.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, &domain.SchemaError{Op: "concat", Reason: "no input tables"}
	}
	first := tables[0]
	out, err := New(first.columns...)
	if err != nil {
		return nil, err
	}

	want := slices.Sorted(slices.Values(first.columns))
	for n, t := range tables {
		got := slices.Sorted(slices.Values(t.columns))
		if !slices.Equal(want, got) {
			return nil, &domain.SchemaError{
				Op:      "concat",
				Columns: symmetricDifference(want, got),
				Reason:  "table " + strconv.Itoa(n) + " does not match the first table's columns",
			}
		}
		idx := make([]int, len(first.columns))
		for k, c := range first.columns {
			idx[k] = t.index[c]
		}
		for _, r := range t.rows {
			row := make([]Value, len(idx))
			for k, j := range idx {
				row[k] = r[j]
			}
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

func symmetricDifference(a, b []string) []string {
	var diff []string
	for _, x := range a {
		if !slices.Contains(b, x) {
			diff = append(diff, x)
		}
	}
	for _, x := range b {
		if !slices.Contains(a, x) {
			diff = append(diff, x)
		}
	}
	return diff
}

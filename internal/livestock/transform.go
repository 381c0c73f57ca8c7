// Package livestock turns the yearly SIAP livestock-production CSVs into one
// tidy table.
package livestock

import (
	"errors"
	"slices"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	"github.com/couchcryptid/rio-sonora-etl/internal/table"
)

var errMissingKey = errors.New("missing value")

// Result is the tidy table plus cleaning counters.
type Result struct {
	Tidy *table.Table

	// Stacked is the number of rows after concatenating every year.
	Stacked int

	// Unparsed counts amount values kept as text because they did not parse.
	Unparsed int
}

// Transform stacks the yearly tables, filters to the study municipalities and
// species, reshapes to the canonical schema and coerces numeric fields.
func Transform(years []*table.Table, opts Options) (Result, error) {
	if len(years) == 0 {
		return Result{}, &domain.SchemaError{Op: "livestock", Reason: "no yearly tables to stack"}
	}
	for _, y := range years {
		if err := opts.RawColumns.Check("livestock input", y); err != nil {
			return Result{}, err
		}
	}

	stacked, err := table.Concat(years...)
	if err != nil {
		return Result{}, err
	}

	filtered, err := Filter(stacked, opts)
	if err != nil {
		return Result{}, err
	}

	dropped, err := filtered.Drop(opts.DropColumns...)
	if err != nil {
		return Result{}, err
	}

	tidy, err := dropped.Rename(opts.Renames...)
	if err != nil {
		return Result{}, err
	}

	unparsed, err := CleanAmounts(tidy, opts.AmountColumns)
	if err != nil {
		return Result{}, err
	}

	if err := CoerceKeys(tidy, opts.KeyColumns); err != nil {
		return Result{}, err
	}

	return Result{Tidy: tidy, Stacked: stacked.Len(), Unparsed: unparsed}, nil
}

// Filter keeps rows whose municipality and species are both allow-listed.
func Filter(t *table.Table, opts Options) (*table.Table, error) {
	if err := t.Require("filter", opts.MunicipalityColumn, opts.SpeciesColumn); err != nil {
		return nil, err
	}
	return t.Filter(func(r table.Row) bool {
		return allowed(r.Value(opts.MunicipalityColumn), opts.Municipalities) &&
			allowed(r.Value(opts.SpeciesColumn), opts.Species)
	}), nil
}

func allowed(v table.Value, list []string) bool {
	s, ok := v.Text()
	return ok && slices.Contains(list, s)
}

// CleanAmounts normalizes text amounts in place. Values that parse become
// floats; the rest stay as normalized text. Non-text values pass through.
func CleanAmounts(t *table.Table, columns []string) (int, error) {
	unparsed := 0
	for _, col := range columns {
		err := t.Update(col, func(_ int, v table.Value) (table.Value, error) {
			s, ok := v.Text()
			if !ok {
				return v, nil
			}
			f, text, ok := domain.CleanAmount(s)
			if !ok {
				unparsed++
				return table.Str(text), nil
			}
			return table.Float(f), nil
		})
		if err != nil {
			return unparsed, err
		}
	}
	return unparsed, nil
}

// CoerceKeys converts identity columns to integers. The first value that is
// not an integer aborts with a CoercionError.
func CoerceKeys(t *table.Table, columns []string) error {
	for _, col := range columns {
		err := t.Update(col, func(row int, v table.Value) (table.Value, error) {
			n, err := coerceKey(v)
			if err != nil {
				return v, &domain.CoercionError{Column: col, Row: row, Value: v.String(), Err: err}
			}
			return table.Int(n), nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func coerceKey(v table.Value) (int64, error) {
	switch v.Kind() {
	case table.KindInt:
		n, _ := v.Int64()
		return n, nil
	case table.KindFloat:
		f, _ := v.Float64()
		return domain.KeyFromFloat(f)
	case table.KindString:
		return domain.ParseKey(v.String())
	default:
		return 0, errMissingKey
	}
}

// Package water turns the CONAGUA monitoring workbook into the tidy
// water-quality table and its parameter dictionaries.
package water

import (
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	"github.com/couchcryptid/rio-sonora-etl/internal/table"
)

// Sheet positions in the source workbook.
const (
	SheetSites = iota
	SheetMeasurements
	SheetDictionary

	sheetCount
)

// Result holds everything derived from one workbook.
type Result struct {
	// Tidy is the filtered, cleaned measurement table.
	Tidy *table.Table

	// Dictionary is the parameter dictionary as delivered.
	Dictionary *table.Table

	// TidyDictionary keeps only the parameters present in Tidy.
	TidyDictionary *table.Table

	// Merged is the number of rows produced by the site/measurement join.
	Merged int

	// Degraded counts pollutant readings that became missing during cleaning.
	Degraded int
}

// Transform runs the full water-quality transformation over the workbook's
// sheets: join, project, filter, clean, and derive the tidy dictionary.
func Transform(sheets []*table.Table, opts Options) (Result, error) {
	if len(sheets) < sheetCount {
		return Result{}, &domain.MalformedSourceError{
			Source: "water quality workbook",
			Reason: "expected " + strconv.Itoa(sheetCount) + " sheets (sites, measurements, dictionary), found " + strconv.Itoa(len(sheets)),
		}
	}

	merged, err := Merge(sheets[SheetSites], sheets[SheetMeasurements], opts.KeyColumn)
	if err != nil {
		return Result{}, err
	}

	tidy, err := Project(merged, opts)
	if err != nil {
		return Result{}, err
	}

	tidy, err = Filter(tidy, opts)
	if err != nil {
		return Result{}, err
	}

	degraded, err := CleanPollutants(tidy, opts.Pollutants)
	if err != nil {
		return Result{}, err
	}

	if err := coerceCoordinates(tidy, opts.LatitudeColumn, opts.LongitudeColumn); err != nil {
		return Result{}, err
	}

	tidyDic, err := TidyDictionary(sheets[SheetDictionary], opts)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Tidy:           tidy,
		Dictionary:     sheets[SheetDictionary],
		TidyDictionary: tidyDic,
		Merged:         merged.Len(),
		Degraded:       degraded,
	}, nil
}

// Merge inner-joins sites to measurements on key. A sheet without the key
// column makes the workbook malformed.
func Merge(sites, measurements *table.Table, key string) (*table.Table, error) {
	if !sites.Has(key) {
		return nil, &domain.MalformedSourceError{Source: "sites sheet", Reason: "join key " + strconv.Quote(key) + " not found"}
	}
	if !measurements.Has(key) {
		return nil, &domain.MalformedSourceError{Source: "measurements sheet", Reason: "join key " + strconv.Quote(key) + " not found"}
	}
	return table.InnerJoin(sites, measurements, key)
}

// Project keeps the site columns, the optional columns that exist, and every
// pollutant column. A missing site or pollutant column is a SchemaError.
func Project(merged *table.Table, opts Options) (*table.Table, error) {
	cols := slices.Clone(opts.SiteColumns)
	for _, c := range opts.OptionalColumns {
		if merged.Has(c) && !slices.Contains(cols, c) {
			cols = append(cols, c)
		}
	}
	cols = append(cols, opts.Pollutants...)
	return merged.Select(cols...)
}

// Filter keeps rows in the target state, in an allowed municipality, and
// whose water-body type contains none of the excluded markers. A missing
// body type does not exclude the row.
func Filter(t *table.Table, opts Options) (*table.Table, error) {
	if err := t.Require("filter", opts.StateColumn, opts.MunicipalityColumn, opts.BodyTypeColumn); err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(opts.Municipalities))
	for _, m := range opts.Municipalities {
		allowed[m] = true
	}

	return t.Filter(func(r table.Row) bool {
		state := r.Value(opts.StateColumn)
		if state.IsNull() || state.String() != opts.State {
			return false
		}
		muni := r.Value(opts.MunicipalityColumn)
		if muni.IsNull() || !allowed[muni.String()] {
			return false
		}
		return !excludedBody(r.Value(opts.BodyTypeColumn), opts.ExcludedBodyTypes)
	}), nil
}

func excludedBody(v table.Value, markers []string) bool {
	if v.IsNull() {
		return false
	}
	s := v.String()
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// CleanPollutants rewrites each pollutant column as floats, stripping
// detection-limit markers. Readings that do not parse become missing; the
// returned count says how many did.
func CleanPollutants(t *table.Table, pollutants []string) (int, error) {
	degraded := 0
	for _, col := range pollutants {
		err := t.Update(col, func(_ int, v table.Value) (table.Value, error) {
			if v.IsNull() {
				return v, nil
			}
			f, ok := domain.CleanCensored(v.String())
			if !ok {
				degraded++
				return table.Null(), nil
			}
			return table.Float(f), nil
		})
		if err != nil {
			return degraded, err
		}
	}
	return degraded, nil
}

// TidyDictionary keeps the dictionary entries describing the pollutants.
func TidyDictionary(dictionary *table.Table, opts Options) (*table.Table, error) {
	if err := dictionary.Require("tidy dictionary", opts.ParameterCodeColumn); err != nil {
		return nil, err
	}
	return dictionary.Filter(func(r table.Row) bool {
		code := r.Value(opts.ParameterCodeColumn)
		return !code.IsNull() && slices.Contains(opts.Pollutants, code.String())
	}), nil
}

// coerceCoordinates stores latitude and longitude as floats when the columns
// are part of the projection.
func coerceCoordinates(t *table.Table, columns ...string) error {
	for _, col := range columns {
		if col == "" || !t.Has(col) {
			continue
		}
		err := t.Update(col, func(_ int, v table.Value) (table.Value, error) {
			if v.IsNull() || v.Kind() == table.KindFloat {
				return v, nil
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
			if err != nil {
				return table.Null(), nil
			}
			return table.Float(f), nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Command validate re-reads the processed artifacts and checks the
// invariants the pipeline promises: filters applied, identity keys integral,
// pollutant readings numeric, and the tidy dictionary limited to the
// pollutants kept.
//
// Usage:
//
//	go run ./cmd/validate -processed data/processed -references references
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/rio-sonora-etl/internal/columnar"
	"github.com/couchcryptid/rio-sonora-etl/internal/livestock"
	"github.com/couchcryptid/rio-sonora-etl/internal/pipeline"
	"github.com/couchcryptid/rio-sonora-etl/internal/table"
	"github.com/couchcryptid/rio-sonora-etl/internal/water"
)

// maxErrors caps how many violations a phase keeps.
const maxErrors = 20

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	errors  []string
	dropped int
}

func (p *phase) errorf(format string, args ...any) {
	if len(p.errors) >= maxErrors {
		p.dropped++
		return
	}
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	processed := flag.String("processed", "data/processed", "directory holding the parquet artifacts")
	references := flag.String("references", "references", "directory holding the reference CSVs")
	flag.Parse()

	os.Exit(run(context.Background(), *processed, *references))
}

func run(ctx context.Context, processedDir, referencesDir string) int {
	fmt.Println("=== Río Sonora Artifact Validation ===")
	fmt.Println()

	wopts, lopts := water.DefaultOptions(), livestock.DefaultOptions()

	waterTidy, waterGroups, err := columnar.ReadParquet(ctx, filepath.Join(processedDir, pipeline.WaterTidyFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	stock, stockGroups, err := columnar.ReadParquet(ctx, filepath.Join(processedDir, pipeline.LivestockTidyFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	codes, err := loadCodes(filepath.Join(referencesDir, pipeline.WaterTidyReferencesFile), wopts.ParameterCodeColumn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateWater(waterTidy, wopts),
		validateLivestock(stock, lopts),
		validateDictionary(codes, wopts),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors)+p.dropped)
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d water quality (%d row groups), %d livestock (%d row groups), %d dictionary entries\n",
		waterTidy.Len(), waterGroups, stock.Len(), stockGroups, len(codes))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
		if p.dropped > 0 {
			fmt.Printf("  ... and %d more\n", p.dropped)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Water quality ──

func validateWater(t *table.Table, opts water.Options) *phase {
	p := &phase{name: "Water quality filters and readings"}

	required := append(slices.Clone(opts.SiteColumns), opts.Pollutants...)
	if err := t.Require("water quality artifact", required...); err != nil {
		p.errorf("%v", err)
		return p
	}

	for i := 0; i < t.Len(); i++ {
		if v := t.Value(i, opts.StateColumn); v.String() != opts.State {
			p.errorf("row %d: %s is %q, want %q", i, opts.StateColumn, v, opts.State)
		}
		if v := t.Value(i, opts.MunicipalityColumn); !slices.Contains(opts.Municipalities, v.String()) {
			p.errorf("row %d: %s %q is not a study municipality", i, opts.MunicipalityColumn, v)
		}
		body := t.Value(i, opts.BodyTypeColumn).String()
		for _, ex := range opts.ExcludedBodyTypes {
			if strings.Contains(body, ex) {
				p.errorf("row %d: excluded water body type %q", i, body)
			}
		}
		for _, col := range opts.Pollutants {
			v := t.Value(i, col)
			if !v.IsNull() && v.Kind() != table.KindFloat {
				p.errorf("row %d: %s value %q is not numeric", i, col, v)
			}
		}
	}
	return p
}

// ── Livestock ──

func validateLivestock(t *table.Table, opts livestock.Options) *phase {
	p := &phase{name: "Livestock filters and identity keys"}

	for _, c := range opts.DropColumns {
		if t.Has(c) {
			p.errorf("dropped column %q is present", c)
		}
	}
	municipality, species := canonical(opts, opts.MunicipalityColumn), canonical(opts, opts.SpeciesColumn)
	required := append([]string{municipality, species}, opts.KeyColumns...)
	if err := t.Require("livestock artifact", required...); err != nil {
		p.errorf("%v", err)
		return p
	}

	for i := 0; i < t.Len(); i++ {
		if v := t.Value(i, municipality); !slices.Contains(opts.Municipalities, v.String()) {
			p.errorf("row %d: municipality %q is not in the allow-list", i, v)
		}
		if v := t.Value(i, species); !slices.Contains(opts.Species, v.String()) {
			p.errorf("row %d: species %q is not in the allow-list", i, v)
		}
		for _, col := range opts.KeyColumns {
			if v := t.Value(i, col); v.Kind() != table.KindInt {
				p.errorf("row %d: %s value %q is not an integer", i, col, v)
			}
		}
		for _, col := range opts.AmountColumns {
			if !t.Has(col) {
				continue
			}
			v := t.Value(i, col)
			if s, ok := v.Text(); ok && (strings.Contains(s, ",") || s != strings.TrimSpace(s)) {
				p.errorf("row %d: %s value %q was not cleaned", i, col, s)
			}
		}
	}
	return p
}

// canonical maps a raw column name through the rename list.
func canonical(opts livestock.Options, raw string) string {
	for _, r := range opts.Renames {
		if r.From == raw {
			return r.To
		}
	}
	return raw
}

// ── Dictionary ──

func validateDictionary(codes []string, opts water.Options) *phase {
	p := &phase{name: "Tidy dictionary covers pollutants only"}
	for _, c := range codes {
		if !slices.Contains(opts.Pollutants, c) {
			p.errorf("dictionary code %q is not a pollutant", c)
		}
	}
	for _, pol := range opts.Pollutants {
		if !slices.Contains(codes, pol) {
			p.errorf("pollutant %q has no dictionary entry", pol)
		}
	}
	return p
}

func loadCodes(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	idx := slices.Index(all[0], column)
	if idx < 0 {
		return nil, fmt.Errorf("%s has no %q column", path, column)
	}
	codes := make([]string, 0, len(all)-1)
	for _, row := range all[1:] {
		if idx < len(row) {
			codes = append(codes, row[idx])
		}
	}
	return codes, nil
}

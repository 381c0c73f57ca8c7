// Package report renders a data-profile summary of a table as a standalone
// HTML page.
package report

import (
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	"github.com/couchcryptid/rio-sonora-etl/internal/table"
)

// TopN is how many frequent values are listed per text column.
const TopN = 5

//go:embed profile.html.tmpl
var pageSource string

var page = template.Must(template.New("profile").Parse(pageSource))

// Profile summarizes a table.
type Profile struct {
	Title        string
	Generated    time.Time
	Rows         int
	MissingCells int
	Columns      []ColumnProfile
}

// ColumnProfile summarizes one column. Min, Max and Mean are set only when
// Numeric is true.
type ColumnProfile struct {
	Name     string
	Kind     table.Kind
	Nulls    int
	Distinct int
	Numeric  bool
	Min      float64
	Max      float64
	Mean     float64
	Top      []Frequency
}

// Frequency is a value and how often it occurs.
type Frequency struct {
	Value string
	Count int
}

// Build computes the profile of t.
func Build(t *table.Table, title string) Profile {
	p := Profile{Title: title, Generated: domain.Now(), Rows: t.Len()}
	for j, field := range t.Schema() {
		c := profileColumn(t, j, field)
		p.MissingCells += c.Nulls
		p.Columns = append(p.Columns, c)
	}
	return p
}

func profileColumn(t *table.Table, j int, field table.Field) ColumnProfile {
	c := ColumnProfile{Name: field.Name, Kind: field.Kind}
	counts := make(map[string]int)
	var sum float64
	var n int
	c.Min, c.Max = math.Inf(1), math.Inf(-1)

	for i := 0; i < t.Len(); i++ {
		v := t.At(i, j)
		if v.IsNull() {
			c.Nulls++
			continue
		}
		counts[v.String()]++
		if field.Kind == table.KindString {
			continue
		}
		if f, ok := v.Float64(); ok {
			sum += f
			n++
			c.Min = math.Min(c.Min, f)
			c.Max = math.Max(c.Max, f)
		}
	}
	c.Distinct = len(counts)

	if n > 0 {
		c.Numeric = true
		c.Mean = sum / float64(n)
	} else {
		c.Min, c.Max = 0, 0
	}
	if field.Kind == table.KindString {
		c.Top = topValues(counts, TopN)
	}
	return c
}

// topValues orders by count, then by value so ties are stable.
func topValues(counts map[string]int, n int) []Frequency {
	out := make([]Frequency, 0, len(counts))
	for v, c := range counts {
		out = append(out, Frequency{Value: v, Count: c})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Value < out[b].Value
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Generator writes profile pages to disk.
type Generator struct {
	logger *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(logger *slog.Logger) *Generator {
	return &Generator{logger: logger}
}

// Generate renders the profile of t to path, creating parent directories.
func (g *Generator) Generate(t *table.Table, title, path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &domain.WriteError{Path: path, Err: err}
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

	w := bufio.NewWriter(f)
	if err := page.Execute(w, Build(t, title)); err != nil {
		return &domain.WriteError{Path: path, Err: fmt.Errorf("render report: %w", err)}
	}
	if err := w.Flush(); err != nil {
		return &domain.WriteError{Path: path, Err: err}
	}
	g.logger.Info("profile report written", "path", path, "title", title, "rows", t.Len())
	return nil
}

// Publisher makes written reports available outside the working tree.
type Publisher interface {
	Publish(ctx context.Context, paths ...string) (bool, error)
}

// Reporter writes profile pages into one directory and optionally publishes
// each one.
type Reporter struct {
	gen       *Generator
	dir       string
	publisher Publisher
	logger    *slog.Logger
}

// NewReporter creates a Reporter. A nil publisher only writes the pages.
func NewReporter(gen *Generator, dir string, publisher Publisher, logger *slog.Logger) *Reporter {
	return &Reporter{gen: gen, dir: dir, publisher: publisher, logger: logger}
}

// Report writes <dir>/<name> and publishes it.
func (r *Reporter) Report(ctx context.Context, t *table.Table, title, name string) error {
	path := filepath.Join(r.dir, name)
	if err := r.gen.Generate(t, title, path); err != nil {
		return err
	}
	if r.publisher == nil {
		return nil
	}
	committed, err := r.publisher.Publish(ctx, path)
	if err != nil {
		return fmt.Errorf("publish report %s: %w", path, err)
	}
	if committed {
		r.logger.Info("report published", "path", path)
	}
	return nil
}

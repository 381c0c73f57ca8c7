package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	"github.com/couchcryptid/rio-sonora-etl/internal/table"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.MustNew("Nommunicipio", "Año", "Volumen")
	rows := [][]table.Value{
		{table.Str("Ures"), table.Int(2013), table.Float(10)},
		{table.Str("Arizpe"), table.Int(2014), table.Float(30)},
		{table.Str("Ures"), table.Int(2015), table.Null()},
		{table.Null(), table.Int(2015), table.Float(20)},
	}
	for _, r := range rows {
		require.NoError(t, tbl.Append(r...))
	}
	return tbl
}

func TestBuild(t *testing.T) {
	p := Build(sampleTable(t), "Data Profile Report: Livestock Data")

	assert.Equal(t, 4, p.Rows)
	assert.Equal(t, 2, p.MissingCells)
	require.Len(t, p.Columns, 3)

	muni := p.Columns[0]
	assert.Equal(t, table.KindString, muni.Kind)
	assert.Equal(t, 1, muni.Nulls)
	assert.Equal(t, 2, muni.Distinct)
	assert.False(t, muni.Numeric)
	assert.Equal(t, []Frequency{{"Ures", 2}, {"Arizpe", 1}}, muni.Top)

	year := p.Columns[1]
	assert.Equal(t, table.KindInt, year.Kind)
	assert.True(t, year.Numeric)
	assert.Equal(t, 3, year.Distinct)
	assert.InDelta(t, 2013, year.Min, 1e-9)
	assert.InDelta(t, 2015, year.Max, 1e-9)
	assert.Empty(t, year.Top)

	vol := p.Columns[2]
	assert.Equal(t, 1, vol.Nulls)
	assert.InDelta(t, 20, vol.Mean, 1e-9)
}

func TestBuild_AllNullColumn(t *testing.T) {
	tbl := table.MustNew("x")
	require.NoError(t, tbl.Append(table.Null()))

	p := Build(tbl, "empty")
	c := p.Columns[0]
	assert.False(t, c.Numeric)
	assert.Zero(t, c.Min)
	assert.Zero(t, c.Max)
	assert.Empty(t, c.Top)
}

func TestTopValues_TiesAndLimit(t *testing.T) {
	counts := map[string]int{"b": 2, "a": 2, "c": 1, "d": 1, "e": 1, "f": 1}
	got := topValues(counts, 3)
	assert.Equal(t, []Frequency{{"a", 2}, {"b", 2}, {"c", 1}}, got)
}

func TestGenerate(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 8, 6, 9, 30, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	path := filepath.Join(t.TempDir(), "docs", "livestock_profile.html")
	g := NewGenerator(slog.New(slog.NewTextHandler(io.Discard, nil)))

	tbl := sampleTable(t)
	require.NoError(t, tbl.Append(table.Str("<script>"), table.Int(2016), table.Float(1)))
	require.NoError(t, g.Generate(tbl, "Data Profile Report: Livestock Data", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "<title>Data Profile Report: Livestock Data</title>")
	assert.Contains(t, html, "Generated 2024-08-06 09:30:00")
	assert.Contains(t, html, "<td>Volumen</td><td>float</td>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.NotContains(t, html, "<script>")
}

func TestGenerate_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "docs")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	g := NewGenerator(slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := g.Generate(sampleTable(t), "x", filepath.Join(blocker, "r.html"))
	var werr *domain.WriteError
	require.ErrorAs(t, err, &werr)
}

type fakePublisher struct {
	paths []string
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, paths ...string) (bool, error) {
	f.paths = append(f.paths, paths...)
	return f.err == nil, f.err
}

func TestReporter(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub := &fakePublisher{}
	r := NewReporter(NewGenerator(logger), dir, pub, logger)

	require.NoError(t, r.Report(context.Background(), sampleTable(t), "t", "livestock_report.html"))
	want := filepath.Join(dir, "livestock_report.html")
	assert.FileExists(t, want)
	assert.Equal(t, []string{want}, pub.paths)

	pub.err = errors.New("remote rejected")
	err := r.Report(context.Background(), sampleTable(t), "t", "livestock_report.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote rejected")
}

func TestReporter_WithoutPublisher(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewReporter(NewGenerator(logger), dir, nil, logger)
	require.NoError(t, r.Report(context.Background(), sampleTable(t), "t", "water_report.html"))
	assert.FileExists(t, filepath.Join(dir, "water_report.html"))
}

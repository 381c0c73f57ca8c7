package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/rio-sonora-etl/internal/catalog"
	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	"github.com/couchcryptid/rio-sonora-etl/internal/livestock"
	"github.com/couchcryptid/rio-sonora-etl/internal/observability"
	"github.com/couchcryptid/rio-sonora-etl/internal/table"
	"github.com/couchcryptid/rio-sonora-etl/internal/water"
)

// WorkbookReader reads every sheet of a workbook in order.
type WorkbookReader interface {
	ReadFile(path string) ([]*table.Table, error)
}

// CSVReader reads one delimited file.
type CSVReader interface {
	ReadFile(path string) (*table.Table, error)
}

// TableWriter writes a table to path in chunks of chunkSize rows.
type TableWriter interface {
	Write(t *table.Table, path string, chunkSize int) error
}

// ArtifactStore versions, uploads or announces a written file.
type ArtifactStore interface {
	Name() string
	Track(ctx context.Context, a domain.Artifact) error
}

// Reporter profiles a tidy table and saves the result under name.
type Reporter interface {
	Report(ctx context.Context, t *table.Table, title, name string) error
}

// Options locates inputs and outputs and carries the study configuration.
type Options struct {
	RawDir        string
	ProcessedDir  string
	ReferencesDir string

	WaterChunkSize     int
	LivestockChunkSize int
	ReferenceChunkSize int

	Catalog   catalog.Catalog
	Water     water.Options
	Livestock livestock.Options
}

// Deps are the adapters a Pipeline drives.
type Deps struct {
	Workbooks WorkbookReader
	CSVs      CSVReader
	Parquet   TableWriter
	CSV       TableWriter

	// Stores receive every written artifact, in order. The first failure
	// fails the family run.
	Stores []ArtifactStore

	// Reporter is optional; its failures are logged only.
	Reporter Reporter
}

// Pipeline runs the water-quality and livestock transformations from raw
// files on disk to tidy artifacts.
type Pipeline struct {
	opts    Options
	deps    Deps
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates a Pipeline with the given adapters and observability.
func New(opts Options, deps Deps, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		opts:    opts,
		deps:    deps,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a dataset family has been processed
// successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no dataset has been processed yet")
	}
	return nil
}

// Run processes both families. A failing family does not stop the other;
// their errors are joined.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "sources", len(p.opts.Catalog))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	if len(p.opts.Catalog) == 0 {
		p.logger.Warn("catalog is empty, nothing to process")
		return nil
	}

	err := errors.Join(p.RunWater(ctx), p.RunLivestock(ctx))
	if err != nil {
		p.logger.Error("pipeline finished with errors", "error", err)
		return err
	}
	p.logger.Info("data processing completed")
	return nil
}

// RunWater processes the water-quality workbook.
func (p *Pipeline) RunWater(ctx context.Context) error {
	return p.runFamily(ctx, domain.FamilyWater, p.processWater)
}

// RunLivestock processes the yearly livestock closings.
func (p *Pipeline) RunLivestock(ctx context.Context) error {
	return p.runFamily(ctx, domain.FamilyLivestock, p.processLivestock)
}

type familyFunc func(ctx context.Context, run *familyRun) error

// familyRun carries per-run state through one family's steps.
type familyRun struct {
	id      string
	family  domain.Family
	sources catalog.Catalog
	logger  *slog.Logger
}

func (p *Pipeline) runFamily(ctx context.Context, family domain.Family, fn familyFunc) error {
	sources := p.opts.Catalog.ByFamily(family)
	if len(sources) == 0 {
		p.logger.Debug("no sources for family", "family", family)
		return nil
	}

	run := &familyRun{id: uuid.NewString(), family: family, sources: sources}
	run.logger = p.logger.With("family", family, "run_id", run.id)

	start := time.Now()
	err := fn(ctx, run)
	p.metrics.RunDuration.WithLabelValues(string(family)).Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.Runs.WithLabelValues(string(family), "error").Inc()
		run.logger.Error("family run failed", "error", err)
		return fmt.Errorf("%s: %w", family, err)
	}
	p.metrics.Runs.WithLabelValues(string(family), "success").Inc()
	p.ready.Store(true)
	run.logger.Info("family run completed", "duration", time.Since(start))
	return nil
}

// inputs resolves the raw files of a run and fails with MissingInputError on
// the first one that is absent.
func (p *Pipeline) inputs(run *familyRun) ([]string, error) {
	paths := make([]string, len(run.sources))
	for i, src := range run.sources {
		path := filepath.Join(p.opts.RawDir, src.LocalFile())
		if _, err := os.Stat(path); err != nil {
			run.logger.Warn("raw file not found, download it first", "file", src.LocalFile())
			return nil, &domain.MissingInputError{Path: path}
		}
		paths[i] = path
	}
	return paths, nil
}

// publish writes t, then hands the artifact to every store.
func (p *Pipeline) publish(ctx context.Context, run *familyRun, w TableWriter, t *table.Table, kind domain.ArtifactKind, path string, chunkSize int) error {
	run.logger.Info("saving file", "path", path, "rows", t.Len(), "chunk_size", chunkSize)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &domain.WriteError{Path: path, Err: err}
	}
	if err := w.Write(t, path, chunkSize); err != nil {
		return err
	}
	p.metrics.RowsWritten.WithLabelValues(string(run.family), filepath.Base(path)).Add(float64(t.Len()))

	a := domain.NewArtifact(run.id, run.family, kind, path)
	a.Rows = t.Len()
	a.Columns = t.Columns()
	return p.track(ctx, a)
}

func (p *Pipeline) track(ctx context.Context, a domain.Artifact) error {
	for _, s := range p.deps.Stores {
		if err := s.Track(ctx, a); err != nil {
			p.metrics.ArtifactsStored.WithLabelValues(s.Name(), "error").Inc()
			return fmt.Errorf("track %s in %s: %w", a.Path, s.Name(), err)
		}
		p.metrics.ArtifactsStored.WithLabelValues(s.Name(), "success").Inc()
	}
	return nil
}

// report profiles the tidy table. Failures are logged and never fail the run.
func (p *Pipeline) report(ctx context.Context, run *familyRun, t *table.Table, title, name string) {
	if p.deps.Reporter == nil {
		return
	}
	run.logger.Info("creating data profile report", "name", name)
	if err := p.deps.Reporter.Report(ctx, t, title, name); err != nil {
		run.logger.Error("data profile report failed", "name", name, "error", err)
	}
}

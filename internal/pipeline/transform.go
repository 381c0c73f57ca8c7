package pipeline

import (
	"context"
	"path/filepath"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	"github.com/couchcryptid/rio-sonora-etl/internal/livestock"
	"github.com/couchcryptid/rio-sonora-etl/internal/table"
	"github.com/couchcryptid/rio-sonora-etl/internal/water"
)

// Output file names and report titles.
const (
	WaterTidyFile           = "water_quality_tidy_data.parquet"
	WaterRawReferencesFile  = "water_quality_raw_data_references.csv"
	WaterTidyReferencesFile = "water_quality_tidy_data_references.csv"
	WaterReportFile         = "water_report.html"
	WaterReportTitle        = "Data Profile Report: Data Quality"

	LivestockTidyFile    = "livestock_tidy_data.parquet"
	LivestockReportFile  = "livestock_report.html"
	LivestockReportTitle = "Data Profile Report: Livestock Data"
)

func (p *Pipeline) processWater(ctx context.Context, run *familyRun) error {
	paths, err := p.inputs(run)
	if err != nil {
		return err
	}
	// The catalog carries one workbook; any extra entry is ignored.
	path := paths[0]

	run.logger.Info("starting reading file", "file", filepath.Base(path))
	sheets, err := p.deps.Workbooks.ReadFile(path)
	if err != nil {
		return err
	}
	for _, s := range sheets {
		p.metrics.RowsRead.WithLabelValues(string(run.family)).Add(float64(s.Len()))
	}

	res, err := water.Transform(sheets, p.opts.Water)
	if err != nil {
		return err
	}
	p.metrics.DegradedValues.WithLabelValues(string(run.family), "censored").Add(float64(res.Degraded))
	run.logger.Info("water quality data transformed",
		"merged_rows", res.Merged,
		"tidy_rows", res.Tidy.Len(),
		"degraded_readings", res.Degraded,
	)

	tidyPath := filepath.Join(p.opts.ProcessedDir, WaterTidyFile)
	if err := p.publish(ctx, run, p.deps.Parquet, res.Tidy, domain.ArtifactTidy, tidyPath, p.opts.WaterChunkSize); err != nil {
		return err
	}

	run.logger.Info("saving dictionaries")
	refs := []struct {
		t    *table.Table
		file string
	}{
		{res.Dictionary, WaterRawReferencesFile},
		{res.TidyDictionary, WaterTidyReferencesFile},
	}
	for _, ref := range refs {
		path := filepath.Join(p.opts.ReferencesDir, ref.file)
		if err := p.publish(ctx, run, p.deps.CSV, ref.t, domain.ArtifactReference, path, p.opts.ReferenceChunkSize); err != nil {
			return err
		}
	}

	p.report(ctx, run, res.Tidy, WaterReportTitle, WaterReportFile)
	return nil
}

func (p *Pipeline) processLivestock(ctx context.Context, run *familyRun) error {
	paths, err := p.inputs(run)
	if err != nil {
		return err
	}

	years := make([]*table.Table, 0, len(paths))
	for _, path := range paths {
		run.logger.Info("starting reading file", "file", filepath.Base(path))
		t, err := p.deps.CSVs.ReadFile(path)
		if err != nil {
			return err
		}
		if t.Len() == 0 {
			run.logger.Warn("file has no rows, skipping", "file", filepath.Base(path))
			continue
		}
		p.metrics.RowsRead.WithLabelValues(string(run.family)).Add(float64(t.Len()))
		years = append(years, t)
	}
	if len(years) == 0 {
		run.logger.Warn("every livestock file is empty, nothing to process")
		return nil
	}

	res, err := livestock.Transform(years, p.opts.Livestock)
	if err != nil {
		return err
	}
	p.metrics.DegradedValues.WithLabelValues(string(run.family), "amount").Add(float64(res.Unparsed))
	run.logger.Info("livestock data transformed",
		"files", len(years),
		"stacked_rows", res.Stacked,
		"tidy_rows", res.Tidy.Len(),
		"unparsed_amounts", res.Unparsed,
	)

	tidyPath := filepath.Join(p.opts.ProcessedDir, LivestockTidyFile)
	if err := p.publish(ctx, run, p.deps.Parquet, res.Tidy, domain.ArtifactTidy, tidyPath, p.opts.LivestockChunkSize); err != nil {
		return err
	}

	p.report(ctx, run, res.Tidy, LivestockReportTitle, LivestockReportFile)
	return nil
}

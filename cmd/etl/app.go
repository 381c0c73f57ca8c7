package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/couchcryptid/rio-sonora-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/rio-sonora-etl/internal/adapter/download"
	"github.com/couchcryptid/rio-sonora-etl/internal/adapter/dvc"
	"github.com/couchcryptid/rio-sonora-etl/internal/adapter/excel"
	"github.com/couchcryptid/rio-sonora-etl/internal/adapter/gitreport"
	"github.com/couchcryptid/rio-sonora-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/rio-sonora-etl/internal/adapter/kafka"
	"github.com/couchcryptid/rio-sonora-etl/internal/adapter/objectstore"
	"github.com/couchcryptid/rio-sonora-etl/internal/catalog"
	"github.com/couchcryptid/rio-sonora-etl/internal/columnar"
	"github.com/couchcryptid/rio-sonora-etl/internal/config"
	"github.com/couchcryptid/rio-sonora-etl/internal/livestock"
	"github.com/couchcryptid/rio-sonora-etl/internal/observability"
	"github.com/couchcryptid/rio-sonora-etl/internal/pipeline"
	"github.com/couchcryptid/rio-sonora-etl/internal/report"
	"github.com/couchcryptid/rio-sonora-etl/internal/water"
)

type step uint8

const (
	stepDownload step = 1 << iota
	stepProcess
)

// pushJob is the Pushgateway grouping key for this batch job.
const pushJob = "rio_sonora_etl"

// sampleDateColumn is rewritten from Excel serials to dates on read.
const sampleDateColumn = "FECHA REALIZACION"

// projectRoot is where DVC and git operate; paths in the config are relative
// to it.
const projectRoot = "."

// execute runs steps. names restricts the download step to those catalog
// sources; processing always covers the whole catalog.
func execute(ctx context.Context, steps step, names ...string) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	sources := catalog.Default()
	selected, err := selectSources(sources, names)
	if err != nil {
		slog.Error("invalid source", "error", err)
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	stores, closers, err := buildStores(ctx, cfg, logger)
	defer func() {
		for _, c := range closers {
			if cerr := c.Close(); cerr != nil {
				logger.Error("close artifact store", "error", cerr)
			}
		}
	}()
	if err != nil {
		logger.Error("failed to prepare artifact stores", "error", err)
		return err
	}

	p := buildPipeline(cfg, sources, stores, logger, metrics)

	var mon *httpadapter.Monitor
	if cfg.HTTPAddr != "" {
		mon = httpadapter.NewMonitor(cfg.HTTPAddr, p, metrics.Registry, logger)
		if err := mon.Listen(); err != nil {
			logger.Error("failed to start monitor", "error", err)
			return err
		}
	}

	runErr := runSteps(ctx, steps, cfg, selected, stores, p, logger, metrics)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(shutdownCtx, cfg.PushgatewayURL, pushJob); err != nil {
			logger.Error("metrics push failed", "error", err)
		}
	}
	if mon != nil {
		if err := mon.Close(shutdownCtx); err != nil {
			logger.Error("monitor shutdown error", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("etl failed", "error", runErr)
		return runErr
	}
	logger.Info("etl completed")
	return nil
}

func runSteps(ctx context.Context, steps step, cfg *config.Config, sources catalog.Catalog, stores []pipeline.ArtifactStore, p *pipeline.Pipeline, logger *slog.Logger, metrics *observability.Metrics) error {
	if steps&stepDownload != 0 {
		d := buildDownloader(cfg, stores, logger, metrics)
		if _, err := d.FetchAll(ctx, sources); err != nil {
			return fmt.Errorf("download: %w", err)
		}
	}
	if steps&stepProcess != 0 {
		return p.Run(ctx)
	}
	return nil
}

func selectSources(all catalog.Catalog, names []string) (catalog.Catalog, error) {
	if len(names) == 0 {
		return all, nil
	}
	selected := make(catalog.Catalog, 0, len(names))
	for _, n := range names {
		src, ok := all.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("unknown source %q", n)
		}
		selected = append(selected, src)
	}
	return selected, nil
}

func buildDownloader(cfg *config.Config, stores []pipeline.ArtifactStore, logger *slog.Logger, metrics *observability.Metrics) *download.Downloader {
	var conv download.Converter
	if cfg.XLSBConverter != "" {
		conv = download.NewOfficeConverter(cfg.XLSBConverter, logger)
	} else {
		logger.Warn("XLSB_CONVERTER is empty, workbooks will not be converted")
	}

	raw := make([]download.ArtifactStore, len(stores))
	for i, s := range stores {
		raw[i] = s
	}
	return download.New(download.Options{
		Dir:       cfg.RawDir,
		Timeout:   cfg.DownloadTimeout,
		Retries:   cfg.DownloadRetries,
		Converter: conv,
		Stores:    raw,
		RunID:     uuid.NewString(),
	}, logger, metrics)
}

func buildPipeline(cfg *config.Config, sources catalog.Catalog, stores []pipeline.ArtifactStore, logger *slog.Logger, metrics *observability.Metrics) *pipeline.Pipeline {
	deps := pipeline.Deps{
		Workbooks: excel.NewReader(logger, sampleDateColumn),
		CSVs:      csvsource.NewReader(logger),
		Parquet:   columnar.NewParquetWriter(logger, chunkCounter(metrics, "parquet")),
		CSV:       columnar.NewCSVWriter(logger, chunkCounter(metrics, "csv")),
		Stores:    stores,
	}
	if cfg.ReportEnabled {
		var pub report.Publisher
		if cfg.ReportPublish {
			pub = gitreport.NewPublisher(projectRoot, gitreport.Options{
				AuthorName:  cfg.GitAuthorName,
				AuthorEmail: cfg.GitAuthorEmail,
				Push:        true,
				Remote:      cfg.ReportRemote,
				Token:       cfg.GitToken,
			}, logger)
		}
		deps.Reporter = report.NewReporter(report.NewGenerator(logger), cfg.DocsDir, pub, logger)
	}

	return pipeline.New(pipeline.Options{
		RawDir:             cfg.RawDir,
		ProcessedDir:       cfg.ProcessedDir,
		ReferencesDir:      cfg.ReferencesDir,
		WaterChunkSize:     cfg.WaterChunkSize,
		LivestockChunkSize: cfg.LivestockChunkSize,
		ReferenceChunkSize: cfg.ReferenceChunkSize,
		Catalog:            sources,
		Water:              water.DefaultOptions(),
		Livestock:          livestock.DefaultOptions(),
	}, deps, logger, metrics)
}

func chunkCounter(metrics *observability.Metrics, format string) columnar.ProgressFunc {
	counter := metrics.ChunksWritten.WithLabelValues(format)
	return func(columnar.Progress) { counter.Inc() }
}

// buildStores prepares the enabled artifact stores in the order artifacts
// are handed to them: DVC, object storage, then Kafka notifications.
func buildStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]pipeline.ArtifactStore, []io.Closer, error) {
	var stores []pipeline.ArtifactStore
	var closers []io.Closer

	if cfg.DVCEnabled {
		s := dvc.NewStore(projectRoot, cfg.DVCRemoteName, cfg.DVCRemote, nil, logger)
		if err := s.Prepare(ctx); err != nil {
			return nil, closers, err
		}
		stores = append(stores, s)
	}

	if cfg.S3Enabled() {
		s, err := objectstore.New(objectstore.Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Prefix:    cfg.S3Prefix,
		}, logger)
		if err != nil {
			return nil, closers, err
		}
		if err := s.Prepare(ctx); err != nil {
			return nil, closers, err
		}
		stores = append(stores, s)
	}

	if cfg.KafkaEnabled() {
		n := kafkaadapter.NewNotifier(cfg, logger)
		closers = append(closers, n)
		stores = append(stores, n)
	}

	logger.Info("artifact stores ready", "count", len(stores))
	return stores, closers, nil
}

package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "rio_sonora_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL
// runs. They live on a private registry so a batch run can push exactly its
// own series to a Pushgateway and serve them over HTTP.
type Metrics struct {
	Registry *prometheus.Registry

	PipelineRunning prometheus.Gauge

	RowsRead       *prometheus.CounterVec   // labels: family
	RowsWritten    *prometheus.CounterVec   // labels: family, artifact
	ChunksWritten  *prometheus.CounterVec   // labels: format={parquet,csv}
	DegradedValues *prometheus.CounterVec   // labels: family, reason={censored,amount}
	Runs           *prometheus.CounterVec   // labels: family, outcome={success,error}
	RunDuration    *prometheus.HistogramVec // labels: family

	Downloads       *prometheus.CounterVec // labels: outcome={downloaded,skipped,error}
	BytesDownloaded prometheus.Counter
	ArtifactsStored *prometheus.CounterVec // labels: store, outcome={success,error}
}

// NewMetrics creates the pipeline metrics on a fresh registry that also
// carries the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// NewMetricsForTesting creates Metrics without the runtime collectors so
// tests can gather and compare only pipeline series.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a family run is in progress, 0 otherwise.",
		}),
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Raw rows read from source files.",
		}, []string{"family"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to output artifacts.",
		}, []string{"family", "artifact"}),
		ChunksWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_written_total",
			Help:      "Row chunks flushed by the writers.",
		}, []string{"format"}),
		DegradedValues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_values_total",
			Help:      "Values that lost precision or type during cleaning.",
		}, []string{"family", "reason"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Family runs by outcome.",
		}, []string{"family", "outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a family run from read to report.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"family"}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Catalog sources fetched, skipped because present, or failed.",
		}, []string{"outcome"}),
		BytesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Bytes received from source servers.",
		}),
		ArtifactsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_stored_total",
			Help:      "Artifact store operations by store and outcome.",
		}, []string{"store", "outcome"}),
	}

	m.Registry.MustRegister(
		m.PipelineRunning,
		m.RowsRead,
		m.RowsWritten,
		m.ChunksWritten,
		m.DegradedValues,
		m.Runs,
		m.RunDuration,
		m.Downloads,
		m.BytesDownloaded,
		m.ArtifactsStored,
	)
	return m
}

// Push sends every registered series to the Pushgateway at url under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

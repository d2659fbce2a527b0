package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vessel_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for a report run.
type Metrics struct {
	ReportsRendered prometheus.Counter
	ReportErrors    prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Input metrics.
	FilesLoaded   prometheus.Counter
	RecordsLoaded prometheus.Counter
	SeriesCache   *prometheus.CounterVec // labels: result={hit,miss}

	// Output metrics.
	ArtifactsWritten *prometheus.CounterVec // labels: format={png,svg,xlsx}
	ReportDuration   prometheus.Histogram
	RunDuration      prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReportsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_rendered_total",
			Help:      "Total reports rendered successfully.",
		}),
		ReportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_errors_total",
			Help:      "Total reports aborted by an error.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while reports are being generated, 0 otherwise.",
		}),
		FilesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_loaded_total",
			Help:      "Total sensor log files read from disk.",
		}),
		RecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Total sensor records parsed.",
		}),
		SeriesCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_cache_total",
			Help:      "Series cache lookups by result.",
		}, []string{"result"}),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      "Report artifacts written by file format.",
		}, []string{"format"}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "Duration of building and rendering one report.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last complete run.",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	prometheus.MustRegister(
		m.ReportsRendered,
		m.ReportErrors,
		m.PipelineRunning,
		m.FilesLoaded,
		m.RecordsLoaded,
		m.SeriesCache,
		m.ArtifactsWritten,
		m.ReportDuration,
		m.RunDuration,
		m.LastRunTimestamp,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReportsRendered:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "reports_rendered_total"}),
		ReportErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "report_errors_total"}),
		PipelineRunning:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		FilesLoaded:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "files_loaded_total"}),
		RecordsLoaded:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "records_loaded_total"}),
		SeriesCache:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "series_cache_total"}, []string{"result"}),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "artifacts_written_total"}, []string{"format"}),
		ReportDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "report_duration_seconds"}),
		RunDuration:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "run_duration_seconds"}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "last_run_timestamp_seconds"}),
	}
}

// WriteTextfile dumps everything registered on the default registry in the
// text exposition format, for pickup by a node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

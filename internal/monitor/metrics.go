package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the analysis service.
type Metrics struct {
	Registry *prometheus.Registry

	AnalysesTotal      *prometheus.CounterVec
	AnalysisDuration   *prometheus.HistogramVec
	StageDuration      *prometheus.HistogramVec
	DegradedTotal      *prometheus.CounterVec
	RepoFilesProcessed prometheus.Counter
	RepoFileErrors     prometheus.Counter
	RequestsInFlight   prometheus.Gauge
	CodeSizeBytes      prometheus.Histogram
	OutputSizeBytes    prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics using a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "codesmarty",
				Name:      "analyses_total",
				Help:      "Total number of analyses by language and status.",
			},
			[]string{"language", "status"},
		),

		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "codesmarty",
				Name:      "analysis_duration_seconds",
				Help:      "End-to-end analysis duration in seconds.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"language"},
		),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "codesmarty",
				Name:      "stage_duration_seconds",
				Help:      "Duration of individual pipeline stages.",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"stage"},
		),

		DegradedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "codesmarty",
				Name:      "degraded_total",
				Help:      "Analyses that degraded a capability, by capability.",
			},
			[]string{"capability"},
		),

		RepoFilesProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "codesmarty",
				Name:      "repo_files_processed_total",
				Help:      "Source files processed during repository analyses.",
			},
		),

		RepoFileErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "codesmarty",
				Name:      "repo_file_errors_total",
				Help:      "Per-file failures isolated during repository analyses.",
			},
		),

		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "codesmarty",
				Subsystem: "api",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed.",
			},
		),

		CodeSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "codesmarty",
				Name:      "code_size_bytes",
				Help:      "Size of submitted code in bytes.",
				Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
			},
		),

		OutputSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "codesmarty",
				Name:      "output_size_bytes",
				Help:      "Size of runtime output in bytes.",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
			},
		),
	}

	reg.MustRegister(
		m.AnalysesTotal,
		m.AnalysisDuration,
		m.StageDuration,
		m.DegradedTotal,
		m.RepoFilesProcessed,
		m.RepoFileErrors,
		m.RequestsInFlight,
		m.CodeSizeBytes,
		m.OutputSizeBytes,
	)

	return m
}

// RecordAnalysis records metrics for a completed analysis.
func (m *Metrics) RecordAnalysis(language, status string, durationSec float64) {
	m.AnalysesTotal.WithLabelValues(language, status).Inc()
	m.AnalysisDuration.WithLabelValues(language).Observe(durationSec)
}

// RecordDegraded records a capability that was unavailable for one analysis.
func (m *Metrics) RecordDegraded(capability string) {
	m.DegradedTotal.WithLabelValues(capability).Inc()
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(stage string, durationSec float64) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSec)
}

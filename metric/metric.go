// Package metric exposes Prometheus metrics for the import pipeline.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics contains all pipeline-level metrics (not importer-specific)
type Metrics struct {
	ImportsTotal    *prometheus.CounterVec
	ImportDuration  *prometheus.HistogramVec
	AssetsProduced  prometheus.Counter
	CacheHits       prometheus.Counter
	StateMismatches prometheus.Counter
	InFlight        prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all pipeline metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ImportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "atelier",
				Subsystem: "import",
				Name:      "runs_total",
				Help:      "Total import runs by outcome (success, failed, skipped, cancelled)",
			},
			[]string{"importer", "status"},
		),
		ImportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "atelier",
				Subsystem: "import",
				Name:      "duration_seconds",
				Help:      "Import run duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"importer"},
		),
		AssetsProduced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "atelier",
				Subsystem: "import",
				Name:      "assets_produced_total",
				Help:      "Total assets produced by successful import runs",
			},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "atelier",
				Subsystem: "import",
				Name:      "cache_hits_total",
				Help:      "Import runs answered from the fingerprint cache",
			},
		),
		StateMismatches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "atelier",
				Subsystem: "import",
				Name:      "state_mismatches_total",
				Help:      "Persisted blobs discarded due to a type tag mismatch",
			},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "atelier",
				Subsystem: "import",
				Name:      "in_flight",
				Help:      "Import runs currently executing",
			},
		),
	}
}

// Registry couples the pipeline metrics with their Prometheus registry.
type Registry struct {
	registry *prometheus.Registry
	Metrics  *Metrics
}

// NewRegistry creates a metrics registry with pipeline and Go runtime
// collectors pre-registered.
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics()

	registry.MustRegister(
		metrics.ImportsTotal,
		metrics.ImportDuration,
		metrics.AssetsProduced,
		metrics.CacheHits,
		metrics.StateMismatches,
		metrics.InFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{
		registry: registry,
		Metrics:  metrics,
	}
}

// Registerer exposes the underlying registerer for additional collectors
// (e.g. worker pool metrics).
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying gatherer for scrape handlers.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

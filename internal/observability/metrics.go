package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bufr_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	RowsPerMessage          prometheus.Histogram

	// Structure engine metrics.
	MessagesFiltered    prometheus.Counter     // rejected by the header pre-filter
	ObservationsEmitted prometheus.Counter     // rows produced after parameter resolution
	Subsets             *prometheus.CounterVec // labels: layout={single,compressed,uncompressed}
	ShapeCache          *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.RowsPerMessage,
		m.MessagesFiltered,
		m.ObservationsEmitted,
		m.Subsets,
		m.ShapeCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total decoded BUFR messages read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total observation rows written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total messages that could not be decoded or resolved.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		RowsPerMessage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rows_per_message",
			Help:      "Observation rows produced by one decoded message.",
			Buckets:   []float64{0, 1, 2, 5, 10, 50, 100, 500, 1000},
		}),
		MessagesFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_filtered_total",
			Help:      "Messages skipped by header filters before unpacking.",
		}),
		ObservationsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_emitted_total",
			Help:      "Observation rows produced by the structure engine.",
		}),
		Subsets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subsets_total",
			Help:      "Subsets scanned by message layout.",
		}, []string{"layout"}),
		ShapeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shape_cache_total",
			Help:      "Shape cache lookups by result.",
		}, []string{"result"}),
	}
}

// ObserveShapeCache is a structure.ShapeCache observer feeding the
// shape_cache_total counter.
func (m *Metrics) ObserveShapeCache(hit bool) {
	if hit {
		m.ShapeCache.WithLabelValues("hit").Inc()
		return
	}
	m.ShapeCache.WithLabelValues("miss").Inc()
}

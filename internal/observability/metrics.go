package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "alarm_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Load metrics.
	RecordsLoaded       *prometheus.GaugeVec   // labels: source={topology,alarms,brigades}
	LoadFailures        *prometheus.CounterVec // labels: source
	MalformedTimestamps *prometheus.CounterVec // labels: source={alarms,brigades}
	Status              prometheus.Gauge

	// Recompute metrics.
	Recomputations    prometheus.Counter
	RecomputeDuration prometheus.Histogram
	FilteredAlarms    prometheus.Gauge
	UnmappedAlarms    prometheus.Gauge
	SummaryCache      *prometheus.CounterVec // labels: result={hit,miss}

	// Renderer metrics.
	RenderErrors       prometheus.Counter
	SummariesPublished prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_loaded",
			Help:      "Records held in memory per source after the initial load.",
		}, []string{"source"}),
		LoadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_failures_total",
			Help:      "Failed source loads by source.",
		}, []string{"source"}),
		MalformedTimestamps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_timestamps_total",
			Help:      "Rows with at least one unparseable timestamp, by source.",
		}, []string{"source"}),
		Status: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "status",
			Help:      "0 while loading, 1 when ready, 2 when loading failed.",
		}),
		Recomputations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recomputations_total",
			Help:      "Total summary recompute cycles.",
		}),
		RecomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recompute_duration_seconds",
			Help:      "Duration of one filter-and-aggregate cycle.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		FilteredAlarms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "filtered_alarms",
			Help:      "Alarms matching the current selection.",
		}),
		UnmappedAlarms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unmapped_alarms",
			Help:      "Alarms in the current selection whose district is not on the map.",
		}),
		SummaryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_cache_total",
			Help:      "Summary cache lookups by result.",
		}, []string{"result"}),
		RenderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_errors_total",
			Help:      "Summaries a renderer failed to accept.",
		}),
		SummariesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_published_total",
			Help:      "Summaries written to the Kafka topic.",
		}),
	}
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RecordsLoaded,
		m.LoadFailures,
		m.MalformedTimestamps,
		m.Status,
		m.Recomputations,
		m.RecomputeDuration,
		m.FilteredAlarms,
		m.UnmappedAlarms,
		m.SummaryCache,
		m.RenderErrors,
		m.SummariesPublished,
	)

	return m
}

// NewUnregisteredMetrics creates Metrics outside the default registry, for
// one-shot tools that never serve /metrics.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ticket_metrics"

// Metrics holds the Prometheus counters, histograms, and gauges for an analysis run.
type Metrics struct {
	RowsProcessed  *prometheus.CounterVec // labels: result={valid,invalid}
	TicketsByState *prometheus.GaugeVec   // labels: status
	RunDuration    prometheus.Histogram
	LastRunTime    prometheus.Gauge
	PipelineReady  prometheus.Gauge

	// Weather enrichment metrics.
	WeatherCache       *prometheus.CounterVec // labels: result={hit,miss}
	WeatherRequests    *prometheus.CounterVec // labels: outcome={success,error}
	WeatherAPIDuration prometheus.Histogram

	// Delivery metrics.
	SinkDeliveries *prometheus.CounterVec // labels: sink, outcome={success,error}
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RowsProcessed,
		m.TicketsByState,
		m.RunDuration,
		m.LastRunTime,
		m.PipelineReady,
		m.WeatherCache,
		m.WeatherRequests,
		m.WeatherAPIDuration,
		m.SinkDeliveries,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// WriteTextfile dumps the default registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_processed_total",
			Help:      "CSV rows processed by validation result.",
		}, []string{"result"}),
		TicketsByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tickets",
			Help:      "Valid tickets in the last run by status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete load-validate-aggregate-deliver run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		LastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		PipelineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_ready",
			Help:      "1 once a report has been produced, 0 otherwise.",
		}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by result.",
		}, []string{"result"}),
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_requests_total",
			Help:      "Weather API requests by outcome.",
		}, []string{"outcome"}),
		WeatherAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "Weather API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		SinkDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_deliveries_total",
			Help:      "Report deliveries by sink and outcome.",
		}, []string{"sink", "outcome"}),
	}
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reverse_search"

// Metrics holds the Prometheus counters, histograms, and gauges for the enrichment job.
type Metrics struct {
	Registry *prometheus.Registry

	JobRunning     prometheus.Gauge
	Runs           *prometheus.CounterVec // labels: outcome={completed,interrupted,aborted}
	RunDuration    prometheus.Histogram
	LastRunSuccess prometheus.Gauge // unix seconds of the last completed run
	HitsFetched    prometheus.Gauge

	Records *prometheus.CounterVec // labels: outcome={enriched,skipped,fallback,dropped,failed}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: provider, outcome={success,error,empty,rate_limited}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider

	// Device mirror metrics.
	DevicesPublished    prometheus.Counter
	DevicePublishErrors prometheus.Counter
}

// NewMetrics creates all job metrics and registers them with a dedicated
// registry that also carries the Go and process collectors.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.Registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry without the
// runtime collectors.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		JobRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_running",
			Help:      "1 while an enrichment run is in progress.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Enrichment runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete enrichment run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that processed its page.",
		}),
		HitsFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hits_fetched",
			Help:      "Unresolved events returned by the last fetch.",
		}),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Processed events by outcome.",
		}, []string{"outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		DevicesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_published_total",
			Help:      "Device records mirrored to Kafka.",
		}),
		DevicePublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_publish_errors_total",
			Help:      "Device records that could not be mirrored to Kafka.",
		}),
	}

	m.Registry.MustRegister(
		m.JobRunning,
		m.Runs,
		m.RunDuration,
		m.LastRunSuccess,
		m.HitsFetched,
		m.Records,
		m.GeocodeRequests,
		m.GeocodeAPIDuration,
		m.DevicesPublished,
		m.DevicePublishErrors,
	)

	return m
}

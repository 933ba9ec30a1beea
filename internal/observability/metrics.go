package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bemkit"

// Metrics holds the Prometheus counters, histograms, and gauges for the toolkit.
type Metrics struct {
	// Parametric study metrics.
	StudiesRun        *prometheus.CounterVec // labels: outcome={success,error}
	StudyRunning      prometheus.Gauge
	VariantsGenerated *prometheus.CounterVec // labels: analysis={sensitivity,elimination}
	JobsDispatched    *prometheus.CounterVec // labels: manager={manifest,kafka}, outcome={success,error}
	DispatchDuration  prometheus.Histogram

	// Weather library metrics.
	WeatherCache         *prometheus.CounterVec // labels: result={hit,miss}
	WeatherParseWarnings prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		StudiesRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "studies_run_total",
			Help:      "Parametric studies run by outcome.",
		}, []string{"outcome"}),
		StudyRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "study_running",
			Help:      "1 while a parametric study is being expanded and dispatched.",
		}),
		VariantsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_generated_total",
			Help:      "Model variants written to the working directory by analysis type.",
		}, []string{"analysis"}),
		JobsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_dispatched_total",
			Help:      "Simulation jobs handed to the run manager by manager and outcome.",
		}, []string{"manager", "outcome"}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of a job list dispatch to the run manager.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Weather file cache lookups by result.",
		}, []string{"result"}),
		WeatherParseWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_parse_warnings_total",
			Help:      "Fields that could not be extracted from loaded weather files.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when site geocoding is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.StudiesRun,
		m.StudyRunning,
		m.VariantsGenerated,
		m.JobsDispatched,
		m.DispatchDuration,
		m.WeatherCache,
		m.WeatherParseWarnings,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}

package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricSearches         = "nearcare_searches_total"
	MetricSearchDuration   = "nearcare_search_duration_seconds"
	MetricSearchCandidates = "nearcare_search_candidates"
	MetricSearchResults    = "nearcare_search_results"
	MetricPostalFallbacks  = "nearcare_postal_fallbacks_total"
	MetricDatasetProviders = "nearcare_dataset_providers"
	MetricDatasetCentroids = "nearcare_dataset_centroids"
)

// Search outcomes used as the status label.
const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
	StatusInvalid  = "invalid"
	StatusError    = "error"
)

// Metrics contains Prometheus metrics for searches.
// All operations are thread-safe, and a nil *Metrics records nothing.
type Metrics struct {
	searches         *prometheus.CounterVec
	searchDuration   prometheus.Histogram
	searchCandidates prometheus.Histogram
	searchResults    prometheus.Histogram
	postalFallbacks  prometheus.Counter
	datasetProviders prometheus.Gauge
	datasetCentroids prometheus.Gauge
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSearches,
			Help: "Total number of provider searches by outcome",
		}, []string{"status"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricSearchDuration,
			Help:    "Histogram of end-to-end search latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		searchCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricSearchCandidates,
			Help:    "Number of providers sharing the origin's key prefix per search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 9),
		}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricSearchResults,
			Help:    "Number of ranked providers returned per search",
			Buckets: []float64{0, 1, 3, 5, 10, 25, 50, 100},
		}),
		postalFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPostalFallbacks,
			Help: "Total number of searches whose postal code resolved to a neighboring code",
		}),
		datasetProviders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricDatasetProviders,
			Help: "Number of providers in the loaded dataset",
		}),
		datasetCentroids: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricDatasetCentroids,
			Help: "Number of postal code centroids in the loaded dataset",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.searches,
		m.searchDuration,
		m.searchCandidates,
		m.searchResults,
		m.postalFallbacks,
		m.datasetProviders,
		m.datasetCentroids,
	}
}

// ObserveSearch records the outcome and latency of one search.
func (m *Metrics) ObserveSearch(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(status).Inc()
	m.searchDuration.Observe(d.Seconds())
}

// ObserveCandidates records the candidate set size of one search.
func (m *Metrics) ObserveCandidates(n int) {
	if m == nil {
		return
	}
	m.searchCandidates.Observe(float64(n))
}

// ObserveResults records the result count of one search.
func (m *Metrics) ObserveResults(n int) {
	if m == nil {
		return
	}
	m.searchResults.Observe(float64(n))
}

// IncPostalFallbacks increments the postal fallback counter.
func (m *Metrics) IncPostalFallbacks() {
	if m == nil {
		return
	}
	m.postalFallbacks.Inc()
}

// SetDatasetSize records the size of the loaded dataset.
func (m *Metrics) SetDatasetSize(providers, centroids int) {
	if m == nil {
		return
	}
	m.datasetProviders.Set(float64(providers))
	m.datasetCentroids.Set(float64(centroids))
}

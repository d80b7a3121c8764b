package search

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics() returned nil")
	}

	collectors := m.Collectors()
	if len(collectors) != 7 {
		t.Errorf("expected 7 collectors, got %d", len(collectors))
	}
}

func TestMetrics_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		m := NewMetrics()
		reg := prometheus.NewRegistry()

		if err := m.Register(reg); err != nil {
			t.Errorf("Register() returned error: %v", err)
		}

		// Vectors are only gathered once a label set exists.
		m.ObserveSearch(StatusOK, time.Millisecond)

		families, err := reg.Gather()
		if err != nil {
			t.Errorf("Gather() returned error: %v", err)
		}

		expectedNames := map[string]bool{
			MetricSearches:         false,
			MetricSearchDuration:   false,
			MetricSearchCandidates: false,
			MetricSearchResults:    false,
			MetricPostalFallbacks:  false,
			MetricDatasetProviders: false,
			MetricDatasetCentroids: false,
		}

		for _, family := range families {
			if _, ok := expectedNames[family.GetName()]; ok {
				expectedNames[family.GetName()] = true
			}
		}

		for name, found := range expectedNames {
			if !found {
				t.Errorf("metric %s not found in gathered metrics", name)
			}
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		m1 := NewMetrics()
		m2 := NewMetrics()
		reg := prometheus.NewRegistry()

		if err := m1.Register(reg); err != nil {
			t.Fatalf("first Register() returned error: %v", err)
		}

		if err := m2.Register(reg); err == nil {
			t.Error("second Register() should have returned an error")
		}
	})
}

func getCounterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.(prometheus.Metric).Write(&m); err != nil {
		return -1
	}
	return m.GetCounter().GetValue()
}

func getGaugeValue(g prometheus.Gauge) float64 {
	var m dto.Metric
	if err := g.(prometheus.Metric).Write(&m); err != nil {
		return -1
	}
	return m.GetGauge().GetValue()
}

func getHistogramCount(h prometheus.Histogram) uint64 {
	var m dto.Metric
	if err := h.(prometheus.Metric).Write(&m); err != nil {
		return 0
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetrics_ObserveSearch(t *testing.T) {
	m := NewMetrics()

	m.ObserveSearch(StatusOK, 2*time.Millisecond)
	m.ObserveSearch(StatusOK, 3*time.Millisecond)
	m.ObserveSearch(StatusNotFound, time.Millisecond)

	if got := getCounterValue(m.searches.WithLabelValues(StatusOK)); got != 2 {
		t.Errorf("ok searches = %f, want 2", got)
	}
	if got := getCounterValue(m.searches.WithLabelValues(StatusNotFound)); got != 1 {
		t.Errorf("not_found searches = %f, want 1", got)
	}
	if got := getHistogramCount(m.searchDuration); got != 3 {
		t.Errorf("duration samples = %d, want 3", got)
	}
}

func TestMetrics_ObserveSizes(t *testing.T) {
	m := NewMetrics()

	m.ObserveCandidates(12)
	m.ObserveResults(3)
	m.ObserveResults(0)

	if got := getHistogramCount(m.searchCandidates); got != 1 {
		t.Errorf("candidate samples = %d, want 1", got)
	}
	if got := getHistogramCount(m.searchResults); got != 2 {
		t.Errorf("result samples = %d, want 2", got)
	}
}

func TestMetrics_IncPostalFallbacks(t *testing.T) {
	m := NewMetrics()

	if initial := getCounterValue(m.postalFallbacks); initial != 0 {
		t.Errorf("initial value = %f, want 0", initial)
	}

	for i := 0; i < 5; i++ {
		m.IncPostalFallbacks()
	}

	if final := getCounterValue(m.postalFallbacks); final != 5 {
		t.Errorf("final value = %f, want 5", final)
	}
}

func TestMetrics_SetDatasetSize(t *testing.T) {
	m := NewMetrics()

	m.SetDatasetSize(120, 40)
	m.SetDatasetSize(100, 30)

	if got := getGaugeValue(m.datasetProviders); got != 100 {
		t.Errorf("providers = %f, want 100", got)
	}
	if got := getGaugeValue(m.datasetCentroids); got != 30 {
		t.Errorf("centroids = %f, want 30", got)
	}
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	// Must not panic.
	m.ObserveSearch(StatusError, time.Second)
	m.ObserveCandidates(1)
	m.ObserveResults(1)
	m.IncPostalFallbacks()
	m.SetDatasetSize(1, 1)
}

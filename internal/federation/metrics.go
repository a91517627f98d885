package federation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for federation list fetching.
type Metrics struct {
	// Fetch outcomes by result: "ok", "transport", "trust", "schema"
	FetchTotal *prometheus.CounterVec

	// Cache hits and misses for the verified list
	CacheTotal *prometheus.CounterVec

	// Size of the most recently verified list
	ListSize prometheus.Gauge
}

// NewMetrics registers and returns the federation metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "timgate_federation_fetch_total",
			Help: "Total federation list fetch attempts by outcome",
		}, []string{"outcome"}),

		CacheTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "timgate_federation_cache_total",
			Help: "Federation list cache lookups by result",
		}, []string{"result"}),

		ListSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "timgate_federation_list_size",
			Help: "Entry count of the most recently verified federation list",
		}),
	}
}

// ObserveFetch records a fetch outcome.
func (m *Metrics) ObserveFetch(outcome string) {
	if m != nil {
		m.FetchTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveCache records a cache hit or miss.
func (m *Metrics) ObserveCache(result string) {
	if m != nil {
		m.CacheTotal.WithLabelValues(result).Inc()
	}
}

// SetListSize records the size of the current list.
func (m *Metrics) SetListSize(n int) {
	if m != nil {
		m.ListSize.Set(float64(n))
	}
}

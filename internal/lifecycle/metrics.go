package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts scan cycles and scheduled purges. A nil receiver disables
// recording.
type Metrics struct {
	ScansTotal  prometheus.Counter
	PurgesTotal prometheus.Counter
}

// NewMetrics registers the scanner metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScansTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "timgate_lifecycle_scans_total",
			Help: "Completed room lifecycle scan cycles.",
		}),
		PurgesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "timgate_lifecycle_purges_scheduled_total",
			Help: "Purge tasks scheduled by the lifecycle scanner.",
		}),
	}
}

// ObserveScan records one scan cycle.
func (m *Metrics) ObserveScan() {
	if m == nil {
		return
	}
	m.ScansTotal.Inc()
}

// ObservePurgeScheduled records one newly scheduled purge task.
func (m *Metrics) ObservePurgeScheduled() {
	if m == nil {
		return
	}
	m.PurgesTotal.Inc()
}

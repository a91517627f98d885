package invite

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts authorization decisions. A nil receiver disables recording.
type Metrics struct {
	ChecksTotal *prometheus.CounterVec
}

// NewMetrics registers the decision metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "timgate_invite_checks_total",
			Help: "Authorization checks by check type and outcome.",
		}, []string{"check", "outcome"}),
	}
}

// ObserveCheck records one decision.
func (m *Metrics) ObserveCheck(check, outcome string) {
	if m == nil {
		return
	}
	m.ChecksTotal.WithLabelValues(check, outcome).Inc()
}

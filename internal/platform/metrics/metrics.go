// Package metrics assembles the Prometheus registry and the per-component
// metric bundles.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"timgate/internal/federation"
	"timgate/internal/invite"
	"timgate/internal/lifecycle"
)

// Metrics holds the registry and all component metrics.
type Metrics struct {
	Registry   *prometheus.Registry
	Federation *federation.Metrics
	Invite     *invite.Metrics
	Lifecycle  *lifecycle.Metrics
}

// New creates the registry and registers all metrics on it.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		Registry:   registry,
		Federation: federation.NewMetrics(registry),
		Invite:     invite.NewMetrics(registry),
		Lifecycle:  lifecycle.NewMetrics(registry),
	}
}

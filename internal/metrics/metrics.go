// Package metrics exposes Prometheus counters and histograms for every CLI
// provider invocation the gateway makes, independent of which front
// (REST or MCP) triggered it.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds every metric this gateway publishes.
type Collector struct {
	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	multiplexRequests  *prometheus.CounterVec
}

// NewCollector registers the gateway's metrics under namespace (typically
// "cliwire") on the default Prometheus registry.
func NewCollector(namespace string) *Collector {
	return &Collector{
		invocationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_invocations_total",
				Help:      "Total number of CLI provider invocations",
			},
			[]string{"provider", "status"},
		),
		invocationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_invocation_duration_seconds",
				Help:      "CLI provider invocation duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),
		multiplexRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "multiplex_requests_total",
				Help:      "Total number of multiplex fan-out requests, by provider count",
			},
			[]string{"provider_count"},
		),
	}
}

// RecordInvocation records one completed (successful or failed) provider
// call and its wall-clock duration.
func (c *Collector) RecordInvocation(provider string, succeeded bool, duration time.Duration) {
	status := "success"
	if !succeeded {
		status = "failure"
	}
	c.invocationsTotal.WithLabelValues(provider, status).Inc()
	c.invocationDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordMultiplex records one multiplex dispatch fanning out to
// providerCount providers.
func (c *Collector) RecordMultiplex(providerCount int) {
	c.multiplexRequests.WithLabelValues(strconv.Itoa(providerCount)).Inc()
}

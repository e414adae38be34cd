package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors on a private registry so
// multiple servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	SettlementsTotal *prometheus.CounterVec
	ExtractionsTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paysplit_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paysplit_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		SettlementsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paysplit_settlements_total",
			Help: "Settlement executions by outcome.",
		}, []string{"outcome"}),
		ExtractionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paysplit_extractions_total",
			Help: "Invoice extractions by outcome.",
		}, []string{"outcome"}),
	}
}

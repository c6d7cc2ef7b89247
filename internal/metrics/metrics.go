// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// AppMetrics groups the application collectors.
type AppMetrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SearchesTotal       *prometheus.CounterVec
	ImportRowsTotal     *prometheus.CounterVec
	GeocodeRequests     *prometheus.CounterVec
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// New builds collectors and registers them with reg. A nil reg skips registration.
func New(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests completed.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		SearchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "company_searches_total",
			Help: "Company searches by query type and outcome.",
		}, []string{"query_type", "outcome"}),
		ImportRowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "import_rows_total",
			Help: "Imported rows by kind and outcome.",
		}, []string{"kind", "outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geocode_requests_total",
			Help: "Geocoding lookups by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.HTTPRequestsTotal, m.HTTPRequestDuration, m.SearchesTotal, m.ImportRowsTotal, m.GeocodeRequests)
	}
	return m
}

// Default returns the process-wide collectors registered with the default registry.
func Default() *AppMetrics {
	once.Do(func() {
		appMetrics = New(prometheus.DefaultRegisterer)
	})
	return appMetrics
}

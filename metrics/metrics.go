// Package metrics exposes Prometheus counters and histograms for the
// pricing server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cdslib"

// Metrics is the collector set. Each server owns its registry so tests can
// build several without duplicate registration.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Calibrations    *prometheus.CounterVec
}

func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		}, []string{"endpoint", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		Calibrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calibrations_total",
			Help:      "Credit curve calibrations by result.",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{
		m.RequestsTotal,
		m.RequestDuration,
		m.Calibrations,
		collectors.NewGoCollector(),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(endpoint, status string, d time.Duration) {
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveCalibrations counts n calibrations with the outcome of err.
func (m *Metrics) ObserveCalibrations(n int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Calibrations.WithLabelValues(result).Add(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

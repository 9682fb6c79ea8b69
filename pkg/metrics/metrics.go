package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several servers can live in one process.
type Metrics struct {
	registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	SavesTotal      *prometheus.CounterVec
	PageBytes       prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		SavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notedrop_page_saves_total",
				Help: "Page save attempts by result",
			},
			[]string{"result"},
		),
		PageBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "notedrop_page_size_bytes",
				Help:    "Size of saved page markdown",
				Buckets: prometheus.ExponentialBuckets(64, 4, 8),
			},
		),
	}
	m.registry.MustRegister(m.RequestsTotal, m.RequestDuration, m.SavesTotal, m.PageBytes)
	return m
}

// Save results.
const (
	SaveOK      = "ok"
	SaveInvalid = "invalid"
	SaveError   = "error"
)

func (m *Metrics) ObserveSave(result string, size int) {
	m.SavesTotal.WithLabelValues(result).Inc()
	if result == SaveOK {
		m.PageBytes.Observe(float64(size))
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

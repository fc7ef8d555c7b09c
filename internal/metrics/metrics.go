package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	cycleDuration prometheus.Histogram
	cycleQuotes   prometheus.Gauge
	refreshTotal  *prometheus.CounterVec
	storeErrors   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "currencyhub_fetch_total",
			Help: "Source fetches by outcome.",
		}, []string{"source", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "currencyhub_fetch_duration_seconds",
			Help:    "Time spent fetching and parsing one source.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "currencyhub_fetch_cycle_seconds",
			Help:    "Wall time of a full fan-out cycle.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 15, 20},
		}),
		cycleQuotes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "currencyhub_fetch_cycle_quotes",
			Help: "Quotes produced by the last fan-out cycle.",
		}),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "currencyhub_refresh_total",
			Help: "Service refreshes by result.",
		}, []string{"result"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "currencyhub_store_errors_total",
			Help: "Quote store failures by operation.",
		}, []string{"op"}),
	}
	m.registry.MustRegister(
		m.fetchTotal,
		m.fetchDuration,
		m.cycleDuration,
		m.cycleQuotes,
		m.refreshTotal,
		m.storeErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveFetch(source, outcome string, elapsed time.Duration) {
	m.fetchTotal.WithLabelValues(source, outcome).Inc()
	m.fetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveCycle(succeeded, _ int, elapsed time.Duration) {
	m.cycleDuration.Observe(elapsed.Seconds())
	m.cycleQuotes.Set(float64(succeeded))
}

func (m *Metrics) ObserveRefresh(result string) {
	m.refreshTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveStoreError(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: a nil *Metrics records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	CatalogFetches   *prometheus.CounterVec
	Checkouts        *prometheus.CounterVec
	CartMutations    *prometheus.CounterVec
	BackendLatencyMS *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		CatalogFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "catalog_fetch_total",
			Help:      "Catalog page fetches by result.",
		}, []string{"result"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkout_total",
			Help:      "Checkout submissions by result.",
		}, []string{"result"}),
		CartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "cart_mutations_total",
			Help:      "Committed cart mutations by cart kind and operation.",
		}, []string{"kind", "op"}),
		BackendLatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "backend_request_duration_ms",
			Help:      "Remote store API latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"op"}),
	}
	reg.MustRegister(m.CatalogFetches, m.Checkouts, m.CartMutations, m.BackendLatencyMS)
	return m
}

func (m *Metrics) ObserveBackend(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.BackendLatencyMS.WithLabelValues(op).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) CatalogFetch(result string) {
	if m == nil {
		return
	}
	m.CatalogFetches.WithLabelValues(result).Inc()
}

func (m *Metrics) Checkout(result string) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(result).Inc()
}

func (m *Metrics) CartMutation(kind, op string) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(kind, op).Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package metrics exposes Prometheus counters for Forwarded header handling.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rampantspark/goforwarded/internal/forwarded"
)

const namespace = "goforwarded"

// Header parse outcomes used as the result label.
const (
	ResultAbsent  = "absent"
	ResultParsed  = "parsed"
	ResultInvalid = "invalid"
)

// Metrics holds the collectors of one server instance on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	headers     *prometheus.CounterVec
	hops        prometheus.Histogram
	nodes       *prometheus.CounterVec
	rateLimited prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		headers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarded_headers_total",
			Help:      "Requests by outcome of parsing their Forwarded header.",
		}, []string{"result"}),
		hops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forwarded_hops",
			Help:      "Number of hops in successfully parsed Forwarded headers.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 16},
		}),
		nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarded_nodes_total",
			Help:      "by and for nodes seen, by parameter and node kind.",
		}, []string{"param", "kind"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
	}

	m.registry.MustRegister(
		m.headers,
		m.hops,
		m.nodes,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, result := range []string{ResultAbsent, ResultParsed, ResultInvalid} {
		m.headers.WithLabelValues(result).Add(0)
	}
	return m
}

// ObserveHeader records the outcome of parsing one request's header.
// A nil header with a nil error means the header was absent.
func (m *Metrics) ObserveHeader(header *forwarded.Header, err error) {
	switch {
	case err != nil:
		m.headers.WithLabelValues(ResultInvalid).Inc()
	case header == nil:
		m.headers.WithLabelValues(ResultAbsent).Inc()
	default:
		m.headers.WithLabelValues(ResultParsed).Inc()
		m.hops.Observe(float64(header.Len()))
		for _, rec := range header.Records() {
			if node := rec.For(); node != nil {
				m.nodes.WithLabelValues(forwarded.ParamFor, node.Kind().String()).Inc()
			}
			if node := rec.By(); node != nil {
				m.nodes.WithLabelValues(forwarded.ParamBy, node.Kind().String()).Inc()
			}
		}
	}
}

// IncRateLimited counts one rejected request.
func (m *Metrics) IncRateLimited() {
	m.rateLimited.Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

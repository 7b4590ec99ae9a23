package remote

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records authority call outcomes.
type Metrics struct {
	Requests  *prometheus.CounterVec
	Latency   *prometheus.HistogramVec
	BreakerOpen prometheus.Gauge
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_authority_requests_total",
			Help: "Authority calls by operation and outcome category",
		}, []string{"operation", "outcome"}),
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_authority_request_duration_seconds",
			Help:    "Authority call latency by operation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		BreakerOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_authority_breaker_open",
			Help: "1 while the authority circuit breaker is open",
		}),
	}
}

func (m *Metrics) observe(op string, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(op, outcome).Inc()
	m.Latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) breakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}

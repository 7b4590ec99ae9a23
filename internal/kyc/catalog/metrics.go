package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Fallbacks prometheus.Counter
	CacheHits prometheus.Counter
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_kyc_catalog_fallback_total",
			Help: "Catalog loads that degraded to an empty catalog",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_kyc_catalog_cache_hits_total",
			Help: "Catalog loads served from cache",
		}),
	}
}

func (m *Metrics) fallback() {
	if m == nil {
		return
	}
	m.Fallbacks.Inc()
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

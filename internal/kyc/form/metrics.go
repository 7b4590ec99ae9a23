package form

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Submissions *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Submissions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_kyc_form_submissions_total",
			Help: "Form submit attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) submission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"storefront/internal/kyc/models"
)

type Metrics struct {
	Writes    *prometheus.CounterVec
	Decisions *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Writes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "authority_kyc_submission_writes_total",
			Help: "Submission writes by operation and outcome",
		}, []string{"operation", "outcome"}),
		Decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "authority_kyc_review_decisions_total",
			Help: "Review decisions by resulting status",
		}, []string{"status"}),
	}
}

func (m *Metrics) write(op, outcome string) {
	if m == nil {
		return
	}
	m.Writes.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) decision(status models.Status) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(string(status)).Inc()
}

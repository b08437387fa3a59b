package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	plans      *prometheus.CounterVec
	planErrors *prometheus.CounterVec
	planSteps  prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fedplan",
			Name:      "plans_total",
			Help:      "Plans returned, by whether they came from the cache.",
		}, []string{"outcome"}),
		planErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fedplan",
			Name:      "plan_errors_total",
			Help:      "Failed planning requests by error kind.",
		}, []string{"kind"}),
		planSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fedplan",
			Name:      "plan_steps",
			Help:      "Number of steps per returned plan.",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
	}
	reg.MustRegister(m.plans, m.planErrors, m.planSteps)
	return m
}

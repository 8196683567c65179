package stubapi

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drills_stub_requests_total",
			Help: "Total number of stub API requests served.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "drills_stub_request_duration_seconds",
			Help:    "Latency distribution of stub API requests.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"method", "route"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drills_stub_runs_total",
			Help: "Total number of graded submissions by outcome.",
		}, []string{"passed", "error_type"}),
	}

	reg.MustRegister(m.requests, m.latency, m.runs)
	return m
}

package chat

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_generations_total",
			Help: "Total number of generation dispatches by backend and outcome.",
		},
		[]string{"backend", "outcome"},
	)
	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parley_generation_duration_seconds",
			Help:    "Generation latency in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"backend"},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "parley_active_sessions",
			Help: "Number of live chat sessions.",
		},
	)
)

func init() {
	prometheus.MustRegister(generationsTotal)
	prometheus.MustRegister(generationDuration)
	prometheus.MustRegister(activeSessions)
}

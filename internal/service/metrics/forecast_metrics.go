package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// EndpointLatency observes forecasting API handlers by endpoint name.
	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fincast",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of forecasting endpoints",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fincast",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by forecasting endpoint and status",
		},
		[]string{"endpoint", "status"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors)
	})
}

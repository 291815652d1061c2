package metrics

import (
	"FinCast/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ repository.Metrics = (*Recorder)(nil)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	trainings   *prometheus.CounterVec
	trainTime   *prometheus.HistogramVec
	predictions *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New registers the FinCast collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		trainings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_model_trainings_total",
				Help: "Model training attempts by outcome",
			},
			[]string{"model", "result"},
		),
		trainTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincast_model_training_seconds",
				Help:    "Time spent training one model",
				Buckets: []float64{.001, .01, .05, .1, .5, 1, 5, 15, 60},
			},
			[]string{"model"},
		),
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_model_predictions_total",
				Help: "Model predictions by outcome",
			},
			[]string{"model", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fincast_last_price",
				Help: "Last historical close seen for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordTraining counts a training attempt and observes its duration.
func (r *Recorder) RecordTraining(model string, success bool, seconds float64) {
	r.trainings.WithLabelValues(model, result(success)).Inc()
	r.trainTime.WithLabelValues(model).Observe(seconds)
}

func (r *Recorder) RecordPrediction(model string, success bool) {
	r.predictions.WithLabelValues(model, result(success)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

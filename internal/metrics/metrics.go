// Package metrics provides Prometheus metrics collection for the car price predictor.
// It defines the prediction, imputation and HTTP metrics exposed via the
// Prometheus metrics endpoint for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the predictor service.
type Metrics struct {
	// Prediction metrics
	Predictions       prometheus.Counter   // Total number of successful price predictions
	PredictionErrors  prometheus.Counter   // Total number of failed price predictions
	PredictionLatency prometheus.Histogram // Model inference latency
	PredictedPrice    prometheus.Histogram // Distribution of predicted prices

	// Imputation metrics
	Imputations *prometheus.CounterVec // Imputed input values by field

	// HTTP metrics
	Requests *prometheus.CounterVec // HTTP requests by route and status code

	// Model metrics
	ModelAge prometheus.Gauge // Seconds since the model artifact was trained

	// Storage metrics
	HistoryWriteErrors prometheus.Counter // Failed prediction history writes
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "carprice_predictions_total",
			Help: "Total number of successful price predictions",
		}),
		PredictionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "carprice_prediction_errors_total",
			Help: "Total number of failed price predictions",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "carprice_prediction_latency_seconds",
			Help:    "Model inference latency in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		PredictedPrice: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "carprice_predicted_price",
			Help:    "Distribution of predicted car prices",
			Buckets: prometheus.ExponentialBuckets(1000, 2, 14),
		}),
		Imputations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carprice_imputations_total",
			Help: "Total number of imputed input values by field",
		}, []string{"field"}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carprice_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "carprice_model_age_seconds",
			Help: "Seconds since the loaded model was trained",
		}),
		HistoryWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "carprice_history_write_errors_total",
			Help: "Total number of failed prediction history writes",
		}),
	}
}

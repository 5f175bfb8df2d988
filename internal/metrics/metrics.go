// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prediction outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeNoModel   = "model_not_loaded"
	OutcomeMapping   = "mapping_failed"
	OutcomeStoreFail = "store_failed"
)

var (
	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscore_predictions_total",
			Help: "Total number of lead predictions by outcome",
		},
		[]string{"outcome"},
	)

	PredictionsByTemperature = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscore_predicted_temperature_total",
			Help: "Total number of successful predictions by temperature",
		},
		[]string{"temperature"},
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadscore_prediction_duration_seconds",
			Help:    "Duration of single lead processing in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	SyncRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscore_sync_rows_total",
			Help: "Total number of sheet rows reconciled by result",
		},
		[]string{"source", "result"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "leadscore_sync_duration_seconds",
			Help: "Duration of sync jobs in seconds",
		},
		[]string{"source"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscore_http_requests_total",
			Help: "Total number of API requests by route, method and status code",
		},
		[]string{"route", "method", "code"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadscore_http_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	ModelLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leadscore_model_loaded",
			Help: "1 when the temperature classifier is loaded, 0 otherwise",
		},
	)
)

// SetModelLoaded records whether the classifier is available.
func SetModelLoaded(loaded bool) {
	if loaded {
		ModelLoaded.Set(1)
		return
	}
	ModelLoaded.Set(0)
}

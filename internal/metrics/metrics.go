// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "foodvision"

var (
	// Predictions counts classification calls by endpoint kind and outcome.
	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_total",
		Help:      "Classification requests by kind and outcome.",
	}, []string{"kind", "outcome"})

	// InferenceDuration observes the model forward pass.
	InferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "inference_duration_seconds",
		Help:      "Time spent in the model forward pass.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	// TopConfidence observes the confidence of the winning class.
	TopConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "top_confidence",
		Help:      "Confidence of the single best prediction.",
		Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
	})

	// ModelLoads counts checkpoint loads by source and outcome.
	ModelLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_loads_total",
		Help:      "Model checkpoint loads by source and outcome.",
	}, []string{"source", "outcome"})

	// ModelLoaded is 1 while a model is ready for inference.
	ModelLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_loaded",
		Help:      "Whether a model is loaded (1) or not (0).",
	})
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

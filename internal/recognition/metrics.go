package recognition

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_tracking_recognition_calls_total",
			Help: "Recognition backend calls by outcome",
		},
		[]string{"backend", "outcome"}, // outcome: text, empty, error, timeout
	)

	backendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "order_tracking_recognition_call_duration_seconds",
			Help:    "Duration of a single recognition backend call",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"backend"},
	)

	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_tracking_code_resolutions_total",
			Help: "Code resolutions by source",
		},
		[]string{"source"}, // source: hint, filename, recognition, needs_review
	)

	resolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_tracking_code_resolution_duration_seconds",
			Help:    "Duration of the full recognition pipeline for one image",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 25, 50, 100},
		},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DetectionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leafscan",
		Name:      "detection_requests_total",
		Help:      "Detection requests by outcome (ok, timeout, connection_failed, service_error, malformed_response, config, decode)",
	}, []string{"outcome"})

	DetectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "leafscan",
		Name:      "detection_duration_seconds",
		Help:      "Duration of the round trip to the detection service",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	LeavesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leafscan",
		Name:      "leaves_detected_total",
		Help:      "Detected leaves by health status",
	}, []string{"status"})

	AnnotatedImageFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "leafscan",
		Name:      "annotated_image_decode_failures_total",
		Help:      "Annotated images that were returned but could not be decoded",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "leafscan",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

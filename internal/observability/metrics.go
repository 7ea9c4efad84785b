package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sss",
		Name:      "frames_captured_total",
		Help:      "Total number of frames read from the source",
	})

	DetectionCycles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sss",
		Name:      "detection_cycles_total",
		Help:      "Total number of completed inference cycles",
	})

	DetectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sss",
		Name:      "detections_total",
		Help:      "Total number of detections by kind",
	}, []string{"kind"})

	ThreatsConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sss",
		Name:      "threats_confirmed_total",
		Help:      "Total number of confirmed threat signals by category",
	}, []string{"category"})

	AlertsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sss",
		Name:      "alerts_dispatched_total",
		Help:      "Total number of alerts dispatched by category",
	}, []string{"category"})

	AlertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sss",
		Name:      "alerts_suppressed_total",
		Help:      "Total number of alerts dropped by the cooldown gate",
	}, []string{"category"})

	EmailFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sss",
		Name:      "email_failures_total",
		Help:      "Total number of failed alert emails by cause",
	}, []string{"cause"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sss",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	CacheSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sss",
		Name:      "overlay_cache_size",
		Help:      "Number of detections currently held by the persistence cache",
	}, []string{"kind"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sss",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sss",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)

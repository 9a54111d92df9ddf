package observability

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/connstate/internal/protocol/schema"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	stateEncodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "connstate",
			Subsystem: "state",
			Name:      "encodes_total",
			Help:      "Connection states prepared for a controller, by delivery path.",
		},
		[]string{"path", "downgraded"},
	)
	stateDecodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "connstate",
			Subsystem: "state",
			Name:      "decodes_total",
			Help:      "Connection states received by a controller, by outcome.",
		},
		[]string{"path", "outcome"},
	)
	sessionAccepts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "connstate",
			Subsystem: "session",
			Name:      "connection_requests_total",
			Help:      "Connection requests handled by a session.",
		},
		[]string{"path", "outcome"},
	)
	wireFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "connstate",
			Subsystem: "wire",
			Name:      "frames_total",
			Help:      "Frames written or read.",
		},
		[]string{"direction", "type", "format", "zstd"},
	)
	wirePayloadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "connstate",
			Subsystem: "wire",
			Name:      "payload_bytes",
			Help:      "Frame payload size as carried.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"direction", "format"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "connstate",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "connstate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			stateEncodes,
			stateDecodes,
			sessionAccepts,
			wireFrames,
			wirePayloadBytes,
			httpRequests,
			httpDuration,
		)
	})
}

// Outcome buckets a decode or accept error into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, schema.ErrMissingRequiredField):
		return "missing_field"
	case errors.Is(err, schema.ErrMalformedSubRecord):
		return "malformed"
	default:
		return "error"
	}
}

func RecordStateEncode(path string, downgraded bool) {
	RegisterMetrics()
	stateEncodes.WithLabelValues(path, strconv.FormatBool(downgraded)).Inc()
}

func RecordStateDecode(path string, err error) {
	RegisterMetrics()
	stateDecodes.WithLabelValues(path, Outcome(err)).Inc()
}

func RecordAccept(path string, err error) {
	RegisterMetrics()
	sessionAccepts.WithLabelValues(path, Outcome(err)).Inc()
}

func RecordFrame(direction, msgType, format string, compressed bool, payloadBytes int) {
	RegisterMetrics()
	wireFrames.WithLabelValues(direction, msgType, format, strconv.FormatBool(compressed)).Inc()
	wirePayloadBytes.WithLabelValues(direction, format).Observe(float64(payloadBytes))
}

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, route, statusLabel).Inc()
	httpDuration.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
}

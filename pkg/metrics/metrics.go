// Package metrics holds the Prometheus collectors for chat stream sessions.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "agentchat"

// Session outcome labels.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

var (
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of stream sessions by protocol and outcome",
		},
		[]string{"protocol", "status"},
	)

	sessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Histogram of stream session duration in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"protocol", "status"},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of stream sessions currently reading a response",
		},
	)

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of decoded frames by protocol",
		},
		[]string{"protocol"},
	)

	decodeWarningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_warnings_total",
			Help:      "Total number of streams that ended with undecodable trailing data",
		},
		[]string{"protocol"},
	)

	schemaParseErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_parse_errors_total",
			Help:      "Total number of form schemas that failed to parse",
		},
		[]string{"protocol"},
	)
)

var allMetrics = []prometheus.Collector{
	sessionsTotal,
	sessionDuration,
	sessionsActive,
	framesTotal,
	decodeWarningsTotal,
	schemaParseErrorsTotal,
}

// Register adds every agentchat collector to reg. Collectors that are
// already registered are skipped.
func Register(reg prometheus.Registerer) error {
	for _, c := range allMetrics {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry carrying the agentchat collectors plus the
// Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	for _, c := range allMetrics {
		reg.MustRegister(c)
	}
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// SessionStarted marks a session as actively streaming.
func SessionStarted() {
	sessionsActive.Inc()
}

// SessionEnded records the outcome of a session started with SessionStarted.
func SessionEnded(protocol, status string, durationSeconds float64) {
	sessionsActive.Dec()
	sessionsTotal.WithLabelValues(protocol, status).Inc()
	sessionDuration.WithLabelValues(protocol, status).Observe(durationSeconds)
}

// RecordFrames adds n decoded frames for protocol.
func RecordFrames(protocol string, n int) {
	if n <= 0 {
		return
	}
	framesTotal.WithLabelValues(protocol).Add(float64(n))
}

// RecordDecodeWarning counts a stream that ended with discarded data.
func RecordDecodeWarning(protocol string) {
	decodeWarningsTotal.WithLabelValues(protocol).Inc()
}

// RecordSchemaParseError counts a form schema that could not be parsed.
func RecordSchemaParseError(protocol string) {
	schemaParseErrorsTotal.WithLabelValues(protocol).Inc()
}

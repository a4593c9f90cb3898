package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "espblink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "espblink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	registrationAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "espblink",
			Subsystem: "registration",
			Name:      "attempts_total",
			Help:      "Register envelopes built by the registration state machine.",
		},
		[]string{"node", "outcome"},
	)
	registered = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "espblink",
			Subsystem: "registration",
			Name:      "registered",
			Help:      "1 once the registration latch is set.",
		},
		[]string{"node"},
	)
	actuatorActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "espblink",
			Subsystem: "actuator",
			Name:      "active",
			Help:      "1 while the LED output is at its active level.",
		},
		[]string{"node"},
	)
	commandsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "espblink",
			Subsystem: "actuator",
			Name:      "commands_total",
			Help:      "Command envelopes dispatched, by recognized key.",
		},
		[]string{"node", "key"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "espblink",
			Subsystem: "radio",
			Name:      "frames_sent_total",
			Help:      "Frames handed to the radio, by reported send status.",
		},
		[]string{"node", "status"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "espblink",
			Subsystem: "radio",
			Name:      "frames_received_total",
			Help:      "Frames delivered by the radio receive callback.",
		},
		[]string{"node"},
	)
	eventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "espblink",
			Subsystem: "radio",
			Name:      "events_dropped_total",
			Help:      "Radio events dropped because the event queue was full.",
		},
		[]string{"node", "kind"},
	)
	parseErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "espblink",
			Subsystem: "protocol",
			Name:      "parse_errors_total",
			Help:      "Inbound envelopes discarded with a parse error.",
		},
		[]string{"node"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			registrationAttempts,
			registered,
			actuatorActive,
			commandsApplied,
			framesSent,
			framesReceived,
			eventsDropped,
			parseErrors,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordRegistrationAttempt counts one attempt; outcome is "sent" or
// "encode_error".
func RecordRegistrationAttempt(node, outcome string) {
	RegisterMetrics()
	registrationAttempts.WithLabelValues(node, outcome).Inc()
}

func SetRegistered(node string, ok bool) {
	RegisterMetrics()
	registered.WithLabelValues(node).Set(boolGauge(ok))
}

func SetActuatorActive(node string, active bool) {
	RegisterMetrics()
	actuatorActive.WithLabelValues(node).Set(boolGauge(active))
}

func RecordCommand(node, key string) {
	RegisterMetrics()
	commandsApplied.WithLabelValues(node, key).Inc()
}

func RecordFrameSent(node string, success bool) {
	RegisterMetrics()
	status := "ok"
	if !success {
		status = "fail"
	}
	framesSent.WithLabelValues(node, status).Inc()
}

func RecordFrameReceived(node string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(node).Inc()
}

func RecordEventDropped(node, kind string) {
	RegisterMetrics()
	eventsDropped.WithLabelValues(node, kind).Inc()
}

func RecordParseError(node string) {
	RegisterMetrics()
	parseErrors.WithLabelValues(node).Inc()
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

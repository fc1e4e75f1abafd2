package observability

import (
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warhorse_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warhorse_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// SessionsOpen is the gauge of live socket sessions.
	SessionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warhorse_sessions_open",
		Help: "Number of open socket sessions",
	})

	// SessionsAuthenticated is the gauge of sessions bound to a user.
	SessionsAuthenticated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warhorse_sessions_authenticated",
		Help: "Number of socket sessions bound to a logged-in user",
	})

	// RoomMembers is the gauge of sessions subscribed per chat room.
	RoomMembers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "warhorse_room_members",
		Help: "Number of sessions subscribed to each chat room",
	}, []string{"room_id"})

	// SocketEventsTotal counts inbound socket events by name and outcome.
	SocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warhorse_socket_events_total",
		Help: "Total inbound socket events by event name and outcome",
	}, []string{"event", "outcome"})

	// SocketEmitsTotal counts outbound socket events by name.
	SocketEmitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warhorse_socket_emits_total",
		Help: "Total outbound socket events by event name",
	}, []string{"event"})

	// MalformedFramesTotal counts inbound frames dropped before dispatch.
	MalformedFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warhorse_socket_malformed_frames_total",
		Help: "Total inbound frames ignored as malformed or unroutable",
	}, []string{"reason"})

	// BackpressureDrops counts outbound messages dropped on full buffers.
	BackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warhorse_socket_backpressure_drops_total",
		Help: "Total outbound messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// ChatMessagesTotal counts delivered chat messages by channel kind.
	ChatMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warhorse_chat_messages_total",
		Help: "Total chat messages routed, by channel kind",
	}, []string{"channel"})

	// CommandLatency records socket command handling latency by event.
	CommandLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warhorse_command_latency_seconds",
		Help:    "Socket command handling latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"event"})
)

// Event outcomes recorded on SocketEventsTotal.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeIgnored = "ignored"
)

// InitMetrics builds the Prometheus HTTP middleware and mounts the scrape
// endpoint at /metrics.
func InitMetrics(app *fiber.App, serviceName string) *fiberprometheus.FiberPrometheus {
	prom := fiberprometheus.New(serviceName)
	prom.RegisterAt(app, "/metrics")
	return prom
}

// TimeCommand returns a closure recording one command's latency and outcome
// when called, usually via defer.
func TimeCommand(event string) func(outcome string) {
	start := time.Now()
	return func(outcome string) {
		CommandLatency.WithLabelValues(event).Observe(time.Since(start).Seconds())
		SocketEventsTotal.WithLabelValues(event, outcome).Inc()
	}
}

// ObserveQuery records the latency of one database query.
func ObserveQuery(operation string, elapsed time.Duration) {
	DatabaseQueryLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

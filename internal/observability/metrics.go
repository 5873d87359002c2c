package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveRooms         prometheus.Gauge
	ConnectedPlayers    prometheus.Gauge
	RoomEvents          *prometheus.CounterVec
	WSMessages          *prometheus.CounterVec
	TaskCompletions     prometheus.Counter
	FloorsCompleted     prometheus.Counter
	BroadcastDropped    prometheus.Counter
	StoreErrors         *prometheus.CounterVec
	EventAppendFailures prometheus.Counter
	ActionLatency       prometheus.Histogram

	latencyWindow *actionLatencyWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveRooms: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of active game rooms.",
		}),
		ConnectedPlayers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_players",
			Help:      "Number of players with a live websocket.",
		}),
		RoomEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_events_total",
			Help:      "Room lifecycle events by type.",
		}, []string{"event"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		TaskCompletions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_completions_total",
			Help:      "Task completions applied.",
		}),
		FloorsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "floors_completed_total",
			Help:      "Floors fully completed.",
		}),
		BroadcastDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_dropped_total",
			Help:      "Deliveries dropped on dead or saturated channels.",
		}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Persistent store failures by operation.",
		}, []string{"op"}),
		EventAppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_append_failures_total",
			Help:      "Event log appends that failed.",
		}),
		ActionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_apply_latency_ms",
			Help:      "Latency from action arrival to applied state in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
		latencyWindow: newActionLatencyWindow(256),
	}
}

// ObserveAction records one action's apply latency in both the histogram and
// the debug window.
func (m *Metrics) ObserveAction(action string, d time.Duration) {
	ms := float64(d.Microseconds()) / 1000
	m.ActionLatency.Observe(ms)
	m.latencyWindow.Observe(action, ms)
}

// CountIndicator bumps a named occurrence in the debug window.
func (m *Metrics) CountIndicator(name string) {
	m.latencyWindow.ObserveIndicator(name)
}

// SnapshotActionLatency reports the sliding-window latency stats.
func (m *Metrics) SnapshotActionLatency() ActionLatencySnapshot {
	return m.latencyWindow.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the service counters on a Prometheus registry.
type Metrics struct {
	// Ingestion: snapshots received from the broker and dropped on overflow
	SnapshotsReceived prometheus.Counter
	SnapshotsDropped  prometheus.Counter

	// Evaluation: ticks processed by the engine
	TicksTotal prometheus.Counter

	// Alerting: dispatched alerts by severity, sink publish failures
	AlertsTotal *prometheus.CounterVec
	SinkErrors  prometheus.Counter

	// Persistence: channel overflow drops and database write failures
	ChannelDrops    *prometheus.CounterVec
	DBWriteFailures prometheus.Counter
}

// NewMetrics registers the counters on reg. A nil registerer gets a
// private registry, so tests can construct components without wiring
// the global one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		SnapshotsReceived: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "safety_monitor_snapshots_received_total",
			Help: "Total telemetry snapshots received from the broker.",
		}),
		SnapshotsDropped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "safety_monitor_snapshots_dropped_total",
			Help: "Snapshots dropped because the evaluation loop was busy.",
		}),
		TicksTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "safety_monitor_ticks_total",
			Help: "Evaluation ticks processed.",
		}),
		AlertsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "safety_monitor_alerts_total",
			Help: "Dispatched alerts by severity.",
		}, []string{"severity"}),
		SinkErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "safety_monitor_sink_errors_total",
			Help: "Alert sink publish failures.",
		}),
		ChannelDrops: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "safety_monitor_channel_drops_total",
			Help: "Messages dropped on full pipeline channels.",
		}, []string{"channel"}),
		DBWriteFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "safety_monitor_db_write_failures_total",
			Help: "Telemetry rows that permanently failed to write.",
		}),
	}
}

package eventbus

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tri2510/vehicle-safety-monitor/internal/metrics"
	"github.com/tri2510/vehicle-safety-monitor/internal/models"
)

// telemetryMessage is the wire format vehicles publish on the telemetry
// subject. Optional fields stay nil when the signal was unavailable at
// sampling time, which maps straight onto the snapshot model.
type telemetryMessage struct {
	VehicleID        string   `json:"vehicle_id"`
	Timestamp        int64    `json:"timestamp"`
	SpeedMps         *float64 `json:"speed_mps"`
	AccelerationMps2 *float64 `json:"acceleration_mps2"`
	BrakePedalPct    *float64 `json:"brake_pedal_pct"`
	ABSActive        *bool    `json:"abs_active"`
}

// Subscriber receives telemetry from NATS and hands decoded snapshots to
// the evaluation loop through a single buffered channel. The channel is
// what serializes delivery: the engine owns unsynchronized state, so
// exactly one consumer drains it, and snapshots arriving faster than
// ticks complete are dropped and counted rather than queued unbounded.
type Subscriber struct {
	conn         *nats.Conn
	subscription *nats.Subscription
	subject      string
	out          chan *models.SignalSnapshot
	metrics      *metrics.Metrics
}

func NewSubscriber(natsURL, subject string, bufferSize int, m *metrics.Metrics) (*Subscriber, error) {
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	log.Printf("Monitor (Sub) connected to NATS at %s", natsURL)

	return &Subscriber{
		conn:    conn,
		subject: subject,
		out:     make(chan *models.SignalSnapshot, bufferSize),
		metrics: m,
	}, nil
}

// Start begins listening for vehicle telemetry.
func (s *Subscriber) Start() error {
	var err error

	s.subscription, err = s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		s.handleTelemetry(msg)
	})
	if err != nil {
		return err
	}

	log.Printf("Subscribed to '%s'", s.subject)
	return nil
}

// Snapshots is the serialized snapshot stream for the evaluation loop.
func (s *Subscriber) Snapshots() <-chan *models.SignalSnapshot {
	return s.out
}

func (s *Subscriber) handleTelemetry(msg *nats.Msg) {
	var wire telemetryMessage
	if err := json.Unmarshal(msg.Data, &wire); err != nil {
		log.Printf("Failed to unmarshal telemetry: %v", err)
		return
	}

	snapshot := snapshotFromWire(&wire)
	s.metrics.SnapshotsReceived.Inc()

	select {
	case s.out <- snapshot:
	default:
		s.metrics.SnapshotsDropped.Inc()
	}
}

func snapshotFromWire(wire *telemetryMessage) *models.SignalSnapshot {
	ts := time.Now()
	if wire.Timestamp > 0 {
		ts = time.Unix(wire.Timestamp, 0)
	}

	return &models.SignalSnapshot{
		VehicleID:        wire.VehicleID,
		Timestamp:        ts,
		SpeedMps:         wire.SpeedMps,
		AccelerationMps2: wire.AccelerationMps2,
		BrakePedalPct:    wire.BrakePedalPct,
		ABSActive:        wire.ABSActive,
	}
}

func (s *Subscriber) Close() {
	if s.subscription != nil {
		s.subscription.Unsubscribe()
	}

	if s.conn != nil {
		s.conn.Close()
		log.Printf("Monitor (Sub) disconnected from NATS")
	}
}

// IsConnected returns true if connected to NATS
func (s *Subscriber) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

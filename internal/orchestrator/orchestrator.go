package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tri2510/vehicle-safety-monitor/internal/alerting"
	"github.com/tri2510/vehicle-safety-monitor/internal/config"
	"github.com/tri2510/vehicle-safety-monitor/internal/engine"
	"github.com/tri2510/vehicle-safety-monitor/internal/evaluator"
	"github.com/tri2510/vehicle-safety-monitor/internal/eventbus"
	"github.com/tri2510/vehicle-safety-monitor/internal/metrics"
	"github.com/tri2510/vehicle-safety-monitor/internal/models"
	"github.com/tri2510/vehicle-safety-monitor/internal/pipeline"
	"github.com/tri2510/vehicle-safety-monitor/internal/store"
)

// Orchestrator manages the safety monitor lifecycle and coordinates
// telemetry ingestion, evaluation, and alert delivery.
//
// Lifecycle:
//  1. Start() - builds the engine, connects NATS and the stores
//  2. Run() - drains the snapshot stream through the engine until cancelled
//  3. Stop() - gracefully closes all connections and resources
//
// The orchestrator implements graceful degradation:
//   - Timescale unavailable: signals/alerts not archived, evaluation unaffected
//   - Redis unavailable: no live state or alert fan-out, evaluation unaffected
//   - NATS is required: without the broker there is nothing to evaluate
type Orchestrator struct {
	config *config.Config

	// Evaluation engine and the TTC estimator (kept for its last-known estimate)
	engine       *engine.Engine
	ttcEstimator *evaluator.TTCEstimator

	// Broker connections
	subscriber *eventbus.Subscriber
	publisher  *eventbus.Publisher

	// Alert dispatch and persistence pipeline
	alertDispatcher *alerting.Dispatcher
	fanout          *pipeline.Dispatcher
	alertChan       chan *models.Alert
	dbWriter        *pipeline.DBWriter
	stateWriter     *pipeline.StateWriter
	alertWriter     *pipeline.AlertWriter

	// Optional stores
	db    *store.TimescaleStore
	redis *store.RedisStore

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	// Closed when the evaluation loop exits. Stop waits on it: the loop
	// owns the pipeline channels and must close them itself, after its
	// final tick.
	done chan struct{}
}

// NewOrchestrator creates a new Orchestrator instance with the provided
// configuration. Nothing connects until Start() is called.
func NewOrchestrator(cfg *config.Config) *Orchestrator {
	registry := prometheus.NewRegistry()
	return &Orchestrator{
		config:   cfg,
		registry: registry,
		metrics:  metrics.NewMetrics(registry),
		done:     make(chan struct{}),
	}
}

// Registry exposes the Prometheus registry for the metrics endpoint.
func (o *Orchestrator) Registry() *prometheus.Registry {
	return o.registry
}

// Start initializes the engine and all service connections.
func (o *Orchestrator) Start(ctx context.Context) error {
	log.Printf("Starting Safety Monitor Orchestrator...")

	o.initializeEngine()

	o.connectStores(ctx) // Optional - warnings logged on failure

	if err := o.connectNATS(); err != nil {
		return fmt.Errorf("failed to connect broker: %w", err)
	}

	o.initializePipeline()

	log.Printf("Safety Monitor Orchestrator started successfully")
	return nil
}

// initializeEngine builds the engine and registers the evaluators with
// configured thresholds. Registration order is evaluation order.
func (o *Orchestrator) initializeEngine() {
	log.Printf("Initializing evaluation engine...")

	t := o.config.Thresholds

	collisionRisk := evaluator.NewCollisionRiskEvaluator()
	collisionRisk.SetSpeedThresholds(t.SpeedWarningMps, t.SpeedCriticalMps)
	collisionRisk.SetBrakingThresholds(t.HardBrakingMps2, t.EmergencyBrakeMps2)
	collisionRisk.SetCooldowns(t.WarningCooldown, t.CriticalCooldown)

	emergencyBrake := evaluator.NewEmergencyBrakeEvaluator()
	emergencyBrake.SetThresholds(t.EmergencyBrakeMps2, t.BrakePedalEmergencyPct)

	o.ttcEstimator = evaluator.NewTTCEstimator()
	o.ttcEstimator.SetThresholds(t.TTCWarningSec, t.TTCCriticalSec)

	o.engine = engine.NewEngine()
	o.engine.RegisterEvaluator(collisionRisk)
	o.engine.RegisterEvaluator(emergencyBrake)
	o.engine.RegisterEvaluator(o.ttcEstimator)

	names := o.engine.GetRegisteredEvaluators()
	log.Printf("Evaluation engine initialized with %d evaluators: %v", len(names), names)
	log.Printf("  - Speed: warning=%.2f m/s, critical=%.2f m/s (cooldowns %v/%v)",
		t.SpeedWarningMps, t.SpeedCriticalMps, t.WarningCooldown, t.CriticalCooldown)
	log.Printf("  - Braking: hard=%.1f m/s², emergency=%.1f m/s², pedal=%.0f%%",
		t.HardBrakingMps2, t.EmergencyBrakeMps2, t.BrakePedalEmergencyPct)
	log.Printf("  - TTC: warning=%.1fs, critical=%.1fs", t.TTCWarningSec, t.TTCCriticalSec)
}

// connectStores establishes the optional Timescale and Redis connections.
// Failure logs a warning but does not prevent startup: persistence is
// reporting, and losing reporting must never stop evaluation.
func (o *Orchestrator) connectStores(ctx context.Context) {
	if o.config.DatabaseURL == "" {
		log.Printf("DATABASE_URL not configured, signal/alert history disabled")
	} else {
		db, err := store.NewTimescaleStore(ctx, o.config.DatabaseURL)
		if err != nil {
			log.Printf("Warning: failed to connect to Timescale: %v", err)
			log.Printf("Signal and alert history unavailable")
		} else {
			o.db = db
			log.Printf("Connected to Timescale")
		}
	}

	if o.config.RedisAddr == "" {
		log.Printf("REDIS_ADDR not configured, live state and alert fan-out disabled")
	} else {
		rdb, err := store.NewRedisStore(ctx, o.config.RedisAddr, o.config.RedisPassword, o.config.RedisDB)
		if err != nil {
			log.Printf("Warning: failed to connect to Redis: %v", err)
			log.Printf("Live vehicle state and alert fan-out unavailable")
		} else {
			o.redis = rdb
			log.Printf("Connected to Redis at %s", o.config.RedisAddr)
		}
	}
}

// connectNATS establishes the broker connections. The broker is the only
// required collaborator: it carries both the inbound telemetry and the
// outbound alert stream.
func (o *Orchestrator) connectNATS() error {
	log.Printf("Connecting to NATS at: %s", o.config.NatsURL)

	subscriber, err := eventbus.NewSubscriber(
		o.config.NatsURL,
		o.config.TelemetrySubject,
		o.config.SnapshotBufferSize,
		o.metrics,
	)
	if err != nil {
		return fmt.Errorf("telemetry subscriber: %w", err)
	}
	o.subscriber = subscriber

	publisher, err := eventbus.NewPublisher(o.config.NatsURL, o.config.AlertSubject)
	if err != nil {
		return fmt.Errorf("alert publisher: %w", err)
	}
	o.publisher = publisher

	return nil
}

// initializePipeline wires the alert dispatcher and the persistence writers.
// Channels are only created for writers that exist: with persistence disabled
// there is nobody to drain them, and dispatching into an undrained channel
// would pin snapshots in memory and report phantom drops forever.
func (o *Orchestrator) initializePipeline() {
	if o.db != nil || o.redis != nil {
		o.alertChan = make(chan *models.Alert, o.config.AlertChannelSize)
	}
	o.alertDispatcher = alerting.NewDispatcher(o.publisher, o.alertChan, o.metrics)

	dbSize, stateSize := 0, 0
	if o.db != nil {
		dbSize = o.config.DBChannelSize
	}
	if o.redis != nil {
		stateSize = o.config.StateChannelSize
	}
	o.fanout = pipeline.NewDispatcher(dbSize, stateSize, o.metrics)

	if o.db != nil {
		o.dbWriter = pipeline.NewDBWriter(o.fanout.DBChan, o.db, o.config.DBBatchSize, o.config.DBFlushIntervalMS, o.metrics)
	}
	if o.redis != nil {
		o.stateWriter = pipeline.NewStateWriter(o.fanout.StateChan, o.redis)
	}
	if o.db != nil || o.redis != nil {
		o.alertWriter = pipeline.NewAlertWriter(o.alertChan, o.db, o.redis)
	}
}

// Run subscribes to telemetry and drains the snapshot stream through the
// engine until the context is cancelled. The stream is drained by exactly
// one goroutine: the engine and dispatcher own unsynchronized state, so
// one tick fully completes before the next snapshot is accepted.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.subscriber.Start(); err != nil {
		close(o.done)
		return fmt.Errorf("failed to subscribe to telemetry: %w", err)
	}

	if o.dbWriter != nil {
		go o.dbWriter.Run(ctx)
	}
	if o.stateWriter != nil {
		go o.stateWriter.Run(ctx)
	}
	if o.alertWriter != nil {
		go o.alertWriter.Run(ctx)
	}

	log.Printf("Safety monitor ready - evaluating telemetry from '%s'", o.config.TelemetrySubject)

	return o.evaluationLoop(ctx, o.subscriber.Snapshots())
}

// evaluationLoop drains the snapshot stream until the context is
// cancelled. It is the only goroutine that sends into the pipeline
// channels, so it also closes them on the way out; closing from anywhere
// else would race the sends inside tick.
func (o *Orchestrator) evaluationLoop(ctx context.Context, snapshots <-chan *models.SignalSnapshot) error {
	defer close(o.done)
	defer o.closePipeline()

	for {
		select {
		case snapshot := <-snapshots:
			o.tick(snapshot)

		case <-ctx.Done():
			log.Printf("Shutdown signal received")
			return ctx.Err()
		}
	}
}

func (o *Orchestrator) closePipeline() {
	if o.fanout != nil {
		o.fanout.Close()
	}
	if o.alertChan != nil {
		close(o.alertChan)
	}
}

// tick runs one snapshot through evaluation and dispatch.
func (o *Orchestrator) tick(snapshot *models.SignalSnapshot) {
	now := time.Now()
	o.metrics.TicksTotal.Inc()

	alerts := o.engine.Evaluate(snapshot, now)
	o.alertDispatcher.Dispatch(alerts)

	var ttc *float64
	if estimate, ok := o.ttcEstimator.LastEstimate(); ok {
		ttc = &estimate
	}
	o.fanout.Dispatch(&pipeline.StateUpdate{Snapshot: snapshot, TTCSeconds: ttc})
}

// Stop gracefully closes all connections and releases resources.
func (o *Orchestrator) Stop() error {
	log.Printf("Stopping Orchestrator...")

	if o.subscriber != nil {
		o.subscriber.Close()
	}

	// The evaluation loop owns the pipeline channels; wait for it to
	// finish its tick and close them before tearing down the connections
	// it publishes through.
	select {
	case <-o.done:
	case <-time.After(5 * time.Second):
		log.Printf("Warning: evaluation loop still running after 5s, proceeding with shutdown")
	}

	if o.publisher != nil {
		o.publisher.Close()
	}

	if o.redis != nil {
		if err := o.redis.Close(); err != nil {
			log.Printf("Error closing Redis: %v", err)
		}
	}

	if o.db != nil {
		o.db.Close()
	}

	log.Printf("Orchestrator stopped successfully")
	return nil
}

package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tri2510/vehicle-safety-monitor/internal/evaluator"
	"github.com/tri2510/vehicle-safety-monitor/internal/models"
)

func f64(v float64) *float64 { return &v }
func boolPtr(v bool) *bool   { return &v }

func snapshot(speed, accel, pedal float64, abs bool) *models.SignalSnapshot {
	return &models.SignalSnapshot{
		VehicleID:        "test-vehicle",
		Timestamp:        time.Now(),
		SpeedMps:         f64(speed),
		AccelerationMps2: f64(accel),
		BrakePedalPct:    f64(pedal),
		ABSActive:        boolPtr(abs),
	}
}

// newTestEngine wires the three evaluators in production order.
func newTestEngine() *Engine {
	e := NewEngine()
	e.RegisterEvaluator(evaluator.NewCollisionRiskEvaluator())
	e.RegisterEvaluator(evaluator.NewEmergencyBrakeEvaluator())
	e.RegisterEvaluator(evaluator.NewTTCEstimator())
	return e
}

func severities(alerts []*models.Alert) []models.AlertSeverity {
	out := make([]models.AlertSeverity, len(alerts))
	for i, a := range alerts {
		out[i] = a.Severity
	}
	return out
}

func TestEngine_RegistersEvaluatorsInOrder(t *testing.T) {
	e := newTestEngine()

	assert.Equal(t,
		[]string{"collision_risk", "emergency_brake", "time_to_collision"},
		e.GetRegisteredEvaluators())
}

func TestEngine_HighSpeedCruise(t *testing.T) {
	e := newTestEngine()

	// 30 m/s, no braking: exactly one critical speed alert.
	alerts := e.Evaluate(snapshot(30.0, 0, 0, false), time.Now())

	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, evaluator.RuleSpeedCritical, alerts[0].Rule)
}

func TestEngine_HardBrakingWithShortStoppingWindow(t *testing.T) {
	e := newTestEngine()

	// 10 m/s at -5 m/s²: hard-braking info plus a 2.0s TTC warning.
	alerts := e.Evaluate(snapshot(10.0, -5.0, 30, false), time.Now())

	require.Len(t, alerts, 2)
	assert.Equal(t, evaluator.RuleHardBraking, alerts[0].Rule)
	assert.Equal(t, models.SeverityInfo, alerts[0].Severity)
	assert.Equal(t, evaluator.RuleTimeToCollision, alerts[1].Rule)
	assert.Equal(t, models.SeverityWarning, alerts[1].Severity)
	assert.InDelta(t, 2.0, alerts[1].Value, 1e-9)
}

func TestEngine_EmergencyStopWithABS(t *testing.T) {
	e := newTestEngine()

	// 5 m/s at -7 m/s² with 90% pedal and ABS: an emergency plus the ABS
	// info line, and a critical TTC (5/7 ≈ 0.71s).
	alerts := e.Evaluate(snapshot(5.0, -7.0, 90, true), time.Now())

	require.Len(t, alerts, 3)
	assert.Equal(t, evaluator.RuleABSEngaged, alerts[0].Rule)
	assert.Equal(t, evaluator.RuleEmergencyBraking, alerts[1].Rule)
	assert.Equal(t, models.SeverityEmergency, alerts[1].Severity)
	assert.Equal(t, evaluator.RuleTimeToCollision, alerts[2].Rule)
	assert.Equal(t, models.SeverityCritical, alerts[2].Severity)
}

func TestEngine_SpeedCooldownAcrossTicks(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	first := e.Evaluate(snapshot(30.0, 0, 0, false), now)
	second := e.Evaluate(snapshot(30.0, 0, 0, false), now.Add(500*time.Millisecond))

	require.Len(t, first, 1)
	assert.Empty(t, second, "critical cooldown must suppress the second tick")
}

func TestEngine_EmergencyNeverMaskedByCooldown(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	// Tick 1 fires the critical speed tier. Tick 2 is still in cooldown
	// but adds an emergency condition, which must come through.
	first := e.Evaluate(snapshot(30.0, 0, 0, false), now)
	require.Len(t, first, 1)

	second := e.Evaluate(snapshot(30.0, -7.0, 90, false), now.Add(500*time.Millisecond))
	require.NotEmpty(t, second)
	assert.Contains(t, severities(second), models.SeverityEmergency)
	assert.NotContains(t, severities(second), models.SeverityCritical)
}

func TestEngine_UnavailableSignalsProduceNoAlerts(t *testing.T) {
	e := newTestEngine()

	empty := &models.SignalSnapshot{VehicleID: "test-vehicle", Timestamp: time.Now()}
	alerts := e.Evaluate(empty, time.Now())

	assert.Empty(t, alerts)
}

type panickingEvaluator struct{}

func (p *panickingEvaluator) Name() string { return "panicking" }

func (p *panickingEvaluator) Evaluate(snapshot *models.SignalSnapshot, now time.Time) []*models.Alert {
	panic("sensor arithmetic exploded")
}

func TestEngine_PanicBecomesSystemErrorAlert(t *testing.T) {
	e := NewEngine()
	e.RegisterEvaluator(evaluator.NewCollisionRiskEvaluator())
	e.RegisterEvaluator(&panickingEvaluator{})

	alerts := e.Evaluate(snapshot(30.0, 0, 0, false), time.Now())

	// The collision risk alert collected before the panic survives, and
	// the panic is surfaced as a SYSTEM_ERROR instead of propagating.
	require.Len(t, alerts, 2)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, models.SeveritySystemError, alerts[1].Severity)
	assert.Contains(t, alerts[1].Message, "sensor arithmetic exploded")
}

func TestEngine_NextTickUnaffectedByPanic(t *testing.T) {
	e := NewEngine()
	e.RegisterEvaluator(&panickingEvaluator{})
	e.RegisterEvaluator(evaluator.NewEmergencyBrakeEvaluator())
	now := time.Now()

	first := e.Evaluate(snapshot(15.0, -7.0, 30, false), now)
	second := e.Evaluate(snapshot(15.0, -7.0, 30, false), now.Add(10*time.Millisecond))

	// Both ticks report the failure; neither takes down the loop. The
	// emergency evaluator after the failed one is skipped for the tick,
	// which is the documented cost of a tick-boundary recover.
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, models.SeveritySystemError, first[0].Severity)
	assert.Equal(t, models.SeveritySystemError, second[0].Severity)
}

package evaluator

import (
	"fmt"
	"time"

	"github.com/tri2510/vehicle-safety-monitor/internal/models"
)

// Rule names reported on alerts produced by the collision risk evaluator.
const (
	RuleSpeedWarning        = "speed_warning"
	RuleSpeedCritical       = "speed_critical"
	RuleHardBraking         = "hard_braking"
	RuleInsufficientBraking = "insufficient_braking"
	RuleABSEngaged          = "abs_engaged"
)

// CollisionRiskEvaluator checks speed and braking-pattern rules against
// each snapshot. The speed tiers are cooldown-gated because they describe
// a standing state that would otherwise repeat every tick; the remaining
// rules report transient, self-limiting conditions and fire every tick
// they hold.
//
// The evaluator owns the cooldown clocks for its speed tiers. The warning
// and critical clocks are independent: firing one tier never delays the
// other. Clocks start at "never fired" and only move forward.
type CollisionRiskEvaluator struct {
	speedWarningThreshold   float64
	speedCriticalThreshold  float64
	hardBrakingThreshold    float64
	emergencyBrakeThreshold float64

	warningCooldown  time.Duration
	criticalCooldown time.Duration

	lastWarningAt  time.Time
	lastCriticalAt time.Time
}

func NewCollisionRiskEvaluator() *CollisionRiskEvaluator {
	return &CollisionRiskEvaluator{
		speedWarningThreshold:   DefaultSpeedWarningMps,
		speedCriticalThreshold:  DefaultSpeedCriticalMps,
		hardBrakingThreshold:    DefaultHardBrakingMps2,
		emergencyBrakeThreshold: DefaultEmergencyBrakeMps2,
		warningCooldown:         DefaultWarningCooldown,
		criticalCooldown:        DefaultCriticalCooldown,
	}
}

func (e *CollisionRiskEvaluator) Name() string {
	return "collision_risk"
}

// SetSpeedThresholds overrides the warning/critical speed tiers (m/s).
func (e *CollisionRiskEvaluator) SetSpeedThresholds(warning, critical float64) {
	e.speedWarningThreshold = warning
	e.speedCriticalThreshold = critical
}

// SetCooldowns overrides the per-tier cooldown windows.
func (e *CollisionRiskEvaluator) SetCooldowns(warning, critical time.Duration) {
	e.warningCooldown = warning
	e.criticalCooldown = critical
}

// SetBrakingThresholds overrides the hard-braking band boundaries (m/s²).
func (e *CollisionRiskEvaluator) SetBrakingThresholds(hard, emergency float64) {
	e.hardBrakingThreshold = hard
	e.emergencyBrakeThreshold = emergency
}

// Evaluate runs the four collision risk rules in fixed order:
// speed tier, hard-braking band, compound high-speed/low-braking, ABS.
// The rules are independent; a single tick can produce several alerts.
func (e *CollisionRiskEvaluator) Evaluate(snapshot *models.SignalSnapshot, now time.Time) []*models.Alert {
	var alerts []*models.Alert

	speed := snapshot.Speed()
	accel := snapshot.Acceleration()
	pedal := snapshot.BrakePedal()

	// Speed tier: mutually exclusive, highest tier wins. A tier in
	// cooldown suppresses the whole tier; it does not fall through to
	// the lower one.
	if speed > e.speedCriticalThreshold {
		if e.cooldownElapsed(e.lastCriticalAt, e.criticalCooldown, now) {
			e.lastCriticalAt = now
			alerts = append(alerts, models.NewAlert(
				snapshot.VehicleID,
				RuleSpeedCritical,
				models.SeverityCritical,
				fmt.Sprintf("Vehicle speed critically high: %.1f m/s (limit %.2f m/s)", speed, e.speedCriticalThreshold),
				speed,
				now,
			))
		}
	} else if speed > e.speedWarningThreshold {
		if e.cooldownElapsed(e.lastWarningAt, e.warningCooldown, now) {
			e.lastWarningAt = now
			alerts = append(alerts, models.NewAlert(
				snapshot.VehicleID,
				RuleSpeedWarning,
				models.SeverityWarning,
				fmt.Sprintf("Vehicle speed above warning threshold: %.1f m/s (limit %.2f m/s)", speed, e.speedWarningThreshold),
				speed,
				now,
			))
		}
	}

	// Hard-braking band: deceleration strong but not yet emergency-grade.
	// Fires every tick the condition holds; repetition shows how long the
	// braking action lasts.
	if accel > e.emergencyBrakeThreshold && accel < e.hardBrakingThreshold {
		alerts = append(alerts, models.NewAlert(
			snapshot.VehicleID,
			RuleHardBraking,
			models.SeverityInfo,
			fmt.Sprintf("Hard braking in progress: %.1f m/s²", accel),
			accel,
			now,
		))
	}

	// Compound risk: high speed with negligible braking. Transient and
	// self-clearing as the driver brakes, so no cooldown.
	if speed > e.speedWarningThreshold && pedal < compoundRiskBrakePedalPct && accel > compoundRiskAccelMps2 {
		alerts = append(alerts, models.NewAlert(
			snapshot.VehicleID,
			RuleInsufficientBraking,
			models.SeverityWarning,
			fmt.Sprintf("High speed with negligible braking: %.1f m/s at %.0f%% pedal", speed, pedal),
			speed,
			now,
		))
	}

	// ABS engagement, reported every tick it is active.
	if snapshot.ABS() {
		alerts = append(alerts, models.NewAlert(
			snapshot.VehicleID,
			RuleABSEngaged,
			models.SeverityInfo,
			"ABS engaged",
			0,
			now,
		))
	}

	return alerts
}

func (e *CollisionRiskEvaluator) cooldownElapsed(lastFiredAt time.Time, cooldown time.Duration, now time.Time) bool {
	if lastFiredAt.IsZero() {
		return true
	}
	return now.Sub(lastFiredAt) >= cooldown
}

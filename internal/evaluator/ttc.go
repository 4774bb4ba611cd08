package evaluator

import (
	"fmt"
	"math"
	"time"

	"github.com/tri2510/vehicle-safety-monitor/internal/models"
)

const RuleTimeToCollision = "time_to_collision"

// TTCEstimator derives a scalar "seconds until stop" from current speed
// and deceleration and classifies it. The estimate is only defined while
// the vehicle is moving and actively decelerating; when undefined, the
// previously computed value is retained as the last-known estimate so a
// momentary signal gap does not erase context for downstream consumers.
//
// Classification has no cooldown: the value changes continuously and
// should track in real time.
type TTCEstimator struct {
	ttcWarningThreshold  float64
	ttcCriticalThreshold float64

	lastEstimate float64
	hasEstimate  bool
}

func NewTTCEstimator() *TTCEstimator {
	return &TTCEstimator{
		ttcWarningThreshold:  DefaultTTCWarningSec,
		ttcCriticalThreshold: DefaultTTCCriticalSec,
	}
}

func (e *TTCEstimator) Name() string {
	return "time_to_collision"
}

// SetThresholds overrides the warning/critical classification bounds (seconds).
func (e *TTCEstimator) SetThresholds(warning, critical float64) {
	e.ttcWarningThreshold = warning
	e.ttcCriticalThreshold = critical
}

// LastEstimate returns the last-known time-to-collision in seconds.
// The boolean is false until the first defined estimate has been computed.
func (e *TTCEstimator) LastEstimate() (float64, bool) {
	return e.lastEstimate, e.hasEstimate
}

func (e *TTCEstimator) Evaluate(snapshot *models.SignalSnapshot, now time.Time) []*models.Alert {
	speed := snapshot.Speed()
	accel := snapshot.Acceleration()

	// Undefined unless moving and actively decelerating.
	if speed <= 0 || accel >= 0 {
		return nil
	}

	ttc := speed / math.Abs(accel)
	e.lastEstimate = ttc
	e.hasEstimate = true

	// Most severe classification wins.
	switch {
	case ttc > 0 && ttc < e.ttcCriticalThreshold:
		return []*models.Alert{models.NewAlert(
			snapshot.VehicleID,
			RuleTimeToCollision,
			models.SeverityCritical,
			fmt.Sprintf("Collision risk imminent: %.1fs to stop", ttc),
			ttc,
			now,
		)}
	case ttc < e.ttcWarningThreshold:
		return []*models.Alert{models.NewAlert(
			snapshot.VehicleID,
			RuleTimeToCollision,
			models.SeverityWarning,
			fmt.Sprintf("Short stopping window: %.1fs to stop", ttc),
			ttc,
			now,
		)}
	default:
		return nil
	}
}

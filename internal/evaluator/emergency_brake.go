package evaluator

import (
	"fmt"
	"time"

	"github.com/tri2510/vehicle-safety-monitor/internal/models"
)

const RuleEmergencyBraking = "emergency_braking"

// EmergencyBrakeEvaluator is the low-latency emergency check. It carries
// no cooldown state at all: an emergency condition is reported on every
// tick it is true, because suppressing even one tick of an active
// emergency is unacceptable. It runs after the collision risk evaluator
// so an emergency is never masked by a cooldown-suppressed lower-severity
// rule.
type EmergencyBrakeEvaluator struct {
	emergencyBrakeThreshold      float64
	brakePedalEmergencyThreshold float64
}

func NewEmergencyBrakeEvaluator() *EmergencyBrakeEvaluator {
	return &EmergencyBrakeEvaluator{
		emergencyBrakeThreshold:      DefaultEmergencyBrakeMps2,
		brakePedalEmergencyThreshold: DefaultBrakePedalEmergencyPct,
	}
}

func (e *EmergencyBrakeEvaluator) Name() string {
	return "emergency_brake"
}

// SetThresholds overrides the deceleration (m/s²) and pedal (%) triggers.
func (e *EmergencyBrakeEvaluator) SetThresholds(deceleration, pedalPct float64) {
	e.emergencyBrakeThreshold = deceleration
	e.brakePedalEmergencyThreshold = pedalPct
}

func (e *EmergencyBrakeEvaluator) Evaluate(snapshot *models.SignalSnapshot, now time.Time) []*models.Alert {
	accel := snapshot.Acceleration()
	pedal := snapshot.BrakePedal()

	decelEmergency := accel < e.emergencyBrakeThreshold
	pedalEmergency := pedal > e.brakePedalEmergencyThreshold

	if !decelEmergency && !pedalEmergency {
		return nil
	}

	var message string
	var value float64
	switch {
	case decelEmergency && pedalEmergency:
		message = fmt.Sprintf("EMERGENCY BRAKING: deceleration %.1f m/s² with pedal at %.0f%%", accel, pedal)
		value = accel
	case decelEmergency:
		message = fmt.Sprintf("EMERGENCY BRAKING: deceleration %.1f m/s² exceeds %.1f m/s²", accel, e.emergencyBrakeThreshold)
		value = accel
	default:
		message = fmt.Sprintf("EMERGENCY BRAKING: pedal at %.0f%% exceeds %.0f%%", pedal, e.brakePedalEmergencyThreshold)
		value = pedal
	}

	return []*models.Alert{models.NewAlert(
		snapshot.VehicleID,
		RuleEmergencyBraking,
		models.SeverityEmergency,
		message,
		value,
		now,
	)}
}

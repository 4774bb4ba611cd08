package evaluator

import "time"

// Default thresholds and cooldowns for the safety rules. These are the
// production calibration; deployments can override them via env config
// but the defaults are the reference values the rules were validated
// against.
const (
	DefaultSpeedWarningMps  = 22.22 // m/s (80 km/h)
	DefaultSpeedCriticalMps = 27.78 // m/s (100 km/h)

	DefaultHardBrakingMps2    = -4.0 // m/s², deceleration stronger than this is "hard"
	DefaultEmergencyBrakeMps2 = -6.0 // m/s², deceleration stronger than this is an emergency

	DefaultBrakePedalEmergencyPct = 80.0 // percent

	DefaultTTCWarningSec  = 3.0 // seconds to stop
	DefaultTTCCriticalSec = 1.5

	// Minimal braking considered "negligible" for the compound
	// high-speed/low-braking rule.
	compoundRiskBrakePedalPct = 20.0
	compoundRiskAccelMps2     = -1.0

	DefaultWarningCooldown  = 5 * time.Second
	DefaultCriticalCooldown = 2 * time.Second
)

package models

import "time"

// SignalSnapshot holds the latest known value of each monitored vehicle
// signal at one evaluation instant. A nil field means the signal was not
// available from the databroker at that instant.
//
// Accessors substitute fail-safe defaults (0 / 0 / 0 / false) for
// unavailable signals and clamp out-of-range values, so a rule is never
// skipped because of missing or malformed data.
type SignalSnapshot struct {
	VehicleID string
	Timestamp time.Time

	SpeedMps         *float64 // meters/second, >= 0
	AccelerationMps2 *float64 // meters/second², negative = deceleration
	BrakePedalPct    *float64 // percent, [0,100]
	ABSActive        *bool
}

// Speed returns the vehicle speed in m/s, floored at 0.
func (s *SignalSnapshot) Speed() float64 {
	if s.SpeedMps == nil {
		return 0
	}
	if *s.SpeedMps < 0 {
		return 0
	}
	return *s.SpeedMps
}

// Acceleration returns the longitudinal acceleration in m/s².
func (s *SignalSnapshot) Acceleration() float64 {
	if s.AccelerationMps2 == nil {
		return 0
	}
	return *s.AccelerationMps2
}

// BrakePedal returns the brake pedal position in percent, clamped to [0,100].
func (s *SignalSnapshot) BrakePedal() float64 {
	if s.BrakePedalPct == nil {
		return 0
	}
	pct := *s.BrakePedalPct
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ABS returns whether the anti-lock braking system is currently active.
func (s *SignalSnapshot) ABS() bool {
	if s.ABSActive == nil {
		return false
	}
	return *s.ABSActive
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertSeverity indicates urgency
type AlertSeverity string

const (
	SeverityInfo        AlertSeverity = "INFO"
	SeverityWarning     AlertSeverity = "WARNING"
	SeverityCritical    AlertSeverity = "CRITICAL"
	SeverityEmergency   AlertSeverity = "EMERGENCY"
	SeveritySystemError AlertSeverity = "SYSTEM_ERROR"
)

// Alert is one classified safety event produced by the evaluation engine.
// Alerts are immutable once dispatched; Sequence is assigned by the
// dispatcher in emission order.
type Alert struct {
	ID        string        `json:"id"`
	VehicleID string        `json:"vehicle_id"`
	Rule      string        `json:"rule"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	Value     float64       `json:"value"` // signal value that triggered the rule
	Sequence  uint64        `json:"sequence"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewAlert builds an alert stamped with the caller-supplied evaluation time.
func NewAlert(vehicleID, rule string, severity AlertSeverity, message string, value float64, ts time.Time) *Alert {
	return &Alert{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		Rule:      rule,
		Severity:  severity,
		Message:   message,
		Value:     value,
		Timestamp: ts,
	}
}

package evaluator

import (
	"time"

	"github.com/tri2510/vehicle-safety-monitor/internal/models"
)

// Evaluator inspects one signal snapshot and emits zero or more alerts.
// Evaluators may hold per-rule state (cooldown clocks, last estimates) and
// are not safe for concurrent use; the engine guarantees one tick at a time.
type Evaluator interface {
	Name() string
	Evaluate(snapshot *models.SignalSnapshot, now time.Time) []*models.Alert
}

package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/tri2510/vehicle-safety-monitor/internal/evaluator"
	"github.com/tri2510/vehicle-safety-monitor/internal/models"
)

// Engine runs the registered evaluators over each signal snapshot, in
// registration order. One snapshot enters, every evaluator sees it, and
// the combined alert batch is returned for dispatch.
//
// The engine is single-writer: evaluators mutate their own state
// (cooldown clocks, last TTC) without locking, so callers must never run
// two ticks concurrently. The hosting loop serializes delivery.
type Engine struct {
	evaluators []evaluator.Evaluator
}

func NewEngine() *Engine {
	return &Engine{
		evaluators: make([]evaluator.Evaluator, 0),
	}
}

// RegisterEvaluator appends an evaluator. Registration order is
// evaluation order, and the ordering is load-bearing: the emergency
// check must run after collision risk so a cooldown-suppressed tier
// never masks an emergency, and TTC runs last.
func (e *Engine) RegisterEvaluator(ev evaluator.Evaluator) {
	e.evaluators = append(e.evaluators, ev)
	log.Printf("Registered evaluator: %s", ev.Name())
}

// GetRegisteredEvaluators returns the names of registered evaluators in order.
func (e *Engine) GetRegisteredEvaluators() []string {
	names := make([]string, len(e.evaluators))
	for i, ev := range e.evaluators {
		names[i] = ev.Name()
	}
	return names
}

// Evaluate runs one tick. Any panic inside an evaluator is caught at the
// tick boundary and converted into a SYSTEM_ERROR alert rather than
// propagated: a safety core must never stop evaluating because of one
// bad tick. Alerts collected before the failure are preserved.
func (e *Engine) Evaluate(snapshot *models.SignalSnapshot, now time.Time) (alerts []*models.Alert) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Evaluation tick failed for vehicle %s: %v", snapshot.VehicleID, r)
			alerts = append(alerts, models.NewAlert(
				snapshot.VehicleID,
				"engine_failure",
				models.SeveritySystemError,
				fmt.Sprintf("evaluation failed: %v", r),
				0,
				now,
			))
		}
	}()

	for _, ev := range e.evaluators {
		alerts = append(alerts, ev.Evaluate(snapshot, now)...)
	}

	return alerts
}

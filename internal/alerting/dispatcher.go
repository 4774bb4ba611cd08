package alerting

import (
	"fmt"
	"log"
	"time"

	"github.com/tri2510/vehicle-safety-monitor/internal/metrics"
	"github.com/tri2510/vehicle-safety-monitor/internal/models"
)

// AlertSink is the delivery capability the dispatcher forwards into.
// Publish failures are the sink's to describe and the dispatcher's to
// surface; the dispatcher never retries.
type AlertSink interface {
	Publish(alert *models.Alert) error
}

// Counters are the process-lifetime running totals per severity class,
// incremented exactly once per dispatched alert. Single-writer: only the
// evaluation loop touches them.
type Counters struct {
	Info        uint64
	Warning     uint64
	Critical    uint64
	Emergency   uint64
	SystemError uint64
}

// Dispatcher sequences the alerts produced in one tick and forwards them,
// in emission order, to the sink. It performs no suppression of its own;
// deduplication and cooldowns belong to the evaluators that produced the
// alert.
//
// Delivery is fail-open: a sink failure is surfaced as a best-effort
// SYSTEM_ERROR alert and processing continues. Losing the ability to
// report a risk is never confused with losing the risk itself.
type Dispatcher struct {
	sink     AlertSink
	archive  chan<- *models.Alert
	counters Counters
	sequence uint64
	metrics  *metrics.Metrics
}

// NewDispatcher wires a dispatcher to its sink. The archive channel is
// optional; dispatched alerts are offered to it non-blocking for
// persistence, and dropped with a counter bump when it is full.
func NewDispatcher(sink AlertSink, archive chan<- *models.Alert, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		sink:    sink,
		archive: archive,
		metrics: m,
	}
}

// Dispatch forwards one tick's alert batch in emission order.
func (d *Dispatcher) Dispatch(alerts []*models.Alert) {
	for _, alert := range alerts {
		d.forward(alert)
	}
}

func (d *Dispatcher) forward(alert *models.Alert) {
	d.sequence++
	alert.Sequence = d.sequence
	d.count(alert.Severity)

	log.Printf("Alert [%s] %s - %s", alert.Severity, alert.Rule, alert.Message)

	if d.sink != nil {
		if err := d.sink.Publish(alert); err != nil {
			log.Printf("Alert publish failed: %v", err)
			d.metrics.SinkErrors.Inc()
			d.surfaceDeliveryFailure(alert, err)
		}
	}

	if d.archive != nil {
		select {
		case d.archive <- alert:
		default:
			d.metrics.ChannelDrops.WithLabelValues("alert_archive").Inc()
		}
	}
}

// surfaceDeliveryFailure emits a SYSTEM_ERROR describing the failed
// publish. Best effort only: if the sink is down this publish fails too,
// and the error stops here.
func (d *Dispatcher) surfaceDeliveryFailure(failed *models.Alert, cause error) {
	d.sequence++
	sysErr := models.NewAlert(
		failed.VehicleID,
		"alert_delivery",
		models.SeveritySystemError,
		fmt.Sprintf("failed to deliver %s alert: %v", failed.Severity, cause),
		0,
		time.Now(),
	)
	sysErr.Sequence = d.sequence
	d.count(models.SeveritySystemError)

	if err := d.sink.Publish(sysErr); err != nil {
		log.Printf("SYSTEM_ERROR alert also undeliverable: %v", err)
	}

	if d.archive != nil {
		select {
		case d.archive <- sysErr:
		default:
			d.metrics.ChannelDrops.WithLabelValues("alert_archive").Inc()
		}
	}
}

func (d *Dispatcher) count(severity models.AlertSeverity) {
	switch severity {
	case models.SeverityInfo:
		d.counters.Info++
	case models.SeverityWarning:
		d.counters.Warning++
	case models.SeverityCritical:
		d.counters.Critical++
	case models.SeverityEmergency:
		d.counters.Emergency++
	case models.SeveritySystemError:
		d.counters.SystemError++
	}
	d.metrics.AlertsTotal.WithLabelValues(string(severity)).Inc()
}

// Counters returns a copy of the running per-severity totals.
func (d *Dispatcher) Counters() Counters {
	return d.counters
}

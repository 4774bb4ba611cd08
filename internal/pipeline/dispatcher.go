package pipeline

import (
	"github.com/tri2510/vehicle-safety-monitor/internal/metrics"
	"github.com/tri2510/vehicle-safety-monitor/internal/models"
)

// StateUpdate pairs a snapshot with the last-known time-to-collision
// estimate at the end of its tick.
type StateUpdate struct {
	Snapshot   *models.SignalSnapshot
	TTCSeconds *float64
}

// Dispatcher fans each evaluated snapshot into the persistence channels.
// Sends never block the evaluation loop: a full channel drops the message
// and bumps a counter. Persistence is best effort; evaluation is not.
//
// A channel size of zero disables that channel: when no writer exists to
// drain it, snapshots are neither buffered nor counted as drops.
type Dispatcher struct {
	DBChan    chan *models.SignalSnapshot
	StateChan chan *StateUpdate

	metrics *metrics.Metrics
}

func NewDispatcher(dbSize, stateSize int, m *metrics.Metrics) *Dispatcher {
	d := &Dispatcher{metrics: m}
	if dbSize > 0 {
		d.DBChan = make(chan *models.SignalSnapshot, dbSize)
	}
	if stateSize > 0 {
		d.StateChan = make(chan *StateUpdate, stateSize)
	}
	return d
}

func (d *Dispatcher) Dispatch(update *StateUpdate) {
	if d.DBChan != nil {
		select {
		case d.DBChan <- update.Snapshot:
		default:
			d.metrics.ChannelDrops.WithLabelValues("db").Inc()
		}
	}

	if d.StateChan != nil {
		select {
		case d.StateChan <- update:
		default:
			d.metrics.ChannelDrops.WithLabelValues("state").Inc()
		}
	}
}

// Close closes the persistence channels so the writers drain and exit.
func (d *Dispatcher) Close() {
	if d.DBChan != nil {
		close(d.DBChan)
	}
	if d.StateChan != nil {
		close(d.StateChan)
	}
}

package pipeline

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tri2510/vehicle-safety-monitor/internal/metrics"
	"github.com/tri2510/vehicle-safety-monitor/internal/models"
)

func f64(v float64) *float64 { return &v }

func update(vehicleID string) *StateUpdate {
	return &StateUpdate{
		Snapshot: &models.SignalSnapshot{
			VehicleID: vehicleID,
			Timestamp: time.Now(),
			SpeedMps:  f64(10),
		},
	}
}

func TestDispatcher_DisabledChannelsNeverCountDrops(t *testing.T) {
	m := metrics.NewMetrics(nil)
	d := NewDispatcher(0, 0, m)

	// Persistence disabled: no writer exists, so nothing buffers and
	// nothing is reported dropped on a healthy instance.
	for i := 0; i < 100; i++ {
		d.Dispatch(update("test-vehicle"))
	}

	assert.Nil(t, d.DBChan)
	assert.Nil(t, d.StateChan)
	assert.Zero(t, testutil.ToFloat64(m.ChannelDrops.WithLabelValues("db")))
	assert.Zero(t, testutil.ToFloat64(m.ChannelDrops.WithLabelValues("state")))

	d.Close()
}

func TestDispatcher_SingleWriterGetsOnlyItsChannel(t *testing.T) {
	m := metrics.NewMetrics(nil)
	d := NewDispatcher(4, 0, m)

	d.Dispatch(update("test-vehicle"))

	assert.Len(t, d.DBChan, 1)
	assert.Nil(t, d.StateChan)
	assert.Zero(t, testutil.ToFloat64(m.ChannelDrops.WithLabelValues("state")))
}

func TestDispatcher_FullChannelDropsAndCounts(t *testing.T) {
	m := metrics.NewMetrics(nil)
	d := NewDispatcher(1, 1, m)

	d.Dispatch(update("first"))
	d.Dispatch(update("second"))

	require.Len(t, d.DBChan, 1)
	require.Len(t, d.StateChan, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChannelDrops.WithLabelValues("db")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChannelDrops.WithLabelValues("state")))

	// The buffered snapshot is the one that arrived first.
	got := <-d.DBChan
	assert.Equal(t, "first", got.VehicleID)
}

package alerting

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tri2510/vehicle-safety-monitor/internal/metrics"
	"github.com/tri2510/vehicle-safety-monitor/internal/models"
)

type recordingSink struct {
	published []*models.Alert
	failNext  bool
	failAll   bool
}

func (s *recordingSink) Publish(alert *models.Alert) error {
	if s.failAll || s.failNext {
		s.failNext = false
		return errors.New("broker unreachable")
	}
	s.published = append(s.published, alert)
	return nil
}

func alert(severity models.AlertSeverity) *models.Alert {
	return models.NewAlert("test-vehicle", "test_rule", severity, "test", 1.0, time.Now())
}

func TestDispatcher_CountsPerSeverity(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, nil, metrics.NewMetrics(nil))

	d.Dispatch([]*models.Alert{
		alert(models.SeverityInfo),
		alert(models.SeverityWarning),
		alert(models.SeverityCritical),
		alert(models.SeverityEmergency),
		alert(models.SeverityEmergency),
	})

	counters := d.Counters()
	assert.Equal(t, uint64(1), counters.Info)
	assert.Equal(t, uint64(1), counters.Warning)
	assert.Equal(t, uint64(1), counters.Critical)
	assert.Equal(t, uint64(2), counters.Emergency)
	assert.Equal(t, uint64(0), counters.SystemError)
}

func TestDispatcher_ForwardsInEmissionOrder(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, nil, metrics.NewMetrics(nil))

	batch := []*models.Alert{
		alert(models.SeverityCritical),
		alert(models.SeverityInfo),
		alert(models.SeverityEmergency),
	}
	d.Dispatch(batch)

	require.Len(t, sink.published, 3)
	for i, a := range sink.published {
		assert.Same(t, batch[i], a, "order must be preserved")
		assert.Equal(t, uint64(i+1), a.Sequence)
	}
}

func TestDispatcher_SequenceIsMonotonicAcrossTicks(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, nil, metrics.NewMetrics(nil))

	d.Dispatch([]*models.Alert{alert(models.SeverityInfo)})
	d.Dispatch([]*models.Alert{alert(models.SeverityInfo)})

	require.Len(t, sink.published, 2)
	assert.Equal(t, uint64(1), sink.published[0].Sequence)
	assert.Equal(t, uint64(2), sink.published[1].Sequence)
}

func TestDispatcher_SinkFailureSurfacesSystemError(t *testing.T) {
	sink := &recordingSink{failNext: true}
	d := NewDispatcher(sink, nil, metrics.NewMetrics(nil))

	d.Dispatch([]*models.Alert{alert(models.SeverityCritical)})

	// The failed critical alert is still counted; the follow-up
	// SYSTEM_ERROR got through on the recovered sink.
	counters := d.Counters()
	assert.Equal(t, uint64(1), counters.Critical)
	assert.Equal(t, uint64(1), counters.SystemError)

	require.Len(t, sink.published, 1)
	assert.Equal(t, models.SeveritySystemError, sink.published[0].Severity)
	assert.Contains(t, sink.published[0].Message, "broker unreachable")
}

func TestDispatcher_SystemErrorStampedWithEmissionTime(t *testing.T) {
	sink := &recordingSink{failNext: true}
	d := NewDispatcher(sink, nil, metrics.NewMetrics(nil))

	// The failed alert carries an old evaluation time; the SYSTEM_ERROR
	// reporting the failure is a new emission and gets its own timestamp.
	stale := models.NewAlert("test-vehicle", "test_rule", models.SeverityCritical, "test", 1.0,
		time.Now().Add(-time.Hour))
	d.Dispatch([]*models.Alert{stale})

	require.Len(t, sink.published, 1)
	sysErr := sink.published[0]
	require.Equal(t, models.SeveritySystemError, sysErr.Severity)
	assert.WithinDuration(t, time.Now(), sysErr.Timestamp, time.Second)
}

func TestDispatcher_TotalSinkOutageDoesNotBlockNextTick(t *testing.T) {
	sink := &recordingSink{failAll: true}
	d := NewDispatcher(sink, nil, metrics.NewMetrics(nil))

	d.Dispatch([]*models.Alert{alert(models.SeverityEmergency)})
	d.Dispatch([]*models.Alert{alert(models.SeverityEmergency)})

	// Nothing delivered, but both ticks processed and counted.
	counters := d.Counters()
	assert.Equal(t, uint64(2), counters.Emergency)
	assert.Equal(t, uint64(2), counters.SystemError)
	assert.Empty(t, sink.published)
}

func TestDispatcher_ArchivesDispatchedAlerts(t *testing.T) {
	sink := &recordingSink{}
	archive := make(chan *models.Alert, 4)
	d := NewDispatcher(sink, archive, metrics.NewMetrics(nil))

	d.Dispatch([]*models.Alert{alert(models.SeverityWarning), alert(models.SeverityInfo)})

	require.Len(t, archive, 2)
	first := <-archive
	assert.Equal(t, models.SeverityWarning, first.Severity)
}

func TestDispatcher_FullArchiveChannelDropsWithoutBlocking(t *testing.T) {
	sink := &recordingSink{}
	archive := make(chan *models.Alert, 1)
	d := NewDispatcher(sink, archive, metrics.NewMetrics(nil))

	d.Dispatch([]*models.Alert{alert(models.SeverityInfo), alert(models.SeverityInfo)})

	// Second alert dropped from the archive, delivery unaffected.
	assert.Len(t, archive, 1)
	assert.Len(t, sink.published, 2)
}

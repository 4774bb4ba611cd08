package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/tri2510/vehicle-safety-monitor/internal/metrics"
	"github.com/tri2510/vehicle-safety-monitor/internal/models"
	"github.com/tri2510/vehicle-safety-monitor/internal/store"
)

// DBWriter batches snapshots into the signal history table.
type DBWriter struct {
	ch        <-chan *models.SignalSnapshot
	db        *store.TimescaleStore
	batchSize int
	flushMS   int
	metrics   *metrics.Metrics
}

func NewDBWriter(
	ch <-chan *models.SignalSnapshot,
	db *store.TimescaleStore,
	batchSize int,
	flushMS int,
	m *metrics.Metrics,
) *DBWriter {
	return &DBWriter{
		ch:        ch,
		db:        db,
		batchSize: batchSize,
		flushMS:   flushMS,
		metrics:   m,
	}
}

func (w *DBWriter) Run(ctx context.Context) {
	batch := make([]*models.SignalSnapshot, 0, w.batchSize)
	ticker := time.NewTicker(time.Duration(w.flushMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-w.ch:
			if !ok {
				if len(batch) > 0 {
					w.flush(ctx, batch)
				}
				return
			}
			batch = append(batch, snap)
			if len(batch) >= w.batchSize {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			if len(batch) > 0 {
				w.flush(ctx, batch)
			}
			return
		}
	}
}

func (w *DBWriter) flush(ctx context.Context, batch []*models.SignalSnapshot) {
	err := w.db.BatchInsert(ctx, batch)
	if err != nil {
		log.Printf("DB write failed (batch=%d), retrying: %v", len(batch), err)
		time.Sleep(500 * time.Millisecond)
		err = w.db.BatchInsert(ctx, batch)
		if err != nil {
			log.Printf("DB write permanently failed (batch=%d): %v", len(batch), err)
			w.metrics.DBWriteFailures.Add(float64(len(batch)))
			return
		}
	}
}

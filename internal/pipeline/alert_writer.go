package pipeline

import (
	"context"
	"log"

	"github.com/tri2510/vehicle-safety-monitor/internal/models"
	"github.com/tri2510/vehicle-safety-monitor/internal/store"
)

// AlertWriter archives dispatched alerts to Postgres and fans them out
// on Redis pub/sub for dashboard subscribers. Archival failures are
// logged and skipped; the alert has already been delivered to the sink
// by the time it reaches this writer.
type AlertWriter struct {
	ch    <-chan *models.Alert
	db    *store.TimescaleStore
	redis *store.RedisStore
}

func NewAlertWriter(ch <-chan *models.Alert, db *store.TimescaleStore, redis *store.RedisStore) *AlertWriter {
	return &AlertWriter{ch: ch, db: db, redis: redis}
}

func (w *AlertWriter) Run(ctx context.Context) {
	for {
		select {
		case alert, ok := <-w.ch:
			if !ok {
				return
			}
			w.archive(ctx, alert)

		case <-ctx.Done():
			return
		}
	}
}

func (w *AlertWriter) archive(ctx context.Context, alert *models.Alert) {
	if w.db != nil {
		if err := w.db.InsertAlert(ctx, alert); err != nil {
			log.Printf("Alert insert failed for %s: %v", alert.VehicleID, err)
		}
	}

	if w.redis != nil {
		if err := w.redis.PublishAlert(ctx, alert); err != nil {
			log.Printf("Alert fan-out failed for %s: %v", alert.VehicleID, err)
		}
	}
}

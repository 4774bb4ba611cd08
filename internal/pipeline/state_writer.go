package pipeline

import (
	"context"
	"log"

	"github.com/tri2510/vehicle-safety-monitor/internal/store"
)

// StateWriter keeps the live per-vehicle state hash in Redis current.
type StateWriter struct {
	ch    <-chan *StateUpdate
	redis *store.RedisStore
}

func NewStateWriter(ch <-chan *StateUpdate, redis *store.RedisStore) *StateWriter {
	return &StateWriter{ch: ch, redis: redis}
}

func (w *StateWriter) Run(ctx context.Context) {
	for {
		select {
		case update, ok := <-w.ch:
			if !ok {
				return
			}
			if err := w.redis.UpdateVehicleState(ctx, update.Snapshot, update.TTCSeconds); err != nil {
				log.Printf("Redis state update failed for %s: %v", update.Snapshot.VehicleID, err)
			}

		case <-ctx.Done():
			return
		}
	}
}

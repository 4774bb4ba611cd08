package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tri2510/vehicle-safety-monitor/internal/models"
)

// RedisStore keeps the live per-vehicle state hash for dashboards and
// fans dispatched alerts out on pub/sub.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// UpdateVehicleState refreshes the live state hash and publishes the
// update for dashboard subscribers. ttcSeconds is the last-known
// time-to-collision estimate; it outlives momentary signal gaps, so it
// is written even on ticks where the estimate was not recomputed.
func (r *RedisStore) UpdateVehicleState(ctx context.Context, snap *models.SignalSnapshot, ttcSeconds *float64) error {
	stateData := map[string]interface{}{
		"vehicle_id": snap.VehicleID,
		"speed_mps":  snap.Speed(),
		"accel_mps2": snap.Acceleration(),
		"brake_pct":  snap.BrakePedal(),
		"abs_active": snap.ABS(),
		"timestamp":  snap.Timestamp.Unix(),
	}
	if ttcSeconds != nil {
		stateData["ttc_seconds"] = *ttcSeconds
	}

	pubPayload, err := json.Marshal(stateData)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	stateKey := fmt.Sprintf("vehicle:%s:state", snap.VehicleID)
	pubChannel := fmt.Sprintf("vehicle:%s:telemetry", snap.VehicleID)

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, stateKey, stateData)
	pipe.Expire(ctx, stateKey, 30*time.Second)
	pipe.Publish(ctx, pubChannel, pubPayload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}

	return nil
}

// PublishAlert fans one alert out to the vehicle's alert channel.
func (r *RedisStore) PublishAlert(ctx context.Context, alert *models.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	channel := fmt.Sprintf("vehicle:%s:alerts", alert.VehicleID)
	return r.client.Publish(ctx, channel, payload).Err()
}

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tri2510/vehicle-safety-monitor/internal/models"
)

// TimescaleStore persists raw telemetry and the alert history.
type TimescaleStore struct {
	pool *pgxpool.Pool
}

func NewTimescaleStore(ctx context.Context, connStr string) (*TimescaleStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &TimescaleStore{pool: pool}, nil
}

func (s *TimescaleStore) Close() {
	s.pool.Close()
}

func (s *TimescaleStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var telemetryColumns = []string{
	"time",
	"vehicle_id",
	"speed_mps",
	"acceleration_mps2",
	"brake_pedal_pct",
	"abs_active",
}

// BatchInsert writes a batch of snapshots with CopyFrom. Unavailable
// signals stay NULL in storage; the fail-safe substitution happens only
// at evaluation time, never in the historical record.
func (s *TimescaleStore) BatchInsert(ctx context.Context, snapshots []*models.SignalSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(snapshots))
	for i, snap := range snapshots {
		rows[i] = []interface{}{
			snap.Timestamp,
			snap.VehicleID,
			snap.SpeedMps,
			snap.AccelerationMps2,
			snap.BrakePedalPct,
			snap.ABSActive,
		}
	}

	_, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"vehicle_signals"},
		telemetryColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("CopyFrom failed for batch of %d: %w", len(snapshots), err)
	}

	return nil
}

// InsertAlert appends one dispatched alert to the history table.
func (s *TimescaleStore) InsertAlert(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO vehicle_alerts
			(id, vehicle_id, rule, severity, message, trigger_value, sequence, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
	`
	_, err := s.pool.Exec(
		ctx,
		query,
		alert.ID,
		alert.VehicleID,
		alert.Rule,
		string(alert.Severity),
		alert.Message,
		alert.Value,
		alert.Sequence,
		alert.Timestamp,
	)
	return err
}

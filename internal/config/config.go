package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/tri2510/vehicle-safety-monitor/internal/evaluator"
)

// Config holds all configuration for the safety monitor service.
type Config struct {
	// Broker
	NatsURL          string
	TelemetrySubject string
	AlertSubject     string

	// HTTP
	HealthPort string

	// TimescaleDB (optional - empty URL disables signal/alert persistence)
	DatabaseURL string

	// Redis (optional - empty addr disables live state and alert fan-out)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Pipeline tuning
	SnapshotBufferSize int
	DBChannelSize      int
	StateChannelSize   int
	AlertChannelSize   int
	DBBatchSize        int
	DBFlushIntervalMS  int

	// Safety rule thresholds
	Thresholds SafetyThresholds
}

// SafetyThresholds contains the configurable rule thresholds. Defaults
// are the production calibration from the evaluator package; env
// overrides exist for test rigs and track calibration, not for normal
// deployments.
type SafetyThresholds struct {
	SpeedWarningMps  float64 // m/s
	SpeedCriticalMps float64 // m/s

	HardBrakingMps2    float64 // m/s², negative
	EmergencyBrakeMps2 float64 // m/s², negative

	BrakePedalEmergencyPct float64 // percent

	TTCWarningSec  float64 // seconds
	TTCCriticalSec float64 // seconds

	WarningCooldown  time.Duration
	CriticalCooldown time.Duration
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	envPaths := []string{
		".env",
		"../.env",
		"/app/.env", // Docker
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Loaded config from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Printf("No .env file found, using environment variables")
	}

	config := &Config{
		NatsURL:          getEnvOrDefault("NATS_URL", "nats://localhost:4222"),
		TelemetrySubject: getEnvOrDefault("TELEMETRY_SUBJECT", "vehicle.telemetry.*"),
		AlertSubject:     getEnvOrDefault("ALERT_SUBJECT", "vehicle.alerts"),
		HealthPort:       getEnvOrDefault("HEALTH_PORT", "8081"),

		DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),

		RedisAddr:     getEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       parseIntOrDefault("REDIS_DB", 0),

		SnapshotBufferSize: parseIntOrDefault("SNAPSHOT_BUFFER_SIZE", 64),
		DBChannelSize:      parseIntOrDefault("DB_CHANNEL_SIZE", 10000),
		StateChannelSize:   parseIntOrDefault("STATE_CHANNEL_SIZE", 10000),
		AlertChannelSize:   parseIntOrDefault("ALERT_CHANNEL_SIZE", 1000),
		DBBatchSize:        parseIntOrDefault("DB_BATCH_SIZE", 500),
		DBFlushIntervalMS:  parseIntOrDefault("DB_FLUSH_INTERVAL_MS", 100),

		Thresholds: SafetyThresholds{
			SpeedWarningMps:  parseFloatOrDefault("THRESHOLD_SPEED_WARNING_MPS", evaluator.DefaultSpeedWarningMps),
			SpeedCriticalMps: parseFloatOrDefault("THRESHOLD_SPEED_CRITICAL_MPS", evaluator.DefaultSpeedCriticalMps),

			HardBrakingMps2:    parseFloatOrDefault("THRESHOLD_HARD_BRAKING_MPS2", evaluator.DefaultHardBrakingMps2),
			EmergencyBrakeMps2: parseFloatOrDefault("THRESHOLD_EMERGENCY_BRAKE_MPS2", evaluator.DefaultEmergencyBrakeMps2),

			BrakePedalEmergencyPct: parseFloatOrDefault("THRESHOLD_BRAKE_PEDAL_EMERGENCY_PCT", evaluator.DefaultBrakePedalEmergencyPct),

			TTCWarningSec:  parseFloatOrDefault("THRESHOLD_TTC_WARNING_SEC", evaluator.DefaultTTCWarningSec),
			TTCCriticalSec: parseFloatOrDefault("THRESHOLD_TTC_CRITICAL_SEC", evaluator.DefaultTTCCriticalSec),

			WarningCooldown:  parseDurationOrDefault("WARNING_COOLDOWN_MS", evaluator.DefaultWarningCooldown),
			CriticalCooldown: parseDurationOrDefault("CRITICAL_COOLDOWN_MS", evaluator.DefaultCriticalCooldown),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that required configuration is present and the
// thresholds are internally consistent.
func (c *Config) Validate() error {
	if c.NatsURL == "" {
		return fmt.Errorf("NATS_URL is required")
	}

	t := c.Thresholds

	if t.SpeedWarningMps <= 0 || t.SpeedCriticalMps <= t.SpeedWarningMps {
		return fmt.Errorf("speed thresholds must satisfy 0 < warning < critical")
	}

	if t.HardBrakingMps2 >= 0 || t.EmergencyBrakeMps2 >= t.HardBrakingMps2 {
		return fmt.Errorf("braking thresholds must satisfy emergency < hard < 0")
	}

	if t.BrakePedalEmergencyPct <= 0 || t.BrakePedalEmergencyPct > 100 {
		return fmt.Errorf("BRAKE_PEDAL_EMERGENCY_PCT must be in (0, 100]")
	}

	if t.TTCCriticalSec <= 0 || t.TTCWarningSec <= t.TTCCriticalSec {
		return fmt.Errorf("TTC thresholds must satisfy 0 < critical < warning")
	}

	if t.WarningCooldown <= 0 || t.CriticalCooldown <= 0 {
		return fmt.Errorf("cooldowns must be positive")
	}

	return nil
}

// Helper functions
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		var ms int
		if _, err := fmt.Sscanf(value, "%d", &ms); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

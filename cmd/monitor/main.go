package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tri2510/vehicle-safety-monitor/internal/config"
	"github.com/tri2510/vehicle-safety-monitor/internal/health"
	"github.com/tri2510/vehicle-safety-monitor/internal/orchestrator"
)

func main() {
	log.Printf("Vehicle Safety Monitor starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Configuration loaded")
	log.Printf("  NATS URL: %s", cfg.NatsURL)
	log.Printf("  Telemetry subject: %s", cfg.TelemetrySubject)
	log.Printf("  Alert subject: %s", cfg.AlertSubject)

	orch := orchestrator.NewOrchestrator(cfg)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Listen for shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start orchestrator: %v", err)
	}

	health.StartHealthCheckServer(cfg.HealthPort, orch.Registry())

	go func() {
		if err := orch.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Orchestrator error: %v", err)
		}
	}()

	// Block until shutdown signal
	<-sigChan
	log.Printf("Shutdown signal received...")

	cancel()

	if err := orch.Stop(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Printf("Safety monitor stopped successfully")
}

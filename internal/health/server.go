package health

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var startTime time.Time

func init() {
	startTime = time.Now()
}

type HealthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     int64  `json:"timestamp"`
}

// StartHealthCheckServer serves /health and /metrics in the background.
func StartHealthCheckServer(port string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.Printf("Health check listening on : %s", port)

	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			log.Fatalf("Health server failed: %v", err)
		}
	}()
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response := &HealthResponse{
		Status:        "healthy",
		Service:       "safety-monitor",
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		Timestamp:     time.Now().Unix(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

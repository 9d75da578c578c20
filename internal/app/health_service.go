package app

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/config"
	"github.com/dokzlo13/triggerd/internal/webhook"
)

// Readiness reports whether the engine accepts events.
type Readiness interface {
	Initialized() bool
}

// BusStats reports event bus delivery state.
type BusStats interface {
	Subscribers() []string
	Pending() int
}

type readyStatus struct {
	Status      string   `json:"status"`
	Subscribers []string `json:"subscribers"`
	Pending     int      `json:"pending"`
}

// HealthService provides HTTP health check endpoints.
type HealthService struct {
	cfg   *config.Config
	ready Readiness
	bus   BusStats
}

// NewHealthService creates a new HealthService.
func NewHealthService(cfg *config.Config, ready Readiness, bus BusStats) *HealthService {
	return &HealthService{
		cfg:   cfg,
		ready: ready,
		bus:   bus,
	}
}

// Start begins the health check server if enabled.
func (s *HealthService) Start(ctx context.Context) {
	if !s.cfg.Healthcheck.Enabled {
		return
	}

	go s.run(ctx)
}

// Handler returns the health mux.
func (s *HealthService) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Ready once devices are loaded
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		status := readyStatus{Status: "ready", Subscribers: s.bus.Subscribers(), Pending: s.bus.Pending()}
		code := http.StatusOK
		if !s.ready.Initialized() {
			status.Status = "loading"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	})

	mux.HandleFunc("/metrics", writeMetrics)

	return mux
}

func (s *HealthService) run(ctx context.Context) {
	server := webhook.NewServer("health", s.cfg.Healthcheck.Host, s.cfg.Healthcheck.Port, s.Handler())
	if err := server.Run(ctx, s.cfg.GetShutdownTimeout()); err != nil {
		log.Error().Err(err).Msg("Health check server error")
	}
}

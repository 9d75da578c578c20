package app

import (
	"context"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/api"
	"github.com/dokzlo13/triggerd/internal/config"
	"github.com/dokzlo13/triggerd/internal/webhook"
)

// HTTPService serves the camera webhooks, the manual API and metrics on one port.
type HTTPService struct {
	cfg     *config.Config
	handler http.Handler
	server  *webhook.Server
}

// NewHTTPService creates a new HTTPService.
func NewHTTPService(cfg *config.Config, engine webhook.Handler, apiServer *api.Server) *HTTPService {
	handler := NewRouter(engine, apiServer)
	return &HTTPService{
		cfg:     cfg,
		handler: handler,
		server:  webhook.NewServer("http", cfg.HTTP.Host, cfg.HTTP.Port, handler),
	}
}

// Handler returns the root router.
func (s *HTTPService) Handler() http.Handler {
	return s.handler
}

// NewRouter mounts the API under /api/v1 and the webhooks at the root.
func NewRouter(engine webhook.Handler, apiServer *api.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	})
	r.Get("/metrics", writeMetrics)
	r.Mount("/api/v1", apiServer.Routes())

	webhook.Register(r, engine)
	return r
}

func writeMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w, true)
}

// Start begins the HTTP server if enabled.
func (s *HTTPService) Start(ctx context.Context) {
	if !s.cfg.HTTP.Enabled {
		log.Debug().Msg("HTTP server disabled")
		return
	}

	go func() {
		if err := s.server.Run(ctx, s.cfg.GetShutdownTimeout()); err != nil {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()
}

// Package api serves the manual trigger API, settings, event history and the live event stream.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dokzlo13/triggerd/internal/accessory"
	"github.com/dokzlo13/triggerd/internal/debounce"
	"github.com/dokzlo13/triggerd/internal/ledger"
)

// Engine is the part of the debounce engine the API drives.
type Engine interface {
	Trigger(ctx context.Context, kind debounce.Kind, name string, active bool) debounce.Result
	Motion() *debounce.MotionDebouncer
	Doorbell() *debounce.DoorbellDebouncer
}

// SettingsStore reads and writes the general settings.
type SettingsStore interface {
	GeneralSettings(ctx context.Context) (debounce.GeneralSettings, error)
	SetGeneralSettings(ctx context.Context, gs debounce.GeneralSettings) error
}

// EventLister lists recorded events.
type EventLister interface {
	Recent(ctx context.Context, limit int) ([]*ledger.Entry, error)
	ByDevice(ctx context.Context, device string, limit int) ([]*ledger.Entry, error)
}

// Config holds the API dependencies.
type Config struct {
	Engine    Engine
	Settings  SettingsStore
	Events    EventLister
	Devices   *accessory.Directory
	Hub       *Hub
	JWTSecret string
}

// Server implements the /api/v1 routes.
type Server struct {
	engine    Engine
	settings  SettingsStore
	events    EventLister
	devices   *accessory.Directory
	hub       *Hub
	jwtSecret string
}

// New creates the API server.
func New(cfg Config) *Server {
	return &Server{
		engine:    cfg.Engine,
		settings:  cfg.Settings,
		events:    cfg.Events,
		devices:   cfg.Devices,
		hub:       cfg.Hub,
		jwtSecret: cfg.JWTSecret,
	}
}

// Routes returns the router to mount under /api/v1.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/trigger/{kind}/{name}", s.handleTrigger)

		r.Get("/settings/general", s.handleGetSettings)
		r.Put("/settings/general", s.handlePutSettings)

		r.Get("/events", s.handleListEvents)
		r.Get("/devices", s.handleListDevices)
		r.Get("/devices/{name}", s.handleGetDevice)

		if s.hub != nil {
			r.Get("/ws", s.hub.ServeHTTP)
		}
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}

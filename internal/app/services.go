package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/accessory"
	"github.com/dokzlo13/triggerd/internal/api"
	"github.com/dokzlo13/triggerd/internal/config"
	"github.com/dokzlo13/triggerd/internal/db"
	"github.com/dokzlo13/triggerd/internal/debounce"
	"github.com/dokzlo13/triggerd/internal/eventbus"
	"github.com/dokzlo13/triggerd/internal/influx"
	"github.com/dokzlo13/triggerd/internal/ledger"
	"github.com/dokzlo13/triggerd/internal/recorder"
	"github.com/dokzlo13/triggerd/internal/settings"
	"github.com/dokzlo13/triggerd/internal/storage"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB       *db.DB
	Store    *storage.Store
	Settings *settings.Store
	Ledger   *ledger.Ledger
	Bus      *eventbus.Bus
	Recorder *recorder.Recorder

	// Devices and the engine that drives them
	Devices *accessory.Directory
	Engine  *debounce.Engine

	// Optional sinks
	Hub    *api.Hub
	Influx *influx.Client

	// High-level services
	HTTP      *HTTPService
	Health    *HealthService
	HomeKit   *HomeKitService
	MQTT      *MQTTService
	GPIO      *GPIOService
	Hooks     *HooksService
	Retention *RetentionService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Store = storage.NewStore(database.DB)
	s.Settings = settings.New(s.Store)
	s.Ledger = ledger.New(database.DB)

	// Recorded events fan out to sinks through the bus
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())
	s.Recorder = recorder.New(s.Bus)

	s.Devices, err = accessory.NewDirectory(cfg.Devices)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Engine = debounce.New(s.Settings, s.Recorder, debounce.WithPulseDelay(cfg.Engine.PulseDelay.Duration()))

	s.Hub = api.NewHub()

	if cfg.InfluxDB.Enabled {
		s.Influx, err = influx.Connect(cfg.InfluxDB)
		if err != nil {
			s.Close()
			return nil, err
		}
	}

	s.Hooks, err = NewHooksService(cfg, s.Engine, s.Settings, s.Store)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.MQTT = NewMQTTService(cfg, s.Engine)
	s.GPIO = NewGPIOService(cfg, s.Engine)
	s.HomeKit = NewHomeKitService(cfg, s.Devices)
	s.Retention = NewRetentionService(cfg, s.Ledger)
	s.Health = NewHealthService(cfg, s.Engine, s.Bus)
	s.HTTP = NewHTTPService(cfg, s.Engine, api.New(api.Config{
		Engine:    s.Engine,
		Settings:  s.Settings,
		Events:    s.Ledger,
		Devices:   s.Devices,
		Hub:       s.Hub,
		JWTSecret: cfg.HTTP.JWTSecret,
	}))

	return s, nil
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a fatal error occurs (e.g., the HomeKit server fails).
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	if err := s.Settings.Seed(ctx, s.configSettings()); err != nil {
		return err
	}

	// MQTT connects before sinks are attached so the publisher has a client
	if err := s.MQTT.Connect(); err != nil {
		return err
	}

	s.Recorder.Attach(ctx, s.sinks()...)

	// Devices are ready: open the engine to ingress
	s.Engine.FinishLoading(s.Devices)
	s.Devices.BindTriggers(s.Engine)
	log.Info().Int("devices", len(s.Devices.Cameras())).Msg("Devices loaded")

	s.Hooks.Start(ctx)
	if err := s.MQTT.Start(ctx); err != nil {
		return err
	}
	if err := s.GPIO.Start(ctx); err != nil {
		return err
	}
	s.HomeKit.Start(ctx, onFatalError)
	s.Retention.Start(ctx)
	s.Health.Start(ctx)
	s.HTTP.Start(ctx)

	return nil
}

func (s *Services) sinks() []recorder.Sink {
	sinks := []recorder.Sink{recorder.NewLedgerSink(s.Ledger), s.Hub}
	if pub := s.MQTT.Publisher(); pub != nil {
		sinks = append(sinks, pub)
	}
	if s.Influx != nil {
		sinks = append(sinks, s.Influx)
	}
	if sink := s.Hooks.Sink(); sink != nil {
		sinks = append(sinks, sink)
	}
	return sinks
}

// ResetSettings overwrites the stored general settings with the configured ones.
func (s *Services) ResetSettings(ctx context.Context) error {
	return s.Settings.SetGeneralSettings(ctx, s.configSettings())
}

func (s *Services) configSettings() debounce.GeneralSettings {
	return debounce.GeneralSettings{AtHome: s.cfg.Settings.AtHome, Exclude: s.cfg.Settings.Exclude}
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Engine != nil {
		s.Engine.Close()
	}
	if s.GPIO != nil {
		s.GPIO.Close()
	}
	if s.MQTT != nil {
		s.MQTT.Close()
	}
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		if err := s.Bus.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("Event bus did not drain before shutdown")
		}
		cancel()
	}
	if s.Hooks != nil {
		s.Hooks.Close()
	}
	if s.Hub != nil {
		s.Hub.Close()
	}
	if s.Influx != nil {
		s.Influx.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}

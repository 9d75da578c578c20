// Package app wires triggerd's services together and runs them until shutdown.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/config"
)

// App owns the service container for one run of the daemon.
type App struct {
	cfg      *config.Config
	services *Services
}

// New opens storage and builds every service. Nothing is started yet.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, services: services}, nil
}

// Run starts all services and blocks until ctx is cancelled or a service fails fatally.
// Services are always stopped before Run returns; the fatal error, if any, is returned.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	defer func() {
		log.Info().Msg("Shutting down...")
		a.services.Stop()
	}()

	onFatalError := func(err error) {
		log.Error().Err(err).Msg("Fatal error, initiating shutdown")
		cancel(err)
	}

	if err := a.services.Start(ctx, onFatalError); err != nil {
		return err
	}
	log.Info().Int("devices", len(a.cfg.Devices)).Msg("triggerd started")

	<-ctx.Done()

	if err := context.Cause(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ResetSettings overwrites the stored general settings with the configured ones.
func (a *App) ResetSettings(ctx context.Context) error {
	return a.services.ResetSettings(ctx)
}

// Close releases resources of an App that was never run.
func (a *App) Close() {
	a.services.Close()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}

package app

import (
	"context"
	"fmt"

	"github.com/brutella/hap"
	hapaccessory "github.com/brutella/hap/accessory"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/accessory"
	"github.com/dokzlo13/triggerd/internal/config"
)

// HomeKitService publishes the cameras behind a HomeKit bridge.
type HomeKitService struct {
	cfg     *config.Config
	devices *accessory.Directory
}

// NewHomeKitService creates a new HomeKitService.
func NewHomeKitService(cfg *config.Config, devices *accessory.Directory) *HomeKitService {
	return &HomeKitService{cfg: cfg, devices: devices}
}

// Start runs the HAP server in the background if enabled.
// A server that cannot start is fatal: the cameras would be unreachable.
func (s *HomeKitService) Start(ctx context.Context, onFatalError func(error)) {
	if !s.cfg.HAP.Enabled {
		log.Debug().Msg("HomeKit bridge disabled")
		return
	}

	bridge := hapaccessory.NewBridge(hapaccessory.Info{
		Name:         s.cfg.HAP.Name,
		Manufacturer: "triggerd",
	})

	server, err := hap.NewServer(hap.NewFsStore(s.cfg.HAP.StoragePath), bridge.A, s.devices.Accessories()...)
	if err != nil {
		onFatalError(fmt.Errorf("create HomeKit server: %w", err))
		return
	}
	server.Pin = s.cfg.HAP.Pin

	log.Info().
		Str("name", s.cfg.HAP.Name).
		Int("accessories", len(s.devices.Accessories())).
		Msg("Starting HomeKit bridge")

	go func() {
		if err := server.ListenAndServe(ctx); err != nil && ctx.Err() == nil {
			onFatalError(fmt.Errorf("HomeKit server: %w", err))
		}
	}()
}

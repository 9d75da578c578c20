package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/config"
	"github.com/dokzlo13/triggerd/internal/gpio"
)

// GPIOService watches PIR lines of devices that configure a gpio_pin.
type GPIOService struct {
	cfg     *config.Config
	handler gpio.Handler
	reader  gpio.Reader
}

// NewGPIOService creates a new GPIOService.
func NewGPIOService(cfg *config.Config, handler gpio.Handler) *GPIOService {
	return &GPIOService{cfg: cfg, handler: handler}
}

// Lines returns the configured pin bindings.
func Lines(devices []config.DeviceConfig) []gpio.Line {
	var lines []gpio.Line
	for _, d := range devices {
		if d.GPIOPin != nil {
			lines = append(lines, gpio.Line{Offset: *d.GPIOPin, Device: d.Name})
		}
	}
	return lines
}

// Start requests the lines and begins polling.
func (s *GPIOService) Start(ctx context.Context) error {
	if !s.cfg.GPIO.Enabled {
		return nil
	}

	lines := Lines(s.cfg.Devices)
	if len(lines) == 0 {
		log.Warn().Msg("GPIO enabled but no device has a gpio_pin")
		return nil
	}

	offsets := make([]int, len(lines))
	for i, l := range lines {
		offsets[i] = l.Offset
	}

	reader, err := gpio.NewRealReader(s.cfg.GPIO.Chip, offsets, s.cfg.GPIO.ActiveLow)
	if err != nil {
		return err
	}
	s.reader = reader

	watcher := gpio.NewWatcher(reader, s.handler, lines, s.cfg.GPIO.Poll.Duration(), s.cfg.GPIO.Settle.Duration())
	go func() {
		if err := watcher.Run(ctx); err != nil {
			log.Error().Err(err).Msg("GPIO watcher error")
		}
	}()
	return nil
}

// Close releases the lines.
func (s *GPIOService) Close() {
	if s.reader != nil {
		if err := s.reader.Close(); err != nil {
			log.Warn().Err(err).Msg("GPIO close error")
		}
	}
}

// Command triggerd debounces camera motion and doorbell events into HomeKit accessories.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/app"
	"github.com/dokzlo13/triggerd/internal/config"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	resetSettings := flag.Bool("reset-settings", false, "Overwrite stored general settings with the configured ones before starting")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", configPath).Msg("Failed to load configuration")
	}
	configureLogger(cfg.Log)

	log.Info().Str("config", configPath).Int("devices", len(cfg.Devices)).Msg("Starting triggerd")

	application, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	ctx := app.SignalContext()

	if *resetSettings {
		if err := application.ResetSettings(ctx); err != nil {
			application.Close()
			log.Fatal().Err(err).Msg("Failed to reset general settings")
		}
	}

	if err := application.Run(ctx); err != nil {
		log.Error().Err(err).Msg("triggerd stopped with error")
		os.Exit(1)
	}
}

// configureLogger installs the global zerolog logger: JSON for log shippers, console otherwise.
func configureLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.UseJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !cfg.Colors,
		})
	}

	level, err := zerolog.ParseLevel(cfg.GetLevel())
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("level", cfg.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

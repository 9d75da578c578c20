package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/config"
	"github.com/dokzlo13/triggerd/internal/mqtt"
)

// MQTTService owns the broker connection, the ingress subscriptions and the event publisher.
type MQTTService struct {
	cfg     *config.Config
	handler mqtt.Handler
	client  *mqtt.PahoClient
}

// NewMQTTService creates a new MQTTService. Nothing connects until Connect.
func NewMQTTService(cfg *config.Config, handler mqtt.Handler) *MQTTService {
	return &MQTTService{cfg: cfg, handler: handler}
}

// Connect dials the broker if MQTT is enabled.
func (s *MQTTService) Connect() error {
	if !s.cfg.MQTT.Enabled {
		log.Debug().Msg("MQTT disabled")
		return nil
	}

	client, err := mqtt.Connect(s.cfg.MQTT)
	if err != nil {
		return err
	}
	s.client = client
	return nil
}

// Publisher returns the event publisher sink, or nil when publishing is off.
func (s *MQTTService) Publisher() *mqtt.Publisher {
	if s.client == nil || !s.cfg.MQTT.Publish {
		return nil
	}
	return mqtt.NewPublisher(s.client, s.cfg.MQTT.TopicPrefix, byte(s.cfg.MQTT.QoS))
}

// Start subscribes to the ingress topics.
func (s *MQTTService) Start(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return mqtt.NewIngress(s.client, s.handler, s.cfg.MQTT.TopicPrefix, byte(s.cfg.MQTT.QoS)).Start(ctx)
}

// Close disconnects from the broker.
func (s *MQTTService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Warn().Err(err).Msg("MQTT close error")
		}
	}
}

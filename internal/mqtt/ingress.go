package mqtt

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/debounce"
)

// Handler is the automated entry point of the debounce engine.
type Handler interface {
	Handle(ctx context.Context, kind debounce.Kind, name string, active bool) debounce.Result
}

// Ingress turns broker messages into automated engine events.
type Ingress struct {
	client  Client
	handler Handler
	prefix  string
	qos     byte
}

// NewIngress creates an ingress for topics under prefix.
func NewIngress(client Client, handler Handler, prefix string, qos byte) *Ingress {
	return &Ingress{client: client, handler: handler, prefix: prefix, qos: qos}
}

// Start subscribes to the ingress topics. Messages are handled on paho's goroutines.
func (i *Ingress) Start(ctx context.Context) error {
	for _, topic := range IngressTopics(i.prefix) {
		if err := i.client.Subscribe(topic, i.qos, func(topic string, payload []byte) error {
			return i.handleMessage(ctx, topic, payload)
		}); err != nil {
			return err
		}
		log.Info().Str("topic", topic).Msg("Subscribed to MQTT ingress topic")
	}
	return nil
}

func (i *Ingress) handleMessage(ctx context.Context, topic string, payload []byte) error {
	kind, name, reset, err := ParseTopic(i.prefix, topic)
	if err != nil {
		return err
	}

	active := false
	if !reset {
		if active, err = ParsePayload(payload); err != nil {
			return err
		}
	}

	res := i.handler.Handle(ctx, kind, name, active)
	log.Debug().
		Str("topic", topic).
		Str("status", string(res.Status)).
		Msg(res.Message)
	return res.Err
}

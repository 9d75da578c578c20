package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dokzlo13/triggerd/internal/debounce"
	"github.com/dokzlo13/triggerd/internal/eventbus"
)

// Publisher is a recorder sink that mirrors events onto the broker.
type Publisher struct {
	client Client
	prefix string
	qos    byte
}

// NewPublisher creates a publisher for topics under prefix.
func NewPublisher(client Client, prefix string, qos byte) *Publisher {
	return &Publisher{client: client, prefix: prefix, qos: qos}
}

func (p *Publisher) Name() string { return "mqtt" }

// Record publishes e as JSON to <prefix>/events/<kind>/<name>.
func (p *Publisher) Record(_ context.Context, e eventbus.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.client.Publish(EventTopic(p.prefix, debounce.Kind(e.Type), e.Device), p.qos, false, payload)
}

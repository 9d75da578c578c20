// Package recorder turns manual trigger events into bus events and fans them out to sinks.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/debounce"
	"github.com/dokzlo13/triggerd/internal/eventbus"
)

// SourceManual marks events that came through the manual entry point.
const SourceManual = "manual"

// Sink consumes recorded events.
type Sink interface {
	Name() string
	Record(ctx context.Context, e eventbus.Event) error
}

// Recorder implements debounce.Recorder on top of the event bus.
// Notify never blocks the caller; delivery happens on bus workers.
type Recorder struct {
	bus *eventbus.Bus
	now func() time.Time
}

// New creates a recorder publishing onto bus.
func New(bus *eventbus.Bus) *Recorder {
	return &Recorder{bus: bus, now: time.Now}
}

// Notify publishes a recorded event.
func (r *Recorder) Notify(kind debounce.Kind, name string, active bool) {
	e := eventbus.Event{
		ID:        uuid.NewString(),
		Type:      eventbus.EventType(kind),
		Device:    name,
		Active:    active,
		Source:    SourceManual,
		Timestamp: r.now(),
	}

	log.Debug().
		Str("event_id", e.ID).
		Str("kind", string(kind)).
		Str("device", name).
		Bool("active", active).
		Msg("Recording event")

	r.bus.Publish(e)
}

// Attach subscribes every sink to all recorded events.
// Sink failures are logged and counted, never propagated.
func (r *Recorder) Attach(ctx context.Context, sinks ...Sink) {
	for _, sink := range sinks {
		s := sink
		r.bus.Subscribe(s.Name(), func(e eventbus.Event) {
			if err := s.Record(ctx, e); err != nil {
				metrics.GetOrCreateCounter(fmt.Sprintf(`triggerd_sink_errors_total{sink=%q}`, s.Name())).Inc()
				log.Error().
					Err(err).
					Str("sink", s.Name()).
					Str("event_id", e.ID).
					Str("device", e.Device).
					Msg("Failed to record event")
			}
		})
		log.Debug().Str("sink", s.Name()).Msg("Recorder sink attached")
	}
}

package hooks

import (
	"context"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/triggerd/internal/eventbus"
)

const onEventFunc = "on_event"

// Sink forwards recorded events to the script's on_event function.
type Sink struct {
	runtime *Runtime
}

// NewSink creates a recorder sink for r.
func NewSink(r *Runtime) *Sink {
	return &Sink{runtime: r}
}

func (s *Sink) Name() string { return "lua" }

// Record queues the call; script errors are logged on the Lua worker.
func (s *Sink) Record(ctx context.Context, e eventbus.Event) error {
	if !s.runtime.Do(ctx, func(context.Context) { s.call(e) }) {
		return ErrQueueFull
	}
	return nil
}

func (s *Sink) call(e eventbus.Event) {
	L := s.runtime.L

	fn := L.GetGlobal(onEventFunc)
	if fn.Type() != lua.LTFunction {
		return
	}

	evt := L.NewTable()
	evt.RawSetString("id", lua.LString(e.ID))
	evt.RawSetString("kind", lua.LString(e.Type))
	evt.RawSetString("device", lua.LString(e.Device))
	evt.RawSetString("active", lua.LBool(e.Active))
	evt.RawSetString("source", lua.LString(e.Source))
	evt.RawSetString("timestamp", lua.LNumber(e.Timestamp.Unix()))

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, evt); err != nil {
		log.Error().
			Err(err).
			Str("event_id", e.ID).
			Str("device", e.Device).
			Msg("Lua on_event failed")
	}
}

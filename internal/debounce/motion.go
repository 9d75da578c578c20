package debounce

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// MotionDebouncer runs the motion state machine for every device.
type MotionDebouncer struct {
	*machine
}

func newMotionDebouncer(m *machine) *MotionDebouncer {
	return &MotionDebouncer{machine: m}
}

// Handle applies one motion event to dev.
func (m *MotionDebouncer) Handle(ctx context.Context, dev Device, active, manual bool) Result {
	sensor := dev.Characteristic(MotionSensor)
	trigger := dev.Characteristic(MotionTrigger)

	if sensor == nil {
		m.pulseOff(trigger)
		return failed(ErrMotionNotEnabled, "Motion is not enabled for this camera.")
	}

	id, name, opts := dev.ID(), dev.Name(), dev.Options()

	unlock := m.registry.lock(id)
	defer unlock()

	if m.registry.state(id) == StateCooling {
		if active {
			log.Info().Str("device", name).Msg("Motion ON (skip motion event, timeout active)")
			if manual {
				m.pulseOff(trigger)
			}
			return skipped("Skip motion event, timeout active!")
		}
		m.registry.cancel(id)
	}

	if manual {
		if active && m.suppressedAtHome(ctx, name) {
			log.Info().
				Str("device", name).
				Msgf("Motion ON (skip motion event, at home is active and %s is not excluded)", name)
			m.pulseOff(trigger)
			return skipped(fmt.Sprintf("Skip motion trigger. At Home is active and %s is not excluded!", name))
		}

		log.Info().Str("device", name).Msgf("Motion %s", onOff(active, "ON", "OFF"))

		if !opts.HSV {
			m.recorder.Notify(KindMotion, name, active)
		}
	}

	sensor.SetValue(active)
	setValue(trigger, active)

	if active {
		if opts.MotionDoorbell {
			setValue(dev.Characteristic(DoorbellSensor), true)
		}

		m.registry.start(id, opts.Timeout(), func() {
			log.Info().Str("device", name).Msg("Motion handler timeout.")
			sensor.SetValue(false)
			setValue(trigger, false)
		})
	}

	return accepted(fmt.Sprintf("Motion switched %s", onOff(active, "on", "off")))
}

package debounce

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// DoorbellDebouncer runs the doorbell state machine. It shares the motion timeout
// setting and, for hsv devices, drives the motion debouncer on accepted presses.
type DoorbellDebouncer struct {
	*machine
	motion *MotionDebouncer
}

func newDoorbellDebouncer(m *machine, motion *MotionDebouncer) *DoorbellDebouncer {
	return &DoorbellDebouncer{machine: m, motion: motion}
}

// Handle applies one doorbell event to dev.
func (d *DoorbellDebouncer) Handle(ctx context.Context, dev Device, active, manual bool) Result {
	sensor := dev.Characteristic(DoorbellSensor)
	trigger := dev.Characteristic(DoorbellTrigger)

	if sensor == nil {
		d.pulseOff(trigger)
		return failed(ErrDoorbellNotEnabled, "Doorbell is not enabled for this camera.")
	}

	id, name, opts := dev.ID(), dev.Name(), dev.Options()

	unlock := d.registry.lock(id)
	defer unlock()

	if d.registry.state(id) == StateCooling {
		if active {
			log.Info().Str("device", name).Msg("Doorbell ON (skip doorbell event, doorbell timeout active)")
			if manual {
				d.pulseOff(trigger)
			}
			return skipped("Skip doorbell event, timeout active!")
		}
		d.registry.cancel(id)
	}

	if manual {
		if active && d.suppressedAtHome(ctx, name) {
			log.Info().
				Str("device", name).
				Msgf("Doorbell ON (skip doorbell event, at home is active and %s is not excluded)", name)
			d.pulseOff(trigger)
			return skipped(fmt.Sprintf("Skip doorbell trigger. At Home is active and %s is not excluded!", name))
		}

		if !opts.HSV {
			d.recorder.Notify(KindDoorbell, name, active)
		}
	}

	log.Info().Str("device", name).Msgf("Doorbell %s", onOff(active, "ON", "OFF"))

	setValue(trigger, active)

	if active {
		if opts.HSV {
			res := d.motion.Handle(ctx, dev, active, manual)
			log.Debug().
				Str("device", name).
				Str("status", string(res.Status)).
				Msgf("Doorbell bridged to motion: %s", res.Message)
		}

		sensor.SetValue(true)

		d.registry.start(id, opts.Timeout(), func() {
			log.Debug().Str("device", name).Msg("Doorbell handler timeout.")
			sensor.SetValue(false)
			setValue(trigger, false)
		})
	}

	return accepted(fmt.Sprintf("Doorbell switched %s", onOff(active, "on", "off")))
}

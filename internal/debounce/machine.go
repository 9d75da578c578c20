package debounce

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultPulseDelay is the grace period before a trigger switch is flipped back off
// after a rejected manual press.
const DefaultPulseDelay = 500 * time.Millisecond

// machine holds what both debouncers share in shape but never in instance:
// each debouncer owns its own registry.
type machine struct {
	registry   *registry
	clock      Clock
	pulseDelay time.Duration
	settings   SettingsProvider
	recorder   Recorder
}

func newMachine(clock Clock, pulseDelay time.Duration, settings SettingsProvider, recorder Recorder) *machine {
	return &machine{
		registry:   newRegistry(clock),
		clock:      clock,
		pulseDelay: pulseDelay,
		settings:   settings,
		recorder:   recorder,
	}
}

// State returns the cooldown state for a device ID.
func (m *machine) State(id string) State {
	return m.registry.state(id)
}

// Cooling returns the number of devices with a pending cooldown.
func (m *machine) Cooling() int {
	return m.registry.len()
}

// pulseOff flips a trigger switch off after the grace delay.
func (m *machine) pulseOff(trigger Characteristic) {
	if trigger == nil {
		return
	}
	m.clock.AfterFunc(m.pulseDelay, func() {
		trigger.SetValue(false)
	})
}

// suppressedAtHome reads the settings snapshot and reports whether name should be
// silenced. A failed read is treated as "not at home".
func (m *machine) suppressedAtHome(ctx context.Context, name string) bool {
	if m.settings == nil {
		return false
	}
	gs, err := m.settings.GeneralSettings(ctx)
	if err != nil {
		log.Warn().Err(err).Str("device", name).Msg("Failed to read general settings, ignoring at-home policy")
		return false
	}
	return gs.AtHome && !gs.Excludes(name)
}

func setValue(c Characteristic, on bool) {
	if c != nil {
		c.SetValue(on)
	}
}

func onOff(active bool, on, off string) string {
	if active {
		return on
	}
	return off
}

type nopRecorder struct{}

func (nopRecorder) Notify(Kind, string, bool) {}

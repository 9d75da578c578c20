// Package accessory exposes configured cameras as HomeKit accessories and as the
// device directory the debounce engine resolves names against.
package accessory

import (
	"fmt"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/config"
	"github.com/dokzlo13/triggerd/internal/debounce"
)

// namespace derives stable device UUIDs from names when none is configured.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/dokzlo13/triggerd"))

// Camera is one HomeKit accessory with optional motion, doorbell and trigger switch services.
type Camera struct {
	*accessory.A

	id   string
	name string
	opts debounce.Options

	Motion          *service.MotionSensor
	MotionTrigger   *service.Switch
	Doorbell        *service.Doorbell
	DoorbellTrigger *service.Switch

	chars map[debounce.Capability]debounce.Characteristic
}

// NewCamera builds the accessory for one configured device.
func NewCamera(dc config.DeviceConfig) (*Camera, error) {
	id, err := deviceUUID(dc)
	if err != nil {
		return nil, err
	}

	c := &Camera{
		id:   id.String(),
		name: dc.Name,
		opts: debounce.Options{
			MotionTimeout:  dc.GetMotionTimeout(),
			MotionDoorbell: dc.MotionDoorbell,
			HSV:            dc.HSV,
		},
		chars: make(map[debounce.Capability]debounce.Characteristic),
	}

	typ := accessory.TypeIPCamera
	if dc.Doorbell {
		typ = accessory.TypeVideoDoorbell
	}
	c.A = accessory.New(accessory.Info{
		Name:         dc.Name,
		SerialNumber: c.id,
		Manufacturer: "triggerd",
		Model:        "Camera",
	}, typ)

	if dc.Motion {
		c.Motion = service.NewMotionSensor()
		c.AddS(c.Motion.S)
		c.chars[debounce.MotionSensor] = motionChar{c.Motion.MotionDetected}
	}
	if dc.MotionTrigger {
		c.MotionTrigger = service.NewSwitch()
		c.AddS(c.MotionTrigger.S)
		c.chars[debounce.MotionTrigger] = switchChar{c.MotionTrigger.On}
	}
	if dc.Doorbell {
		c.Doorbell = service.NewDoorbell()
		c.AddS(c.Doorbell.S)
		c.chars[debounce.DoorbellSensor] = doorbellChar{name: dc.Name, c: c.Doorbell.ProgrammableSwitchEvent}
	}
	if dc.DoorbellTrigger {
		c.DoorbellTrigger = service.NewSwitch()
		c.AddS(c.DoorbellTrigger.S)
		c.chars[debounce.DoorbellTrigger] = switchChar{c.DoorbellTrigger.On}
	}

	return c, nil
}

func deviceUUID(dc config.DeviceConfig) (uuid.UUID, error) {
	if dc.UUID == "" {
		return uuid.NewSHA1(namespace, []byte(dc.Name)), nil
	}
	id, err := uuid.Parse(dc.UUID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("device %q: %w", dc.Name, err)
	}
	return id, nil
}

func (c *Camera) ID() string                { return c.id }
func (c *Camera) Name() string              { return c.name }
func (c *Camera) Options() debounce.Options { return c.opts }

// Characteristic returns nil when the capability is not configured.
func (c *Camera) Characteristic(capability debounce.Capability) debounce.Characteristic {
	ch, ok := c.chars[capability]
	if !ok {
		return nil
	}
	return ch
}

// Capabilities lists the configured capabilities in a stable order.
func (c *Camera) Capabilities() []debounce.Capability {
	var caps []debounce.Capability
	for _, capability := range []debounce.Capability{
		debounce.MotionSensor, debounce.MotionTrigger, debounce.DoorbellSensor, debounce.DoorbellTrigger,
	} {
		if _, ok := c.chars[capability]; ok {
			caps = append(caps, capability)
		}
	}
	return caps
}

type motionChar struct {
	c *characteristic.MotionDetected
}

func (m motionChar) SetValue(on bool) { m.c.SetValue(on) }

type switchChar struct {
	c *characteristic.On
}

func (s switchChar) SetValue(on bool) { s.c.SetValue(on) }

// doorbellChar maps an activation onto a single press. HomeKit doorbells are
// stateless, so releasing is a no-op.
type doorbellChar struct {
	name string
	c    *characteristic.ProgrammableSwitchEvent
}

func (d doorbellChar) SetValue(on bool) {
	if !on {
		return
	}
	if err := d.c.SetValue(characteristic.ProgrammableSwitchEventSinglePress); err != nil {
		log.Error().Err(err).Str("device", d.name).Msg("Failed to press doorbell")
	}
}

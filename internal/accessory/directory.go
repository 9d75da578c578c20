package accessory

import (
	"context"
	"fmt"

	"github.com/brutella/hap/accessory"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/config"
	"github.com/dokzlo13/triggerd/internal/debounce"
)

// Triggerer is the manual entry point of the debounce engine.
type Triggerer interface {
	Trigger(ctx context.Context, kind debounce.Kind, name string, active bool) debounce.Result
}

// Directory holds the cameras by name. It is immutable after NewDirectory.
type Directory struct {
	cameras []*Camera
	byName  map[string]*Camera
}

// NewDirectory builds one Camera per configured device.
func NewDirectory(devices []config.DeviceConfig) (*Directory, error) {
	d := &Directory{byName: make(map[string]*Camera, len(devices))}
	for i, dc := range devices {
		cam, err := NewCamera(dc)
		if err != nil {
			return nil, err
		}
		// Id 1 belongs to the bridge.
		cam.Id = uint64(i + 2)
		d.cameras = append(d.cameras, cam)
		d.byName[dc.Name] = cam

		log.Debug().
			Str("device", dc.Name).
			Str("uuid", cam.ID()).
			Str("capabilities", fmt.Sprint(cam.Capabilities())).
			Msg("Camera accessory created")
	}
	return d, nil
}

// Find implements debounce.Directory.
func (d *Directory) Find(name string) (debounce.Device, bool) {
	cam, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return cam, true
}

// Camera returns the concrete camera for name.
func (d *Directory) Camera(name string) (*Camera, bool) {
	cam, ok := d.byName[name]
	return cam, ok
}

// Cameras returns all cameras in configuration order.
func (d *Directory) Cameras() []*Camera {
	return d.cameras
}

// Accessories returns the HomeKit accessories for the bridge.
func (d *Directory) Accessories() []*accessory.A {
	as := make([]*accessory.A, 0, len(d.cameras))
	for _, cam := range d.cameras {
		as = append(as, cam.A)
	}
	return as
}

// BindTriggers routes trigger switches toggled from the Home app to t.
func (d *Directory) BindTriggers(t Triggerer) {
	for _, cam := range d.cameras {
		if cam.MotionTrigger != nil {
			cam.MotionTrigger.On.OnValueRemoteUpdate(remoteTrigger(t, debounce.KindMotion, cam.name))
		}
		if cam.DoorbellTrigger != nil {
			cam.DoorbellTrigger.On.OnValueRemoteUpdate(remoteTrigger(t, debounce.KindDoorbell, cam.name))
		}
	}
}

func remoteTrigger(t Triggerer, kind debounce.Kind, name string) func(bool) {
	return func(on bool) {
		res := t.Trigger(context.Background(), kind, name, on)
		log.Debug().
			Str("kind", string(kind)).
			Str("device", name).
			Bool("active", on).
			Str("status", string(res.Status)).
			Msg("Trigger switch toggled from HomeKit")
	}
}

package accessory

import (
	"context"
	"testing"

	"github.com/brutella/hap/characteristic"

	"github.com/dokzlo13/triggerd/internal/config"
	"github.com/dokzlo13/triggerd/internal/debounce"
)

func ptr[T any](v T) *T { return &v }

var devices = []config.DeviceConfig{
	{Name: "Garage", Motion: true, MotionTrigger: true, MotionTimeout: ptr(2.0)},
	{
		Name:            "Front Door",
		UUID:            "7d444840-9dc0-11d1-b245-5ffdce74fad2",
		Motion:          true,
		Doorbell:        true,
		DoorbellTrigger: true,
		HSV:             true,
	},
}

func TestNewDirectory_Find(t *testing.T) {
	d, err := NewDirectory(devices)
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}

	dev, ok := d.Find("Front Door")
	if !ok {
		t.Fatal("Find(Front Door) not found")
	}
	if dev.ID() != "7d444840-9dc0-11d1-b245-5ffdce74fad2" {
		t.Errorf("ID() = %q, want configured uuid", dev.ID())
	}
	if !dev.Options().HSV || dev.Options().MotionTimeout != 1 {
		t.Errorf("Options() = %+v", dev.Options())
	}

	if _, ok := d.Find("Nowhere"); ok {
		t.Error("Find(Nowhere) = true")
	}
	if len(d.Accessories()) != 2 {
		t.Errorf("Accessories() = %d, want 2", len(d.Accessories()))
	}
}

func TestNewDirectory_DerivedUUIDIsStable(t *testing.T) {
	a, _ := NewDirectory(devices[:1])
	b, _ := NewDirectory(devices[:1])

	da, _ := a.Find("Garage")
	db, _ := b.Find("Garage")
	if da.ID() == "" || da.ID() != db.ID() {
		t.Errorf("derived IDs = %q, %q, want stable", da.ID(), db.ID())
	}
}

func TestNewDirectory_AccessoryIDs(t *testing.T) {
	d, _ := NewDirectory(devices)
	for i, cam := range d.Cameras() {
		if cam.Id != uint64(i+2) {
			t.Errorf("camera %d Id = %d, want %d", i, cam.Id, i+2)
		}
	}
}

func TestCamera_Characteristics(t *testing.T) {
	d, _ := NewDirectory(devices)
	garage, _ := d.Find("Garage")

	if garage.Characteristic(debounce.DoorbellSensor) != nil {
		t.Error("Garage has no doorbell, Characteristic should be nil")
	}
	if garage.Characteristic(debounce.MotionSensor) == nil {
		t.Fatal("Garage motion sensor missing")
	}

	garage.Characteristic(debounce.MotionSensor).SetValue(true)
	cam, _ := d.Camera("Garage")
	if !cam.Motion.MotionDetected.Value() {
		t.Error("MotionDetected not set")
	}

	garage.Characteristic(debounce.MotionTrigger).SetValue(true)
	if !cam.MotionTrigger.On.Value() {
		t.Error("trigger switch not on")
	}

	want := []debounce.Capability{debounce.MotionSensor, debounce.MotionTrigger}
	got := cam.Capabilities()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Capabilities() = %v, want %v", got, want)
	}
}

func TestCamera_DoorbellPress(t *testing.T) {
	d, _ := NewDirectory(devices)
	front, _ := d.Find("Front Door")
	cam, _ := d.Camera("Front Door")

	front.Characteristic(debounce.DoorbellSensor).SetValue(true)
	if got := cam.Doorbell.ProgrammableSwitchEvent.Value(); got != characteristic.ProgrammableSwitchEventSinglePress {
		t.Errorf("ProgrammableSwitchEvent = %d, want single press", got)
	}

	// Releasing is a no-op.
	front.Characteristic(debounce.DoorbellSensor).SetValue(false)
}

type fakeTriggerer struct {
	kind   debounce.Kind
	name   string
	active bool
	calls  int
}

func (f *fakeTriggerer) Trigger(_ context.Context, kind debounce.Kind, name string, active bool) debounce.Result {
	f.kind, f.name, f.active = kind, name, active
	f.calls++
	return debounce.Result{Status: debounce.StatusAccepted}
}

func TestRemoteTrigger(t *testing.T) {
	f := &fakeTriggerer{}
	remoteTrigger(f, debounce.KindDoorbell, "Front Door")(true)

	if f.calls != 1 || f.kind != debounce.KindDoorbell || f.name != "Front Door" || !f.active {
		t.Errorf("Trigger called with %+v", f)
	}
}

func TestDirectory_ImplementsDebounceDirectory(t *testing.T) {
	d, _ := NewDirectory(nil)
	var _ debounce.Directory = d
	d.BindTriggers(&fakeTriggerer{})
}

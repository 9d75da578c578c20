// Package debounce decides what happens to motion and doorbell events for a camera
// accessory: suppress them during a cooldown window or while someone is at home,
// propagate them to the accessory characteristics and the event recorder, and
// de-assert them automatically once the cooldown expires.
package debounce

import (
	"context"
	"slices"
	"time"
)

// Kind is the event kind routed by the Engine.
type Kind string

const (
	KindMotion   Kind = "motion"
	KindDoorbell Kind = "doorbell"
)

// Valid reports whether k is a kind the engine can route.
func (k Kind) Valid() bool {
	return k == KindMotion || k == KindDoorbell
}

// Capability names a characteristic a device may expose.
type Capability int

const (
	MotionSensor Capability = iota
	MotionTrigger
	DoorbellSensor
	DoorbellTrigger
)

func (c Capability) String() string {
	switch c {
	case MotionSensor:
		return "motion_sensor"
	case MotionTrigger:
		return "motion_trigger"
	case DoorbellSensor:
		return "doorbell_sensor"
	case DoorbellTrigger:
		return "doorbell_trigger"
	default:
		return "unknown"
	}
}

// Characteristic is a writable on/off value exposed by the host accessory model.
// For a doorbell sensor SetValue(true) is a single press and SetValue(false) is a no-op.
type Characteristic interface {
	SetValue(on bool)
}

// DefaultTimeout is used when a device has a negative motion timeout.
const DefaultTimeout = time.Second

// Options is the per-device configuration the debouncers read.
type Options struct {
	// MotionTimeout is the cooldown in seconds. Doorbell events use it as well.
	MotionTimeout float64
	// MotionDoorbell presses the doorbell whenever motion is accepted.
	MotionDoorbell bool
	// HSV routes doorbell presses through the motion pipeline and leaves
	// downstream event emission to it.
	HSV bool
}

// Timeout returns the cooldown duration.
func (o Options) Timeout() time.Duration {
	if o.MotionTimeout < 0 {
		return DefaultTimeout
	}
	return time.Duration(o.MotionTimeout * float64(time.Second))
}

// Device is a handle borrowed from the Directory for a single event.
type Device interface {
	// ID is the stable identity used to key cooldown state.
	ID() string
	// Name is the display name used for lookups and settings exclusion.
	Name() string
	Options() Options
	// Characteristic returns nil when the device does not expose c.
	Characteristic(c Capability) Characteristic
}

// Directory resolves display names to devices.
type Directory interface {
	Find(name string) (Device, bool)
}

// GeneralSettings is the snapshot consulted for manual events.
type GeneralSettings struct {
	AtHome  bool     `json:"at_home"`
	Exclude []string `json:"exclude"`
}

// Excludes reports whether name is on the exclusion list.
func (s GeneralSettings) Excludes(name string) bool {
	return slices.Contains(s.Exclude, name)
}

// SettingsProvider reads the current general settings.
type SettingsProvider interface {
	GeneralSettings(ctx context.Context) (GeneralSettings, error)
}

// Recorder receives accepted manual events. Notify must not block.
type Recorder interface {
	Notify(kind Kind, name string, active bool)
}

// Status classifies a Result.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusSkipped  Status = "skipped"
	StatusError    Status = "error"
)

// Result is the outcome of one event.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Failed reports whether the result carries an error.
func (r Result) Failed() bool {
	return r.Status == StatusError
}

func accepted(msg string) Result {
	return Result{Status: StatusAccepted, Message: msg}
}

func skipped(msg string) Result {
	return Result{Status: StatusSkipped, Message: msg}
}

func failed(err error, msg string) Result {
	return Result{Status: StatusError, Message: msg, Err: err}
}

package debounce

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// fakeClock fires timers only when advanced. With hold set, due callbacks run
// on their own goroutines and wait for hold to be closed; wait blocks until
// they return.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer

	hold     chan struct{}
	inflight sync.WaitGroup
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward and runs every timer that became due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		if c.hold == nil {
			t.f()
			continue
		}
		c.inflight.Add(1)
		go func(f func()) {
			defer c.inflight.Done()
			<-c.hold
			f()
		}(t.f)
	}
}

func (c *fakeClock) wait() {
	c.inflight.Wait()
}

// pending returns the number of timers that have neither fired nor been stopped.
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

type fakeChar struct {
	mu     sync.Mutex
	value  bool
	writes []bool
}

func (c *fakeChar) SetValue(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = on
	c.writes = append(c.writes, on)
}

func (c *fakeChar) Value() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *fakeChar) Writes() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bool(nil), c.writes...)
}

type fakeDevice struct {
	id    string
	name  string
	opts  Options
	chars map[Capability]*fakeChar
}

func newFakeDevice(id, name string, opts Options, caps ...Capability) *fakeDevice {
	d := &fakeDevice{id: id, name: name, opts: opts, chars: make(map[Capability]*fakeChar)}
	for _, c := range caps {
		d.chars[c] = &fakeChar{}
	}
	return d
}

func (d *fakeDevice) ID() string       { return d.id }
func (d *fakeDevice) Name() string     { return d.name }
func (d *fakeDevice) Options() Options { return d.opts }

func (d *fakeDevice) Characteristic(c Capability) Characteristic {
	if ch, ok := d.chars[c]; ok {
		return ch
	}
	return nil
}

func (d *fakeDevice) char(c Capability) *fakeChar {
	return d.chars[c]
}

type fakeDirectory map[string]*fakeDevice

func (f fakeDirectory) Find(name string) (Device, bool) {
	d, ok := f[name]
	if !ok {
		return nil, false
	}
	return d, true
}

type fakeSettings struct {
	gs    GeneralSettings
	err   error
	reads int
}

func (f *fakeSettings) GeneralSettings(context.Context) (GeneralSettings, error) {
	f.reads++
	return f.gs, f.err
}

type recorded struct {
	kind   Kind
	name   string
	active bool
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recorded
}

func (f *fakeRecorder) Notify(kind Kind, name string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recorded{kind: kind, name: name, active: active})
}

func (f *fakeRecorder) Events() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.events...)
}

var errSettingsDown = errors.New("settings store unavailable")

var allCaps = []Capability{MotionSensor, MotionTrigger, DoorbellSensor, DoorbellTrigger}

package debounce

import (
	"sync"
	"time"
)

// State is the cooldown state of one device for one event kind.
type State string

const (
	StateIdle    State = "idle"
	StateCooling State = "cooling"
)

// cooldown is the Cooling tag: the pending timer and the generation that armed it.
type cooldown struct {
	timer Timer
	gen   uint64
}

// registry tracks cooldowns keyed by device ID and serializes work per device.
// A device is Cooling iff it has an entry.
type registry struct {
	clock Clock

	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	entries map[string]cooldown
	gen     uint64
}

func newRegistry(clock Clock) *registry {
	return &registry{
		clock:   clock,
		locks:   make(map[string]*sync.Mutex),
		entries: make(map[string]cooldown),
	}
}

// lock acquires the per-device mutex and returns its release func.
func (r *registry) lock(id string) func() {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (r *registry) state(id string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; ok {
		return StateCooling
	}
	return StateIdle
}

// start arms a cooldown for id. onExpire runs under the device lock, and only if
// the entry it armed is still current.
// Callers hold the device lock and have checked that id is Idle.
func (r *registry) start(id string, d time.Duration, onExpire func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	gen := r.gen
	timer := r.clock.AfterFunc(d, func() {
		unlock := r.lock(id)
		defer unlock()
		if r.expire(id, gen) {
			onExpire()
		}
	})
	r.entries[id] = cooldown{timer: timer, gen: gen}
}

// cancel stops and removes the cooldown for id. Callers hold the device lock.
func (r *registry) cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.entries[id]
	if !ok {
		return false
	}
	c.timer.Stop()
	delete(r.entries, id)
	return true
}

func (r *registry) expire(id string, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.entries[id]
	if !ok || c.gen != gen {
		return false
	}
	delete(r.entries, id)
	return true
}

// stopAll cancels every pending cooldown without running expiry actions.
func (r *registry) stopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.entries {
		c.timer.Stop()
		delete(r.entries, id)
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

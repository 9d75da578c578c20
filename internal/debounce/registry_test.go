package debounce

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestEngine_ConcurrentActivationAcceptsOnce(t *testing.T) {
	dev := newFakeDevice("id", "Garage", Options{MotionTimeout: 60}, MotionSensor, MotionTrigger)
	e := New(nil, nil)
	e.FinishLoading(fakeDirectory{"Garage": dev})
	defer e.Close()

	const workers = 64
	results := make(chan Result, workers)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- e.Handle(context.Background(), KindMotion, "Garage", true)
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	counts := map[Status]int{}
	for res := range results {
		counts[res.Status]++
	}
	if counts[StatusAccepted] != 1 {
		t.Errorf("accepted = %d, want 1 (%v)", counts[StatusAccepted], counts)
	}
	if counts[StatusSkipped] != workers-1 {
		t.Errorf("skipped = %d, want %d", counts[StatusSkipped], workers-1)
	}
	if got := len(dev.char(MotionSensor).Writes()); got != 1 {
		t.Errorf("sensor writes = %d, want 1", got)
	}
}

func TestRegistry_StaleExpiryKeepsNewerCooldown(t *testing.T) {
	dev := newFakeDevice("id", "Garage", Options{MotionTimeout: 2}, MotionSensor, MotionTrigger)
	h := newHarness(dev)
	h.clock.hold = make(chan struct{})
	ctx := context.Background()

	h.engine.Handle(ctx, KindMotion, "Garage", true)

	// The first cooldown fires but its callback is held before taking the device lock.
	h.clock.Advance(2 * time.Second)
	if h.clock.pending() != 0 {
		t.Fatalf("pending timers = %d, want the first cooldown fired", h.clock.pending())
	}

	// Stop now reports false for the fired timer, so only the generation guard protects the new cooldown.
	h.engine.Handle(ctx, KindMotion, "Garage", false)
	res := h.engine.Handle(ctx, KindMotion, "Garage", true)
	if res.Status != StatusAccepted {
		t.Fatalf("Status = %q, want accepted", res.Status)
	}

	close(h.clock.hold)
	h.clock.wait()

	if !dev.char(MotionSensor).Value() {
		t.Error("stale expiry cleared the motion sensor")
	}
	if !dev.char(MotionTrigger).Value() {
		t.Error("stale expiry cleared the motion trigger")
	}
	if h.engine.Motion().State("id") != StateCooling {
		t.Error("stale expiry removed the newer cooldown")
	}

	// The newer cooldown still expires on its own schedule.
	h.clock.Advance(2 * time.Second)
	h.clock.wait()
	if dev.char(MotionSensor).Value() {
		t.Error("newer cooldown did not expire")
	}
	if h.engine.Motion().State("id") != StateIdle {
		t.Error("device should be idle after the newer cooldown expires")
	}
}

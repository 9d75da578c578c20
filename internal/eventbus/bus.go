// Package eventbus fans recorded trigger events out to named subscribers
// through a bounded worker pool. Publishing never blocks the engine.
package eventbus

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/rs/zerolog/log"
)

// EventType is the trigger kind an event was recorded for.
type EventType string

const (
	EventTypeMotion   EventType = "motion"
	EventTypeDoorbell EventType = "doorbell"
)

const (
	DefaultWorkerCount = 4
	DefaultQueueSize   = 100
)

// Event is a recorded trigger event
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"kind"`
	Device    string    `json:"device"`
	Active    bool      `json:"active"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler consumes one event.
type Handler func(Event)

type subscription struct {
	name    string
	types   []EventType // empty matches every type
	handler Handler
}

func (s subscription) matches(t EventType) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

type delivery struct {
	event Event
	sub   subscription
}

// Bus delivers each published event once per matching subscription.
type Bus struct {
	mu   sync.RWMutex
	subs []subscription

	queue chan delivery
	wg    sync.WaitGroup

	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a bus with the default pool size.
func New() *Bus {
	return NewWithConfig(DefaultWorkerCount, DefaultQueueSize)
}

// NewWithConfig creates a bus with workers goroutines sharing a queue of queueSize deliveries.
func NewWithConfig(workers, queueSize int) *Bus {
	b := &Bus{
		queue:   make(chan delivery, queueSize),
		closing: make(chan struct{}),
	}

	b.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go b.worker(i)
	}

	log.Debug().Int("workers", workers).Int("queue_size", queueSize).Msg("Event bus started")
	return b
}

func (b *Bus) worker(id int) {
	defer b.wg.Done()
	for d := range b.queue {
		b.deliver(id, d)
	}
}

func (b *Bus) deliver(worker int, d delivery) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("subscriber", d.sub.name).
				Str("kind", string(d.event.Type)).
				Str("device", d.event.Device).
				Int("worker", worker).
				Msg("Event subscriber panicked")
		}
	}()
	d.sub.handler(d.event)
}

// Subscribe registers handler under name for the given types, or for all types when none are given.
func (b *Bus) Subscribe(name string, handler Handler, types ...EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{name: name, types: types, handler: handler})
}

// Subscribers returns the registered subscriber names in order.
func (b *Bus) Subscribers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, len(b.subs))
	for i, s := range b.subs {
		names[i] = s.name
	}
	return names
}

// Publish queues e for every matching subscriber.
// Deliveries that do not fit in the queue are dropped and counted.
func (b *Bus) Publish(e Event) {
	// Held across the sends so Close cannot close the queue underneath.
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.closing:
		log.Warn().Str("kind", string(e.Type)).Str("device", e.Device).Msg("Event bus closed, dropping event")
		return
	default:
	}

	for _, s := range b.subs {
		if !s.matches(e.Type) {
			continue
		}
		select {
		case b.queue <- delivery{event: e, sub: s}:
		default:
			metrics.GetOrCreateCounter(fmt.Sprintf(`triggerd_bus_dropped_total{subscriber=%q}`, s.name)).Inc()
			log.Warn().
				Str("subscriber", s.name).
				Str("kind", string(e.Type)).
				Str("device", e.Device).
				Msg("Event bus queue full, dropping delivery")
		}
	}
}

// Pending returns the number of queued deliveries.
func (b *Bus) Pending() int {
	return len(b.queue)
}

// Close stops accepting events and waits for queued deliveries to finish.
// It returns ctx.Err() if ctx ends first. Later calls return nil.
func (b *Bus) Close(ctx context.Context) error {
	first := false
	b.closeOnce.Do(func() {
		close(b.closing)
		first = true
	})
	if !first {
		return nil
	}

	b.mu.Lock()
	close(b.queue)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Debug().Msg("Event bus drained")
		return nil
	case <-ctx.Done():
		log.Warn().Int("pending", len(b.queue)).Msg("Event bus shutdown timed out, dropping queued deliveries")
		return ctx.Err()
	}
}

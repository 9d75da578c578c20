package debounce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for cooldowns and trigger pulses.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithPulseDelay sets the grace delay before a trigger switch is flipped back off.
func WithPulseDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pulseDelay = d
		}
	}
}

// Engine routes normalized events to the motion and doorbell debouncers.
// It refuses every event until FinishLoading supplies a Directory.
type Engine struct {
	clock      Clock
	pulseDelay time.Duration

	mu  sync.RWMutex
	dir Directory

	motion   *MotionDebouncer
	doorbell *DoorbellDebouncer
}

// New creates an Engine. settings may be nil, in which case the at-home policy
// never applies. recorder may be nil.
func New(settings SettingsProvider, recorder Recorder, opts ...Option) *Engine {
	e := &Engine{
		clock:      realClock{},
		pulseDelay: DefaultPulseDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	e.motion = newMotionDebouncer(newMachine(e.clock, e.pulseDelay, settings, recorder))
	e.doorbell = newDoorbellDebouncer(newMachine(e.clock, e.pulseDelay, settings, recorder), e.motion)
	return e
}

// FinishLoading supplies the device directory and opens the engine for events.
func (e *Engine) FinishLoading(dir Directory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dir = dir
}

// Initialized reports whether FinishLoading has been called.
func (e *Engine) Initialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dir != nil
}

// Motion returns the motion debouncer.
func (e *Engine) Motion() *MotionDebouncer {
	return e.motion
}

// Doorbell returns the doorbell debouncer.
func (e *Engine) Doorbell() *DoorbellDebouncer {
	return e.doorbell
}

// Handle processes an event from an automated upstream source.
func (e *Engine) Handle(ctx context.Context, kind Kind, name string, active bool) Result {
	return e.dispatch(ctx, kind, name, active, false)
}

// Trigger processes an operator-initiated event. Manual events are subject to
// the at-home policy and are forwarded to the recorder.
func (e *Engine) Trigger(ctx context.Context, kind Kind, name string, active bool) Result {
	return e.dispatch(ctx, kind, name, active, true)
}

// Close cancels every pending cooldown.
func (e *Engine) Close() {
	e.motion.registry.stopAll()
	e.doorbell.registry.stopAll()
}

func (e *Engine) dispatch(ctx context.Context, kind Kind, name string, active, manual bool) Result {
	res := e.route(ctx, kind, name, active, manual)
	observe(kind, res)

	var event *zerolog.Event
	switch res.Status {
	case StatusError:
		event = log.Error().Err(res.Err)
	case StatusSkipped:
		event = log.Info()
	default:
		event = log.Debug()
	}
	event.
		Str("kind", string(kind)).
		Str("device", name).
		Bool("active", active).
		Bool("manual", manual).
		Str("status", string(res.Status)).
		Msgf("Handling event: %s", res.Message)

	return res
}

func (e *Engine) route(ctx context.Context, kind Kind, name string, active, manual bool) Result {
	e.mu.RLock()
	dir := e.dir
	e.mu.RUnlock()

	if dir == nil {
		return failed(ErrNotInitialized, "Accessories not initialized.")
	}

	dev, ok := dir.Find(name)
	if !ok {
		return failed(ErrDeviceNotFound, fmt.Sprintf("Camera %q not found.", name))
	}

	switch kind {
	case KindMotion:
		return e.motion.Handle(ctx, dev, active, manual)
	case KindDoorbell:
		return e.doorbell.Handle(ctx, dev, active, manual)
	default:
		return failed(ErrUnknownKind, fmt.Sprintf("First directory level must be \"motion\" or \"doorbell\", got %q.", kind))
	}
}

func observe(kind Kind, res Result) {
	label := string(kind)
	if !kind.Valid() {
		label = "unknown"
	}
	metrics.GetOrCreateCounter(fmt.Sprintf(`triggerd_events_total{kind=%q,status=%q}`, label, res.Status)).Inc()
}

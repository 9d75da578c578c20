// Package hooks runs an optional Lua script whose on_event function sees every recorded event.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/triggerd/internal/debounce"
	"github.com/dokzlo13/triggerd/internal/storage"
)

var (
	// ErrRuntimeClosed is returned when the Lua runtime is closed
	ErrRuntimeClosed = errors.New("hooks: lua runtime closed")
	// ErrQueueFull is returned when work is dropped because the queue is full
	ErrQueueFull = errors.New("hooks: work queue full")
)

// Work is a unit of work executed on the Lua VM.
// All Lua execution goes through the work queue.
type Work func(ctx context.Context)

// Engine is what scripts may drive through the triggerd module.
type Engine interface {
	Handle(ctx context.Context, kind debounce.Kind, name string, active bool) debounce.Result
	Trigger(ctx context.Context, kind debounce.Kind, name string, active bool) debounce.Result
}

// Runtime owns the Lua VM and the single goroutine allowed to touch it.
type Runtime struct {
	L *lua.LState

	workQueue chan Work

	closing   chan struct{}
	closeOnce sync.Once
}

// NewRuntime creates a runtime with the log module preloaded.
func NewRuntime(queueSize int) *Runtime {
	r := &Runtime{
		L:         lua.NewState(),
		workQueue: make(chan Work, queueSize),
		closing:   make(chan struct{}),
	}
	r.L.PreloadModule("log", NewLogModule().Loader)
	return r
}

// Bind exposes engine and settings to scripts as the "triggerd" module.
// Must be called before LoadScript.
func (r *Runtime) Bind(engine Engine, settings debounce.SettingsProvider) {
	r.L.PreloadModule("triggerd", newTriggerModule(engine, settings).Loader)
}

// BindStore exposes store to scripts as the "kv" module.
func (r *Runtime) BindStore(store *storage.Store) {
	r.L.PreloadModule("kv", (&kvModule{store: store}).Loader)
}

// Close signals the runtime to stop accepting new work and closes the Lua state.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		close(r.closing)
	})
}

// Do queues work without blocking. Returns false if the work was dropped.
func (r *Runtime) Do(ctx context.Context, work Work) bool {
	if r.isClosing() {
		log.Warn().Msg("Lua runtime closing, dropping work")
		return false
	}

	select {
	case <-ctx.Done():
		log.Warn().Msg("Context cancelled, dropping Lua work")
		return false
	case r.workQueue <- work:
		return true
	default:
		log.Warn().Msg("Lua work queue full, dropping work")
		return false
	}
}

// DoSyncWithResult queues work and waits for its result.
func (r *Runtime) DoSyncWithResult(ctx context.Context, work func(context.Context) error) error {
	done := make(chan error, 1)
	wrapped := Work(func(c context.Context) {
		done <- work(c)
	})

	if r.isClosing() {
		return ErrRuntimeClosed
	}

	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	case r.workQueue <- wrapped:
	}

	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (r *Runtime) isClosing() bool {
	select {
	case <-r.closing:
		return true
	default:
		return false
	}
}

// Run is the only goroutine that touches the Lua state.
// It exits when ctx is cancelled or the runtime is closed, then closes the state.
func (r *Runtime) Run(ctx context.Context) {
	defer r.L.Close()

	for {
		select {
		case <-ctx.Done():
			r.drainQueue(ctx)
			return
		case <-r.closing:
			r.drainQueue(ctx)
			return
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		}
	}
}

func (r *Runtime) drainQueue(ctx context.Context) {
	for {
		select {
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		default:
			return
		}
	}
}

func (r *Runtime) executeWork(ctx context.Context, work Work) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Msg("Lua work panicked - worker continuing")
		}
	}()
	r.L.SetContext(ctx)
	work(ctx)
}

// LoadScript executes the script. Must be called before Run.
func (r *Runtime) LoadScript(path string) error {
	log.Info().Str("path", path).Msg("Loading Lua hook script")

	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}

	if r.L.GetGlobal(onEventFunc).Type() != lua.LTFunction {
		log.Warn().Str("path", path).Msg("Lua hook script defines no on_event function")
	}
	return nil
}

package app

import (
	"context"

	"github.com/dokzlo13/triggerd/internal/config"
	"github.com/dokzlo13/triggerd/internal/debounce"
	"github.com/dokzlo13/triggerd/internal/hooks"
	"github.com/dokzlo13/triggerd/internal/storage"
)

// HooksService wraps the Lua runtime. It is inert when no script is configured.
type HooksService struct {
	Runtime *hooks.Runtime
}

// NewHooksService creates the runtime and loads the script.
func NewHooksService(cfg *config.Config, engine hooks.Engine, settings debounce.SettingsProvider, store *storage.Store) (*HooksService, error) {
	if cfg.Hooks.Script == "" {
		return &HooksService{}, nil
	}

	runtime := hooks.NewRuntime(cfg.Hooks.QueueSize)
	runtime.Bind(engine, settings)
	runtime.BindStore(store)
	if err := runtime.LoadScript(cfg.Hooks.Script); err != nil {
		runtime.Close()
		runtime.L.Close()
		return nil, err
	}

	return &HooksService{Runtime: runtime}, nil
}

// Sink returns the recorder sink, or nil without a script.
func (s *HooksService) Sink() *hooks.Sink {
	if s.Runtime == nil {
		return nil
	}
	return hooks.NewSink(s.Runtime)
}

// Start begins the Lua worker goroutine - the ONLY goroutine that touches Lua.
func (s *HooksService) Start(ctx context.Context) {
	if s.Runtime != nil {
		go s.Runtime.Run(ctx)
	}
}

// Close closes the Lua runtime.
func (s *HooksService) Close() {
	if s.Runtime != nil {
		s.Runtime.Close()
	}
}

// Package settings persists the general settings read by the debounce engine.
package settings

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/debounce"
	"github.com/dokzlo13/triggerd/internal/storage"
)

const (
	kind      = "settings"
	generalID = "general"
)

// Store reads and writes GeneralSettings through the versioned state store.
// It satisfies debounce.SettingsProvider.
type Store struct {
	typed *storage.TypedStore[debounce.GeneralSettings]
}

// New creates a settings store.
func New(store *storage.Store) *Store {
	return &Store{typed: storage.NewTypedStore[debounce.GeneralSettings](store, kind)}
}

// GeneralSettings returns the current snapshot. Missing settings read as the zero value.
func (s *Store) GeneralSettings(ctx context.Context) (debounce.GeneralSettings, error) {
	gs, _, err := s.typed.Get(ctx, generalID)
	if err != nil {
		return debounce.GeneralSettings{}, fmt.Errorf("read general settings: %w", err)
	}
	if gs.Exclude == nil {
		gs.Exclude = []string{}
	}
	return gs, nil
}

// SetGeneralSettings replaces the stored snapshot.
func (s *Store) SetGeneralSettings(ctx context.Context, gs debounce.GeneralSettings) error {
	if gs.Exclude == nil {
		gs.Exclude = []string{}
	}
	if err := s.typed.Set(ctx, generalID, gs); err != nil {
		return fmt.Errorf("write general settings: %w", err)
	}
	log.Info().
		Bool("at_home", gs.AtHome).
		Strs("exclude", gs.Exclude).
		Msg("General settings updated")
	return nil
}

// Seed stores gs unless settings were already saved.
func (s *Store) Seed(ctx context.Context, gs debounce.GeneralSettings) error {
	if gs.Exclude == nil {
		gs.Exclude = []string{}
	}
	written, err := s.typed.SetIfAbsent(ctx, generalID, gs)
	if err != nil {
		return fmt.Errorf("seed general settings: %w", err)
	}
	if written {
		log.Info().Bool("at_home", gs.AtHome).Msg("Seeded general settings from config")
	}
	return nil
}

package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/config"
	"github.com/dokzlo13/triggerd/internal/ledger"
)

// RetentionService periodically deletes old ledger entries.
type RetentionService struct {
	cfg    *config.Config
	ledger *ledger.Ledger
}

// NewRetentionService creates a new RetentionService.
func NewRetentionService(cfg *config.Config, l *ledger.Ledger) *RetentionService {
	return &RetentionService{cfg: cfg, ledger: l}
}

// Start begins the cleanup loop. A non-positive retention keeps entries forever.
func (s *RetentionService) Start(ctx context.Context) {
	if s.cfg.Ledger.RetentionDays <= 0 {
		log.Info().Msg("Ledger retention disabled")
		return
	}
	go s.run(ctx)
}

func (s *RetentionService) run(ctx context.Context) {
	retention := time.Duration(s.cfg.Ledger.RetentionDays) * 24 * time.Hour
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	s.cleanup(ctx, retention)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup(ctx, retention)
		}
	}
}

func (s *RetentionService) cleanup(ctx context.Context, retention time.Duration) {
	deleted, err := s.ledger.DeleteOlderThan(ctx, retention)
	if err != nil {
		log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
	} else if deleted > 0 {
		log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
	}
}

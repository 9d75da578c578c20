package recorder

import (
	"context"

	"github.com/dokzlo13/triggerd/internal/eventbus"
	"github.com/dokzlo13/triggerd/internal/ledger"
)

// LedgerSink appends recorded events to the event ledger.
type LedgerSink struct {
	ledger *ledger.Ledger
}

// NewLedgerSink creates a ledger-backed sink.
func NewLedgerSink(l *ledger.Ledger) *LedgerSink {
	return &LedgerSink{ledger: l}
}

func (s *LedgerSink) Name() string { return "ledger" }

func (s *LedgerSink) Record(ctx context.Context, e eventbus.Event) error {
	return s.ledger.Append(ctx, ledger.Entry{
		EventID:   e.ID,
		Kind:      string(e.Type),
		Device:    e.Device,
		Active:    e.Active,
		Timestamp: e.Timestamp,
		Source:    e.Source,
	})
}

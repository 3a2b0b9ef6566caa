package app

import (
	"context"
	"log/slog"

	"github.com/amirasaad/householdledger/pkg/domain/events"
	"github.com/amirasaad/householdledger/pkg/eventbus"
)

// setupEventBus registers the audit handler for every ledger event type.
func (a *App) setupEventBus() {
	bus := a.Deps.EventBus
	if bus == nil {
		return
	}
	audit := HandleAudit(a.Deps.Logger)
	for eventType := range events.EventTypes {
		bus.Register(eventType, audit)
	}
}

// HandleAudit logs every event it receives with its shared metadata.
func HandleAudit(logger *slog.Logger) eventbus.HandlerFunc {
	log := logger.With("handler", "Audit")
	return func(ctx context.Context, e events.Event) error {
		attrs := []any{"event_type", e.Type()}
		if m, ok := e.(interface{ EventMeta() events.Meta }); ok {
			meta := m.EventMeta()
			attrs = append(attrs,
				"event_id", meta.ID,
				"account_id", meta.AccountID,
				"actor", meta.Actor,
				"occurred_at", meta.OccurredAt,
			)
		}
		switch p := e.(type) {
		case events.TransactionPosted:
			attrs = append(attrs, "amount", p.Amount, "balance", p.Balance)
		case *events.TransactionPosted:
			attrs = append(attrs, "amount", p.Amount, "balance", p.Balance)
		}
		log.InfoContext(ctx, "ledger event", attrs...)
		return nil
	}
}

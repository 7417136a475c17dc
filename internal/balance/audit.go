package balance

import (
	"context"
	"fmt"

	"electric_balance_backend/internal/balance/service"
	"electric_balance_backend/internal/events"
	"electric_balance_backend/platform/logger"
)

// RegisterHandlers subscribes the audit trail for administrative changes.
func (m *Module) RegisterHandlers(bus events.Bus, log *logger.Logger) {
	audit := log.WithComponent("audit")

	bus.Subscribe(events.BalanceDeleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		deleted, ok := event.(events.BalanceDeleted)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}
		audit.WithContext(ctx).Info("balance deleted",
			"balanceId", deleted.BalanceID,
			"type", deleted.Type,
			"subtype", deleted.Subtype,
			"date", deleted.Date,
			"eventId", deleted.EventID(),
			"at", deleted.OccurredAt(),
		)
		return nil
	}))

	bus.Subscribe(events.BalancesRefreshed{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		refreshed, ok := event.(events.BalancesRefreshed)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}
		if refreshed.Source == service.SourceAPI {
			audit.WithContext(ctx).Info("manual refresh",
				"startDate", refreshed.StartDate,
				"endDate", refreshed.EndDate,
				"written", refreshed.Inserted+refreshed.Updated+refreshed.Unchanged,
			)
		}
		return nil
	}))
}

package expense

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/expense-assistant/internal/core/events"
	"github.com/frahmantamala/expense-assistant/internal/metrics"
)

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// RegisterAuditTrail logs every lifecycle event and counts it.
func RegisterAuditTrail(bus Subscriber, logger *slog.Logger) {
	handler := func(ctx context.Context, event events.Event) error {
		logger.Info("expense audit",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"occurred_at", event.OccurredAt(),
			"payload", event.Payload())
		metrics.RecordLifecycleEvent(event.EventType())
		return nil
	}
	for _, eventType := range events.ExpenseLifecycleTypes {
		bus.Subscribe(eventType, handler)
	}
}

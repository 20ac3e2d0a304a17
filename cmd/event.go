package cmd

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/expense-assistant/internal/core/events"
	"github.com/frahmantamala/expense-assistant/internal/expense"
	"github.com/frahmantamala/expense-assistant/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Expense lifecycle event tools",
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a lifecycle event through the audit trail",
	Long:  `Publish a synthetic expense lifecycle event, e.g. expense.approved, to check the audit log output.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(args[0])
	},
}

var (
	eventExpenseID  int64
	eventReviewerID int64
	eventStatus     string
)

func publishTestEvent(eventType string) error {
	if !slices.Contains(events.ExpenseLifecycleTypes, eventType) {
		return fmt.Errorf("unknown event type %q, expected one of %v", eventType, events.ExpenseLifecycleTypes)
	}

	lg := logger.LoggerWrapper()
	bus := events.NewEventBus(lg)
	expense.RegisterAuditTrail(bus, lg)

	event := events.NewExpenseEvent(eventType, eventExpenseID, eventStatus, eventReviewerID)
	lg.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := bus.Publish(ctx, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return bus.Wait(ctx)
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventExpenseID, "expense-id", 1, "expense id carried by the event")
	publishEventCmd.Flags().Int64Var(&eventReviewerID, "reviewer-id", 0, "reviewer id for approve and reject events")
	publishEventCmd.Flags().StringVar(&eventStatus, "status", "", "status carried by the event")

	eventCmd.AddCommand(publishEventCmd)
}

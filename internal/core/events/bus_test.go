package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-assistant/internal/core/events"
)

var _ = Describe("EventBus", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("delivers asynchronously even after the publishing context is cancelled", func() {
		var delivered atomic.Int32
		bus.Subscribe(events.EventTypeExpenseCreated, func(ctx context.Context, event events.Event) error {
			time.Sleep(10 * time.Millisecond)
			if ctx.Err() == nil {
				delivered.Add(1)
			}
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		Expect(bus.Publish(ctx, events.NewExpenseEvent(events.EventTypeExpenseCreated, 7, "Draft", 0))).To(Succeed())
		cancel()

		Expect(bus.Wait(context.Background())).To(Succeed())
		Expect(delivered.Load()).To(Equal(int32(1)))
	})

	It("ignores events nobody subscribed to", func() {
		Expect(bus.Publish(context.Background(), events.NewExpenseEvent(events.EventTypeExpenseDeleted, 7, "", 0))).To(Succeed())
		Expect(bus.Wait(context.Background())).To(Succeed())
	})

	It("returns handler errors from PublishSync", func() {
		bus.Subscribe(events.EventTypeExpenseApproved, func(ctx context.Context, event events.Event) error {
			return errors.New("audit sink down")
		})

		err := bus.PublishSync(context.Background(), events.NewExpenseEvent(events.EventTypeExpenseApproved, 7, "Approved", 2))
		Expect(err).To(MatchError(ContainSubstring("audit sink down")))
	})

	It("stops waiting when the context expires", func() {
		release := make(chan struct{})
		bus.Subscribe(events.EventTypeExpenseSubmitted, func(ctx context.Context, event events.Event) error {
			<-release
			return nil
		})
		Expect(bus.Publish(context.Background(), events.NewExpenseEvent(events.EventTypeExpenseSubmitted, 7, "Submitted", 0))).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		Expect(bus.Wait(ctx)).To(MatchError(context.DeadlineExceeded))
		close(release)
		Expect(bus.Wait(context.Background())).To(Succeed())
	})

	It("turns a panicking handler into an error", func() {
		bus.Subscribe(events.EventTypeExpenseUpdated, func(ctx context.Context, event events.Event) error {
			panic("boom")
		})

		err := bus.PublishSync(context.Background(), events.NewExpenseEvent(events.EventTypeExpenseUpdated, 7, "Draft", 0))
		Expect(err).To(MatchError(ContainSubstring("panicked: boom")))

		Expect(bus.Publish(context.Background(), events.NewExpenseEvent(events.EventTypeExpenseUpdated, 7, "Draft", 0))).To(Succeed())
		Expect(bus.Wait(context.Background())).To(Succeed())
	})

	It("carries the expense fields in the payload", func() {
		event := events.NewExpenseEvent(events.EventTypeExpenseRejected, 9, "Rejected", 2)
		Expect(event.EventID()).NotTo(BeEmpty())
		Expect(event.Payload()).To(HaveKeyWithValue("reviewer_id", int64(2)))
		Expect(event.Payload()).To(HaveKeyWithValue("expense_id", int64(9)))
	})
})

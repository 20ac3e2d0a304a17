package assistant_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/assistant"
	"github.com/frahmantamala/expense-assistant/internal/expense"
	"github.com/frahmantamala/expense-assistant/internal/metrics"
)

var _ = Describe("Toolbox", func() {
	var (
		service *fakeExpenseService
		toolbox *assistant.Toolbox
		ctx     context.Context
	)

	call := func(name, args string) string {
		return toolbox.Execute(ctx, assistant.ToolCall{ID: "1", Type: "function", Function: assistant.FunctionCall{Name: name, Arguments: args}})
	}

	BeforeEach(func() {
		ctx = context.Background()
		service = &fakeExpenseService{}
		toolbox = assistant.NewToolbox(service, quietLogger())
	})

	It("declares three tools", func() {
		names := []string{}
		for _, t := range assistant.Tools() {
			names = append(names, t.Function.Name)
			Expect(t.Type).To(Equal("function"))
		}
		Expect(names).To(ConsistOf("get_expenses", "create_expense", "approve_expense"))
	})

	Describe("get_expenses", func() {
		It("maps arguments onto the filter", func() {
			desc := "Taxi"
			service.expenses = []*expense.Expense{{
				ID: 1, UserName: "Alice Example", CategoryName: "Travel", StatusName: "Approved",
				AmountMinor: 2540, Currency: "GBP", ExpenseDate: mustDate("2025-10-20"), Description: &desc,
			}}

			out := call(assistant.ToolGetExpenses, `{"status":"approved","category":"Travel","userId":1}`)

			Expect(service.filters).To(HaveLen(1))
			f := service.filters[0]
			Expect(f.Status).To(Equal("Approved"))
			Expect(f.Category).To(Equal("Travel"))
			Expect(f.UserID).To(HaveValue(Equal(int64(1))))
			Expect(out).To(MatchJSON(`[{"expenseId":1,"userName":"Alice Example","categoryName":"Travel","statusName":"Approved","amount":"£25.40","expenseDate":"2025-10-20","description":"Taxi"}]`))
		})

		It("treats empty arguments as no filter", func() {
			call(assistant.ToolGetExpenses, "")
			Expect(service.filters).To(HaveLen(1))
			Expect(service.filters[0].IsEmpty()).To(BeTrue())
		})
	})

	Describe("create_expense", func() {
		It("accepts the amount as a string", func() {
			out := call(assistant.ToolCreateExpense, `{"userId":1,"categoryId":2,"amount":"12.5","expenseDate":"2025-10-20","description":"Lunch"}`)
			Expect(out).To(ContainSubstring("Expense created successfully"))
			Expect(service.created[0].AmountMinor).To(Equal(int64(1250)))
		})

		It("refuses fractional pennies", func() {
			out := call(assistant.ToolCreateExpense, `{"userId":1,"categoryId":2,"amount":10.005,"expenseDate":"2025-10-20","description":"Lunch"}`)
			Expect(out).To(MatchJSON(`{"error":"Amount must have at most two decimal places","fields":{"amount":"Amount must have at most two decimal places"}}`))
			Expect(service.created).To(BeEmpty())
		})

		It("reports a missing amount", func() {
			out := call(assistant.ToolCreateExpense, `{"userId":1,"categoryId":2,"expenseDate":"2025-10-20","description":"Lunch"}`)
			Expect(out).To(ContainSubstring("Amount is required"))
		})

		It("reports a bad date", func() {
			out := call(assistant.ToolCreateExpense, `{"userId":1,"categoryId":2,"amount":5,"expenseDate":"tomorrow","description":"Lunch"}`)
			Expect(out).To(ContainSubstring("expenseDate"))
		})

		It("hides internal failures", func() {
			service.createErr = apperrors.NewInternalError("failed to create expense", nil)
			out := call(assistant.ToolCreateExpense, `{"userId":1,"categoryId":2,"amount":5,"expenseDate":"2025-10-20","description":"Lunch"}`)
			Expect(out).To(MatchJSON(`{"error":"The operation failed. Please try again later."}`))
		})
	})

	Describe("approve_expense", func() {
		It("approves through the service", func() {
			out := call(assistant.ToolApproveExpense, `{"expenseId":4,"reviewerId":2}`)
			Expect(out).To(MatchJSON(`{"message":"Expense approved successfully"}`))
			Expect(service.approved).To(Equal([][2]int64{{4, 2}}))
		})

		It("reports a missing expense", func() {
			out := call(assistant.ToolApproveExpense, `{"expenseId":99999,"reviewerId":2}`)
			Expect(out).To(MatchJSON(`{"error":"Expense not found"}`))
		})

		It("reports an illegal transition", func() {
			service.approveErr = (&expense.TransitionError{From: expense.StatusDraft, Action: expense.ActionApprove}).AppError()
			out := call(assistant.ToolApproveExpense, `{"expenseId":1,"reviewerId":2}`)
			Expect(out).To(ContainSubstring("cannot approve an expense in Draft status"))
		})
	})

	It("rejects unknown functions", func() {
		Expect(call("delete_everything", `{}`)).To(MatchJSON(`{"error":"Unknown function"}`))
	})

	It("does not use model-supplied tool names as metric labels", func() {
		call("drop_table_expenses", `{}`)

		families, err := metrics.Registry.Gather()
		Expect(err).NotTo(HaveOccurred())
		labels := []string{}
		for _, mf := range families {
			if mf.GetName() != "expense_assistant_assistant_tool_calls_total" {
				continue
			}
			for _, m := range mf.GetMetric() {
				for _, lp := range m.GetLabel() {
					if lp.GetName() == "tool" {
						labels = append(labels, lp.GetValue())
					}
				}
			}
		}
		Expect(labels).To(ContainElement("unknown"))
		Expect(labels).NotTo(ContainElement("drop_table_expenses"))
	})

	It("rejects malformed arguments", func() {
		Expect(call(assistant.ToolApproveExpense, `{"expenseId":`)).To(ContainSubstring("not valid JSON"))
		Expect(service.approved).To(BeEmpty())
	})
})

func mustDate(s string) time.Time {
	d, appErr := expense.ParseDate("date", s)
	Expect(appErr).To(BeNil())
	return d
}

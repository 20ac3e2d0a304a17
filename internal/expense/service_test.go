package expense_test

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/core/events"
	"github.com/frahmantamala/expense-assistant/internal/expense"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(s string) time.Time {
	t, err := time.Parse(expense.DateLayout, s)
	Expect(err).NotTo(HaveOccurred())
	return t
}

func newExpenseInput(categoryID, statusID, amountMinor int64, date string) expense.NewExpense {
	return expense.NewExpense{
		UserID:      1,
		CategoryID:  categoryID,
		StatusID:    statusID,
		AmountMinor: amountMinor,
		Currency:    "GBP",
		ExpenseDate: day(date),
		Description: "Team lunch",
	}
}

var _ = Describe("Service", func() {
	var (
		repo      *mockExpenseRepository
		publisher *recordingPublisher
		svc       *expense.Service
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockExpenseRepository()
		publisher = &recordingPublisher{}
		svc = expense.NewService(repo, quietLogger(), expense.WithPublisher(publisher))
	})

	Describe("Create", func() {
		It("stores the amount in minor units and reads it back unchanged", func() {
			id, err := svc.Create(ctx, newExpenseInput(2, 0, 2540, "2025-10-01"))
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(BeNumerically(">", 0))

			got, err := svc.GetExpense(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.AmountMinor).To(Equal(int64(2540)))
			Expect(got.FormattedAmount()).To(Equal("£25.40"))
			Expect(got.Status()).To(Equal(expense.StatusDraft))
			Expect(got.SubmittedAt).To(BeNil())
			Expect(publisher.types()).To(Equal([]string{events.EventTypeExpenseCreated}))
		})

		It("fills in the default currency", func() {
			in := newExpenseInput(1, 0, 1000, "2025-10-01")
			in.Currency = ""
			id, err := svc.Create(ctx, in)
			Expect(err).NotTo(HaveOccurred())

			got, _ := svc.GetExpense(ctx, id)
			Expect(got.Currency).To(Equal("GBP"))
		})

		It("rejects amounts outside the allowed range without touching the store", func() {
			_, err := svc.Create(ctx, newExpenseInput(1, 0, 0, "2025-10-01"))
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
			Expect(appErr.FieldErrors()).To(HaveKey("amountMinor"))

			_, err = svc.Create(ctx, newExpenseInput(1, 0, 100_000_001, "2025-10-01"))
			Expect(err).To(HaveOccurred())
			Expect(repo.writeCalls()).To(BeEmpty())
		})

		It("rejects a missing category", func() {
			_, err := svc.Create(ctx, newExpenseInput(0, 0, 100, "2025-10-01"))
			appErr, _ := apperrors.IsAppError(err)
			Expect(appErr.FieldErrors()).To(HaveKey("categoryId"))
		})

		It("rejects unknown users and categories before calling the store", func() {
			_, err := svc.Create(ctx, newExpenseInput(99, 0, 100, "2025-10-01"))
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
			Expect(appErr.FieldErrors()).To(HaveKeyWithValue("categoryId", "Please select a valid category"))

			in := newExpenseInput(1, 0, 100, "2025-10-01")
			in.UserID = 42
			_, err = svc.Create(ctx, in)
			appErr, _ = apperrors.IsAppError(err)
			Expect(appErr.FieldErrors()).To(HaveKey("userId"))
			Expect(repo.writeCalls()).To(BeEmpty())
		})

		It("treats a whitespace-only description as missing", func() {
			in := newExpenseInput(1, 0, 100, "2025-10-01")
			in.Description = "   "
			_, err := svc.Create(ctx, in)
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
			Expect(appErr.FieldErrors()).To(HaveKey("description"))
			Expect(repo.writeCalls()).To(BeEmpty())
		})

		It("stores the description without surrounding whitespace", func() {
			in := newExpenseInput(1, 0, 100, "2025-10-01")
			in.Description = "  Taxi to client  "
			id, err := svc.Create(ctx, in)
			Expect(err).NotTo(HaveOccurred())

			got, err := svc.GetExpense(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.DescriptionText()).To(Equal("Taxi to client"))
		})

		It("refuses to create an approved expense", func() {
			_, err := svc.Create(ctx, newExpenseInput(1, expense.StatusApproved.ID(), 100, "2025-10-01"))
			Expect(err).To(HaveOccurred())
			Expect(repo.writeCalls()).To(BeEmpty())
		})

		It("surfaces store unavailability as a 503", func() {
			repo.createError = apperrors.ErrStoreUnavailable
			_, err := svc.Create(ctx, newExpenseInput(1, 0, 100, "2025-10-01"))
			Expect(stderrors.Is(err, apperrors.ErrStoreUnavailable)).To(BeTrue())
		})

		It("hides other store failures behind an internal error", func() {
			repo.createError = stderrors.New("sp_create_expense: connection reset")
			_, err := svc.Create(ctx, newExpenseInput(1, 0, 100, "2025-10-01"))
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(500))
			Expect(appErr.Message).NotTo(ContainSubstring("connection reset"))
		})
	})

	Describe("lifecycle operations", func() {
		var id int64

		BeforeEach(func() {
			var err error
			id, err = svc.Create(ctx, newExpenseInput(2, 0, 2540, "2025-10-01"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("submits a draft and stamps submittedAt", func() {
			Expect(svc.Submit(ctx, id)).To(Succeed())

			got, _ := svc.GetExpense(ctx, id)
			Expect(got.Status()).To(Equal(expense.StatusSubmitted))
			Expect(got.SubmittedAt).NotTo(BeNil())
		})

		It("approves a submitted expense and records the reviewer", func() {
			Expect(svc.Submit(ctx, id)).To(Succeed())
			Expect(svc.Approve(ctx, id, 2)).To(Succeed())

			got, _ := svc.GetExpense(ctx, id)
			Expect(got.Status()).To(Equal(expense.StatusApproved))
			Expect(got.ReviewedBy).To(HaveValue(Equal(int64(2))))
			Expect(got.ReviewedAt).NotTo(BeNil())
			Expect(publisher.types()).To(Equal([]string{
				events.EventTypeExpenseCreated,
				events.EventTypeExpenseSubmitted,
				events.EventTypeExpenseApproved,
			}))
		})

		It("rejects a submitted expense", func() {
			Expect(svc.Submit(ctx, id)).To(Succeed())
			Expect(svc.Reject(ctx, id, 2)).To(Succeed())

			got, _ := svc.GetExpense(ctx, id)
			Expect(got.Status()).To(Equal(expense.StatusRejected))
		})

		It("refuses to approve a draft with a conflict", func() {
			err := svc.Approve(ctx, id, 2)
			Expect(stderrors.Is(err, apperrors.ErrInvalidTransition)).To(BeTrue())
			appErr, _ := apperrors.IsAppError(err)
			Expect(appErr.StatusCode).To(Equal(409))
			Expect(repo.writeCalls()).To(Equal([]string{"CreateExpense"}))
		})

		It("refuses to submit twice", func() {
			Expect(svc.Submit(ctx, id)).To(Succeed())
			Expect(stderrors.Is(svc.Submit(ctx, id), apperrors.ErrInvalidTransition)).To(BeTrue())
		})

		It("keeps rejected expenses terminal by default", func() {
			Expect(svc.Submit(ctx, id)).To(Succeed())
			Expect(svc.Reject(ctx, id, 2)).To(Succeed())
			Expect(stderrors.Is(svc.Submit(ctx, id), apperrors.ErrInvalidTransition)).To(BeTrue())
		})

		It("allows resubmission when the policy permits it", func() {
			svc = expense.NewService(repo, quietLogger(), expense.WithPolicy(expense.Policy{AllowRejectedResubmission: true}))
			Expect(svc.Submit(ctx, id)).To(Succeed())
			Expect(svc.Reject(ctx, id, 2)).To(Succeed())
			Expect(svc.Submit(ctx, id)).To(Succeed())

			got, _ := svc.GetExpense(ctx, id)
			Expect(got.Status()).To(Equal(expense.StatusSubmitted))
			Expect(got.ReviewedBy).To(BeNil())
		})

		It("requires a reviewer", func() {
			Expect(svc.Submit(ctx, id)).To(Succeed())
			err := svc.Approve(ctx, id, 0)
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.FieldErrors()).To(HaveKeyWithValue("reviewedBy", "Please select a reviewer"))
		})

		It("only accepts an active manager as reviewer", func() {
			Expect(svc.Submit(ctx, id)).To(Succeed())
			for _, reviewer := range []int64{1, 42} {
				err := svc.Approve(ctx, id, reviewer)
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.StatusCode).To(Equal(400))
				Expect(appErr.FieldErrors()).To(HaveKeyWithValue("reviewedBy", "Please select a reviewer"))
			}
			Expect(svc.Reject(ctx, id, 42)).NotTo(Succeed())
			Expect(repo.writeCalls()).To(Equal([]string{"CreateExpense", "SubmitExpense"}))
		})

		It("rejects an update to an unknown category", func() {
			err := svc.Update(ctx, id, expense.ExpenseUpdate{
				CategoryID:  77,
				StatusID:    expense.StatusDraft.ID(),
				AmountMinor: 999,
				ExpenseDate: day("2025-10-02"),
				Description: "Printer paper",
			})
			appErr, _ := apperrors.IsAppError(err)
			Expect(appErr.FieldErrors()).To(HaveKey("categoryId"))
			Expect(repo.writeCalls()).To(Equal([]string{"CreateExpense"}))
		})

		It("rejects an update that blanks the description", func() {
			err := svc.Update(ctx, id, expense.ExpenseUpdate{
				CategoryID:  2,
				StatusID:    expense.StatusDraft.ID(),
				AmountMinor: 2540,
				ExpenseDate: day("2025-10-01"),
				Description: " \t ",
			})
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.FieldErrors()).To(HaveKey("description"))
			Expect(repo.writeCalls()).To(Equal([]string{"CreateExpense"}))
		})

		It("reports a missing expense as not found", func() {
			err := svc.Approve(ctx, 99999, 2)
			Expect(stderrors.Is(err, apperrors.ErrExpenseNotFound)).To(BeTrue())
		})

		It("deletes an expense so it can no longer be read", func() {
			Expect(svc.Delete(ctx, id)).To(Succeed())

			_, err := svc.GetExpense(ctx, id)
			Expect(stderrors.Is(err, apperrors.ErrExpenseNotFound)).To(BeTrue())
			Expect(stderrors.Is(svc.Delete(ctx, id), apperrors.ErrExpenseNotFound)).To(BeTrue())
		})

		It("updates editable fields of a draft", func() {
			err := svc.Update(ctx, id, expense.ExpenseUpdate{
				CategoryID:  3,
				StatusID:    expense.StatusDraft.ID(),
				AmountMinor: 999,
				ExpenseDate: day("2025-10-02"),
				Description: "Printer paper",
			})
			Expect(err).NotTo(HaveOccurred())

			got, _ := svc.GetExpense(ctx, id)
			Expect(got.CategoryName).To(Equal("Supplies"))
			Expect(got.AmountMinor).To(Equal(int64(999)))
			Expect(got.DescriptionText()).To(Equal("Printer paper"))
		})

		It("refuses to approve through an update", func() {
			Expect(svc.Submit(ctx, id)).To(Succeed())
			err := svc.Update(ctx, id, expense.ExpenseUpdate{
				CategoryID:  2,
				StatusID:    expense.StatusApproved.ID(),
				AmountMinor: 2540,
				ExpenseDate: day("2025-10-01"),
				Description: "Team lunch",
			})
			Expect(stderrors.Is(err, apperrors.ErrInvalidTransition)).To(BeTrue())
		})

		It("surfaces write failures while the store is down", func() {
			repo.writeError = apperrors.ErrStoreUnavailable
			Expect(stderrors.Is(svc.Submit(ctx, id), apperrors.ErrStoreUnavailable)).To(BeTrue())
		})
	})

	Describe("Filter", func() {
		BeforeEach(func() {
			seed := []expense.NewExpense{
				newExpenseInput(1, expense.StatusSubmitted.ID(), 1000, "2025-09-01"),
				newExpenseInput(2, expense.StatusSubmitted.ID(), 2000, "2025-09-15"),
				newExpenseInput(2, 0, 3000, "2025-10-01"),
			}
			for _, in := range seed {
				_, err := svc.Create(ctx, in)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(svc.Approve(ctx, 2, 2)).To(Succeed())
		})

		It("returns everything for an empty filter", func() {
			all, err := svc.ListExpenses(ctx)
			Expect(err).NotTo(HaveOccurred())

			filtered, err := svc.Filter(ctx, expense.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(filtered).To(HaveLen(len(all)))
		})

		It("matches status exactly", func() {
			got, err := svc.Filter(ctx, expense.Filter{Status: "Submitted"})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].ID).To(Equal(int64(1)))
		})

		It("combines status and category", func() {
			got, err := svc.Filter(ctx, expense.Filter{Status: "Approved", Category: "Meals"})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))

			got, err = svc.Filter(ctx, expense.Filter{Status: "Approved", Category: "Travel"})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())
		})

		It("filters an inclusive date range", func() {
			from, to := day("2025-09-15"), day("2025-10-01")
			got, err := svc.Filter(ctx, expense.Filter{DateFrom: &from, DateTo: &to})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))
		})

		It("rejects an inverted date range", func() {
			from, to := day("2025-10-01"), day("2025-09-01")
			_, err := svc.Filter(ctx, expense.Filter{DateFrom: &from, DateTo: &to})
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.FieldErrors()).To(HaveKey("dateFrom"))
		})

		It("lists pending expenses", func() {
			got, err := svc.ListPending(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
		})
	})
})

package web_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/expense"
	"github.com/frahmantamala/expense-assistant/internal/transport"
	"github.com/frahmantamala/expense-assistant/internal/web"
)

const testSessionID = "0b7d1c7e-4c57-4b8e-9a3f-1f2d3c4b5a69"

func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(apperrors.ContextWithSessionID(r.Context(), testSessionID)))
	})
}

var _ = Describe("Handler", func() {
	var (
		expenses *fakeExpenseService
		replier  *fakeReplier
		router   http.Handler
	)

	BeforeEach(func() {
		renderer, err := web.NewTemplateRenderer("")
		Expect(err).NotTo(HaveOccurred())

		expenses = newFakeExpenseService()
		replier = newFakeReplier()
		h := web.NewHandler(transport.NewBaseHandler(quietLogger()), expenses, fakeCategoryService{}, fakeUserService{}, replier, renderer)

		r := chi.NewRouter()
		h.Routes(r)
		router = withSession(r)
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	post := func(path string, form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	validForm := func() url.Values {
		return url.Values{
			"userId":      {"1"},
			"categoryId":  {"2"},
			"amount":      {"25.40"},
			"expenseDate": {"2025-03-01"},
			"description": {"Train to Leeds"},
		}
	}

	Describe("index", func() {
		It("lists expenses with formatted amounts", func() {
			expenses.add(expense.StatusDraft, 2540, "Taxi")

			rec := get("/")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(HavePrefix("text/html"))
			Expect(rec.Body.String()).To(ContainSubstring("£25.40"))
			Expect(rec.Body.String()).To(ContainSubstring("Taxi"))
			Expect(rec.Body.String()).To(ContainSubstring("2025-03-01"))
		})

		It("passes the selected filters through", func() {
			expenses.add(expense.StatusDraft, 100, "Draft one")
			expenses.add(expense.StatusSubmitted, 200, "Submitted one")

			rec := get("/?status=Submitted&category=Travel")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(expenses.filters).To(ContainElement(expense.Filter{Status: "Submitted", Category: "Travel"}))
			Expect(rec.Body.String()).To(ContainSubstring("Submitted one"))
			Expect(rec.Body.String()).NotTo(ContainSubstring("Draft one"))
		})

		It("escapes user supplied text", func() {
			expenses.add(expense.StatusDraft, 100, "<script>alert(1)</script>")

			body := get("/").Body.String()
			Expect(body).NotTo(ContainSubstring("<script>alert(1)</script>"))
			Expect(body).To(ContainSubstring("&lt;script&gt;"))
		})

		It("shows a notice after a redirect", func() {
			Expect(get("/?notice=created").Body.String()).To(ContainSubstring("Expense created successfully"))
		})

		It("shows an unavailable message when the store is down", func() {
			expenses.readErr = apperrors.ErrStoreUnavailable

			rec := get("/")
			Expect(rec.Body.String()).To(ContainSubstring("The expense database is unavailable right now."))
		})
	})

	Describe("creating", func() {
		It("creates a draft in the default currency and redirects", func() {
			rec := post("/expenses/new", validForm())

			Expect(rec.Code).To(Equal(http.StatusSeeOther))
			Expect(rec.Header().Get("Location")).To(Equal("/?notice=created"))
			Expect(expenses.created).To(HaveLen(1))
			created := expenses.created[0]
			Expect(created.AmountMinor).To(Equal(int64(2540)))
			Expect(created.StatusID).To(Equal(expense.StatusDraft.ID()))
			Expect(created.Currency).To(Equal("GBP"))
			Expect(created.CategoryID).To(Equal(int64(2)))
			Expect(created.ExpenseDate.Format(expense.DateLayout)).To(Equal("2025-03-01"))
		})

		It("re-renders the form with every field error", func() {
			form := validForm()
			form.Set("amount", "abc")
			form.Set("expenseDate", "")

			rec := post("/expenses/new", form)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			body := rec.Body.String()
			Expect(body).To(ContainSubstring("Please correct the highlighted fields."))
			Expect(body).To(ContainSubstring("Amount must be a number"))
			Expect(body).To(ContainSubstring("expenseDate is required"))
			Expect(body).To(ContainSubstring(`value="abc"`))
			Expect(expenses.created).To(BeEmpty())
		})

		It("rejects amounts with more than two decimals", func() {
			form := validForm()
			form.Set("amount", "1.005")

			rec := post("/expenses/new", form)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("Amount must have at most two decimal places"))
		})

		It("keeps the input when the store is unavailable", func() {
			expenses.writeErr = apperrors.ErrStoreUnavailable

			rec := post("/expenses/new", validForm())
			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(rec.Body.String()).To(ContainSubstring("The expense database is unavailable right now."))
			Expect(rec.Body.String()).To(ContainSubstring("Train to Leeds"))
		})
	})

	Describe("editing", func() {
		It("offers only the statuses an edit can reach", func() {
			e := expenses.add(expense.StatusDraft, 2540, "Taxi")

			rec := get("/expenses/" + itoa(e.ID) + "/edit")
			Expect(rec.Code).To(Equal(http.StatusOK))
			body := rec.Body.String()
			Expect(body).To(ContainSubstring(">Submitted<"))
			Expect(body).NotTo(ContainSubstring(">Approved<"))
			Expect(body).To(ContainSubstring(`value="25.40"`))
		})

		It("shows approved expenses read only", func() {
			e := expenses.add(expense.StatusApproved, 2540, "Taxi")

			rec := get("/expenses/" + itoa(e.ID) + "/edit")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("This expense is Approved and can no longer be edited."))
			Expect(rec.Body.String()).NotTo(ContainSubstring("Save Changes"))
		})

		It("returns the not found page for an unknown expense", func() {
			rec := get("/expenses/99999/edit")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(rec.Body.String()).To(ContainSubstring("Expense not found"))
		})

		It("saves changes and redirects", func() {
			e := expenses.add(expense.StatusDraft, 2540, "Taxi")
			form := validForm()
			form.Set("statusId", "2")

			rec := post("/expenses/"+itoa(e.ID)+"/edit", form)
			Expect(rec.Code).To(Equal(http.StatusSeeOther))
			Expect(rec.Header().Get("Location")).To(Equal("/?notice=updated"))
			Expect(expenses.updated).To(HaveLen(1))
			Expect(expenses.updated[0].StatusID).To(Equal(expense.StatusSubmitted.ID()))
		})

		It("returns not found when updating an unknown expense", func() {
			Expect(post("/expenses/99999/edit", validForm()).Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("deleting", func() {
		It("removes the expense and redirects with a notice", func() {
			e := expenses.add(expense.StatusSubmitted, 100, "Lunch")

			rec := post("/expenses/"+itoa(e.ID)+"/delete", url.Values{})
			Expect(rec.Code).To(Equal(http.StatusSeeOther))
			Expect(rec.Header().Get("Location")).To(Equal("/?notice=deleted"))
			Expect(expenses.deleted).To(Equal([]int64{e.ID}))
		})

		It("renders the index with an error for an unknown expense", func() {
			rec := post("/expenses/99999/delete", url.Values{})
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(rec.Body.String()).To(ContainSubstring("Expense not found"))
		})
	})

	Describe("approvals", func() {
		It("lists pending expenses and reviewers", func() {
			expenses.add(expense.StatusSubmitted, 4999, "Hotel")
			expenses.add(expense.StatusDraft, 100, "Not yet")

			body := get("/approvals").Body.String()
			Expect(body).To(ContainSubstring("Hotel"))
			Expect(body).To(ContainSubstring("£49.99"))
			Expect(body).To(ContainSubstring("Morgan Manager"))
			Expect(body).To(ContainSubstring("2025-03-02 09:30"))
			Expect(body).NotTo(ContainSubstring("Not yet"))
		})

		It("requires a reviewer", func() {
			e := expenses.add(expense.StatusSubmitted, 4999, "Hotel")

			rec := post("/approvals/"+itoa(e.ID)+"/approve", url.Values{"reviewerId": {"0"}})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("Please select a reviewer"))
			Expect(expenses.reviews).To(BeEmpty())
		})

		It("approves and redirects", func() {
			e := expenses.add(expense.StatusSubmitted, 4999, "Hotel")

			rec := post("/approvals/"+itoa(e.ID)+"/approve", url.Values{"reviewerId": {"2"}})
			Expect(rec.Code).To(Equal(http.StatusSeeOther))
			Expect(rec.Header().Get("Location")).To(Equal("/approvals?notice=approved"))
			Expect(expenses.reviews).To(Equal([]reviewCall{{id: e.ID, reviewerID: 2, outcome: "approved"}}))
		})

		It("rejects and redirects", func() {
			e := expenses.add(expense.StatusSubmitted, 4999, "Hotel")

			rec := post("/approvals/"+itoa(e.ID)+"/reject", url.Values{"reviewerId": {"2"}})
			Expect(rec.Code).To(Equal(http.StatusSeeOther))
			Expect(rec.Header().Get("Location")).To(Equal("/approvals?notice=rejected"))
		})

		It("reports an illegal transition as a conflict", func() {
			e := expenses.add(expense.StatusDraft, 4999, "Hotel")

			rec := post("/approvals/"+itoa(e.ID)+"/approve", url.Values{"reviewerId": {"2"}})
			Expect(rec.Code).To(Equal(http.StatusConflict))
			Expect(rec.Body.String()).To(ContainSubstring("cannot approve an expense in Draft status"))
		})
	})

	Describe("chat", func() {
		It("shows a hint before the first message", func() {
			rec := get("/chat")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("Ask about your expenses"))
		})

		It("posts, redirects and shows the transcript", func() {
			rec := post("/chat", url.Values{"message": {"hello there"}})
			Expect(rec.Code).To(Equal(http.StatusSeeOther))
			Expect(rec.Header().Get("Location")).To(Equal("/chat"))

			body := get("/chat").Body.String()
			Expect(body).To(ContainSubstring("hello there"))
			Expect(body).To(ContainSubstring("You said: hello there"))
		})

		It("rejects an empty message", func() {
			rec := post("/chat", url.Values{"message": {"   "}})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("Please enter a message"))
			Expect(replier.turns).To(BeEmpty())
		})
	})
})

package web

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/assistant"
	"github.com/frahmantamala/expense-assistant/internal/expense"
	"github.com/frahmantamala/expense-assistant/internal/session"
	"github.com/frahmantamala/expense-assistant/internal/transport"
)

const (
	msgStoreUnavailable = "The expense database is unavailable right now. Please try again later."
	msgUnexpected       = "Something went wrong. Please try again."
	msgFixFields        = "Please correct the highlighted fields."
)

type ExpenseService interface {
	ListExpenses(ctx context.Context) ([]*expense.Expense, error)
	GetExpense(ctx context.Context, id int64) (*expense.Expense, error)
	ListPending(ctx context.Context) ([]*expense.Expense, error)
	Filter(ctx context.Context, filter expense.Filter) ([]*expense.Expense, error)
	Statuses(ctx context.Context) ([]*expense.ExpenseStatus, error)
	Create(ctx context.Context, in expense.NewExpense) (int64, error)
	Update(ctx context.Context, id int64, in expense.ExpenseUpdate) error
	Delete(ctx context.Context, id int64) error
	Approve(ctx context.Context, id, reviewerID int64) error
	Reject(ctx context.Context, id, reviewerID int64) error
	DefaultCurrency() string
	Policy() expense.Policy
}

type CategoryService interface {
	GetActiveCategories(ctx context.Context) ([]*expense.Category, error)
}

type UserService interface {
	GetUsers(ctx context.Context) ([]*expense.User, error)
	GetReviewers(ctx context.Context) ([]*expense.User, error)
}

type Handler struct {
	*transport.BaseHandler
	Expenses   ExpenseService
	Categories CategoryService
	Users      UserService
	Chat       assistant.Replier
	Renderer   Renderer
}

func NewHandler(base *transport.BaseHandler, expenses ExpenseService, categories CategoryService, users UserService, chat assistant.Replier, renderer Renderer) *Handler {
	return &Handler{
		BaseHandler: base,
		Expenses:    expenses,
		Categories:  categories,
		Users:       users,
		Chat:        chat,
		Renderer:    renderer,
	}
}

// Routes mounts the form pages. chatLimits wrap only the chat post.
func (h *Handler) Routes(r chi.Router, chatLimits ...func(http.Handler) http.Handler) {
	r.Get("/", h.Index)
	r.Post("/expenses/{id}/delete", h.DeleteExpense)
	r.Get("/expenses/new", h.NewExpenseForm)
	r.Post("/expenses/new", h.CreateExpense)
	r.Get("/expenses/{id}/edit", h.EditExpenseForm)
	r.Post("/expenses/{id}/edit", h.UpdateExpense)
	r.Get("/approvals", h.Approvals)
	r.Post("/approvals/{id}/approve", h.ApproveExpense)
	r.Post("/approvals/{id}/reject", h.RejectExpense)
	r.Get("/chat", h.ChatPage)
	r.With(chatLimits...).Post("/chat", h.PostChat)
}

// ----------------- INDEX -----------------

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	view := IndexView{
		Page: Page{
			Title:   "Expenses",
			Nav:     "index",
			Success: noticeMessage(r.URL.Query().Get("notice")),
		},
		FilterStatus:   r.URL.Query().Get("status"),
		FilterCategory: r.URL.Query().Get("category"),
	}
	h.renderIndex(w, r, http.StatusOK, view)
}

func (h *Handler) renderIndex(w http.ResponseWriter, r *http.Request, status int, view IndexView) {
	ctx := r.Context()
	var err error
	if view.Statuses, err = h.Expenses.Statuses(ctx); err != nil {
		h.Logger.Error("Index: failed to load statuses", "error", err)
	}
	if view.Categories, err = h.Categories.GetActiveCategories(ctx); err != nil {
		h.Logger.Error("Index: failed to load categories", "error", err)
	}

	view.Expenses, err = h.Expenses.Filter(ctx, expense.Filter{Status: view.FilterStatus, Category: view.FilterCategory})
	if err != nil {
		h.Logger.Error("Index: failed to load expenses", "error", err)
		view.Error = userMessage(err)
	}
	h.render(w, status, PageIndex, view)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := transport.IDParam(r, "id")
	if !ok {
		h.notFound(w, "Expense not found")
		return
	}

	if err := h.Expenses.Delete(r.Context(), id); err != nil {
		h.Logger.Error("DeleteExpense: service error", "error", err, "expense_id", id)
		h.renderIndex(w, r, statusFor(err), IndexView{Page: Page{Title: "Expenses", Nav: "index", Error: userMessage(err)}})
		return
	}
	http.Redirect(w, r, "/?notice=deleted", http.StatusSeeOther)
}

// ----------------- CREATE / EDIT -----------------

func (h *Handler) NewExpenseForm(w http.ResponseWriter, r *http.Request) {
	view := ExpenseFormView{
		Page: Page{Title: "Add Expense", Nav: "new"},
		Form: ExpenseForm{StatusID: expense.StatusDraft.ID()},
	}
	h.renderForm(w, r, http.StatusOK, view)
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	form := readExpenseForm(r)
	view := ExpenseFormView{
		Page: Page{Title: "Add Expense", Nav: "new"},
		Form: form,
	}

	in, appErr := form.toNewExpense(h.Expenses.DefaultCurrency())
	if appErr != nil {
		h.formError(w, r, view, appErr)
		return
	}

	if _, err := h.Expenses.Create(r.Context(), in); err != nil {
		h.Logger.Error("CreateExpense: service error", "error", err)
		h.formError(w, r, view, err)
		return
	}
	http.Redirect(w, r, "/?notice=created", http.StatusSeeOther)
}

func (h *Handler) EditExpenseForm(w http.ResponseWriter, r *http.Request) {
	id, ok := transport.IDParam(r, "id")
	if !ok {
		h.notFound(w, "Expense not found")
		return
	}

	exp, err := h.Expenses.GetExpense(r.Context(), id)
	if err != nil {
		h.expenseLoadError(w, err, id)
		return
	}

	view := ExpenseFormView{
		Page:    Page{Title: "Edit Expense", Nav: "index"},
		Editing: true,
		Expense: exp,
		Form:    formFromExpense(exp),
	}
	if _, err := h.Expenses.Policy().Transition(exp.Status(), expense.ActionEdit); err != nil {
		view.ReadOnly = true
		view.Error = fmt.Sprintf("This expense is %s and can no longer be edited.", exp.StatusName)
	}
	h.renderForm(w, r, http.StatusOK, view)
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := transport.IDParam(r, "id")
	if !ok {
		h.notFound(w, "Expense not found")
		return
	}

	exp, err := h.Expenses.GetExpense(r.Context(), id)
	if err != nil {
		h.expenseLoadError(w, err, id)
		return
	}

	form := readExpenseForm(r)
	view := ExpenseFormView{
		Page:    Page{Title: "Edit Expense", Nav: "index"},
		Editing: true,
		Expense: exp,
		Form:    form,
	}

	in, appErr := form.toExpenseUpdate()
	if appErr != nil {
		h.formError(w, r, view, appErr)
		return
	}

	if err := h.Expenses.Update(r.Context(), id, in); err != nil {
		if stderrors.Is(err, errors.ErrExpenseNotFound) {
			h.notFound(w, "Expense not found")
			return
		}
		h.Logger.Error("UpdateExpense: service error", "error", err, "expense_id", id)
		h.formError(w, r, view, err)
		return
	}
	http.Redirect(w, r, "/?notice=updated", http.StatusSeeOther)
}

func (h *Handler) expenseLoadError(w http.ResponseWriter, err error, id int64) {
	if stderrors.Is(err, errors.ErrExpenseNotFound) {
		h.notFound(w, "Expense not found")
		return
	}
	h.Logger.Error("failed to load expense", "error", err, "expense_id", id)
	h.render(w, statusFor(err), PageNotFound, NotFoundView{
		Page:    Page{Title: "Error", Error: userMessage(err)},
		Message: userMessage(err),
	})
}

func (h *Handler) formError(w http.ResponseWriter, r *http.Request, view ExpenseFormView, err error) {
	view.Error = userMessage(err)
	if appErr, ok := errors.IsAppError(err); ok {
		view.FieldErrors = appErr.FieldErrors()
	}
	h.renderForm(w, r, statusFor(err), view)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, view ExpenseFormView) {
	ctx := r.Context()
	var err error
	if view.Users, err = h.Users.GetUsers(ctx); err != nil {
		h.Logger.Error("form: failed to load users", "error", err)
	}
	if view.Categories, err = h.Categories.GetActiveCategories(ctx); err != nil {
		h.Logger.Error("form: failed to load categories", "error", err)
	}
	if view.Editing && view.Expense != nil {
		view.Statuses = h.editableStatuses(ctx, view.Expense.Status())
	}
	h.render(w, status, PageExpenseForm, view)
}

// editableStatuses lists the statuses an edit may leave the expense in.
func (h *Handler) editableStatuses(ctx context.Context, current expense.Status) []*expense.ExpenseStatus {
	all, err := h.Expenses.Statuses(ctx)
	if err != nil {
		h.Logger.Error("form: failed to load statuses", "error", err)
		return nil
	}
	policy := h.Expenses.Policy()
	out := make([]*expense.ExpenseStatus, 0, len(all))
	for _, s := range all {
		status, ok := expense.StatusFromID(s.ID)
		if !ok {
			continue
		}
		if _, err := policy.ResolveUpdate(current, status); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// ----------------- APPROVALS -----------------

func (h *Handler) Approvals(w http.ResponseWriter, r *http.Request) {
	h.renderApprovals(w, r, http.StatusOK, ApprovalsView{
		Page: Page{
			Title:   "Approve Expenses",
			Nav:     "approvals",
			Success: noticeMessage(r.URL.Query().Get("notice")),
		},
	})
}

func (h *Handler) ApproveExpense(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "approved", h.Expenses.Approve)
}

func (h *Handler) RejectExpense(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "rejected", h.Expenses.Reject)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, notice string, apply func(context.Context, int64, int64) error) {
	view := ApprovalsView{Page: Page{Title: "Approve Expenses", Nav: "approvals"}}

	id, ok := transport.IDParam(r, "id")
	if !ok {
		h.notFound(w, "Expense not found")
		return
	}

	reviewerID, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue("reviewerId")), 10, 64)
	if appErr := expense.ValidateReviewer(reviewerID); appErr != nil {
		view.Error = appErr.FieldErrors()["reviewedBy"]
		h.renderApprovals(w, r, http.StatusBadRequest, view)
		return
	}

	if err := apply(r.Context(), id, reviewerID); err != nil {
		h.Logger.Error("review: service error", "error", err, "expense_id", id, "outcome", notice)
		view.Error = userMessage(err)
		h.renderApprovals(w, r, statusFor(err), view)
		return
	}
	http.Redirect(w, r, "/approvals?notice="+notice, http.StatusSeeOther)
}

func (h *Handler) renderApprovals(w http.ResponseWriter, r *http.Request, status int, view ApprovalsView) {
	ctx := r.Context()
	var err error
	if view.Pending, err = h.Expenses.ListPending(ctx); err != nil {
		h.Logger.Error("Approvals: failed to load pending expenses", "error", err)
		if view.Error == "" {
			view.Error = userMessage(err)
		}
	}
	if view.Reviewers, err = h.Users.GetReviewers(ctx); err != nil {
		h.Logger.Error("Approvals: failed to load reviewers", "error", err)
	}
	h.render(w, status, PageApprovals, view)
}

// ----------------- CHAT -----------------

func (h *Handler) ChatPage(w http.ResponseWriter, r *http.Request) {
	view := ChatView{Page: Page{Title: "Chat Assistant", Nav: "chat"}}
	h.renderChat(w, r, http.StatusOK, view)
}

func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	sessionID := errors.SessionIDFromContext(r.Context())
	view := ChatView{Page: Page{Title: "Chat Assistant", Nav: "chat"}}

	message, appErr := assistant.ValidateMessage(r.FormValue("message"))
	if appErr != nil || sessionID == "" {
		view.Error = "Please enter a message"
		h.renderChat(w, r, http.StatusBadRequest, view)
		return
	}

	h.Chat.Reply(r.Context(), sessionID, message)
	http.Redirect(w, r, "/chat", http.StatusSeeOther)
}

func (h *Handler) renderChat(w http.ResponseWriter, r *http.Request, status int, view ChatView) {
	view.Messages = []session.Turn{}
	if sessionID := errors.SessionIDFromContext(r.Context()); sessionID != "" {
		turns, err := h.Chat.History(r.Context(), sessionID)
		if err != nil {
			h.Logger.Error("Chat: failed to load history", "error", err)
		} else {
			view.Messages = turns
		}
	}
	h.render(w, status, PageChat, view)
}

// ----------------- HELPERS -----------------

func (h *Handler) notFound(w http.ResponseWriter, message string) {
	h.render(w, http.StatusNotFound, PageNotFound, NotFoundView{
		Page:    Page{Title: "Not Found"},
		Message: message,
	})
}

func (h *Handler) render(w http.ResponseWriter, status int, page string, data interface{}) {
	var buf bytes.Buffer
	if err := h.Renderer.Render(&buf, page, data); err != nil {
		h.Logger.Error("failed to render page", "page", page, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.Logger.Warn("failed to write page", "page", page, "error", err)
	}
}

// userMessage turns a service error into text that is safe to show.
func userMessage(err error) string {
	appErr, ok := errors.IsAppError(err)
	switch {
	case !ok:
		return msgUnexpected
	case appErr.StatusCode == http.StatusServiceUnavailable:
		return msgStoreUnavailable
	case appErr.StatusCode >= http.StatusInternalServerError:
		return msgUnexpected
	case len(appErr.FieldErrors()) > 0:
		return msgFixFields
	default:
		return appErr.Message
	}
}

func statusFor(err error) int {
	if appErr, ok := errors.IsAppError(err); ok && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

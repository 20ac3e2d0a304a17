package expense

import (
	"context"
	"fmt"
	"net/http"

	"github.com/frahmantamala/expense-assistant/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListExpenses(ctx context.Context) ([]*Expense, error)
	GetExpense(ctx context.Context, id int64) (*Expense, error)
	ListByStatus(ctx context.Context, status string) ([]*Expense, error)
	ListByUser(ctx context.Context, userID int64) ([]*Expense, error)
	ListPending(ctx context.Context) ([]*Expense, error)
	Filter(ctx context.Context, filter Filter) ([]*Expense, error)
	Statuses(ctx context.Context) ([]*ExpenseStatus, error)
	Create(ctx context.Context, in NewExpense) (int64, error)
	Update(ctx context.Context, id int64, in ExpenseUpdate) error
	Delete(ctx context.Context, id int64) error
	Submit(ctx context.Context, id int64) error
	Approve(ctx context.Context, id, reviewerID int64) error
	Reject(ctx context.Context, id, reviewerID int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.Service.ListExpenses(r.Context())
	if err != nil {
		h.Logger.Error("GetExpenses: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToResponses(expenses))
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := transport.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	exp, err := h.Service.GetExpense(r.Context(), expenseID)
	if err != nil {
		h.Logger.Warn("GetExpense: service error", "error", err, "expense_id", expenseID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToResponse(exp))
}

func (h *Handler) GetExpensesByStatus(w http.ResponseWriter, r *http.Request) {
	status := chi.URLParam(r, "name")
	expenses, err := h.Service.ListByStatus(r.Context(), status)
	if err != nil {
		h.Logger.Error("GetExpensesByStatus: service error", "error", err, "status", status)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToResponses(expenses))
}

func (h *Handler) GetExpensesByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := transport.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	expenses, err := h.Service.ListByUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error("GetExpensesByUser: service error", "error", err, "user_id", userID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToResponses(expenses))
}

func (h *Handler) GetPendingExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.Service.ListPending(r.Context())
	if err != nil {
		h.Logger.Error("GetPendingExpenses: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToResponses(expenses))
}

func (h *Handler) FilterExpenses(w http.ResponseWriter, r *http.Request) {
	filter, appErr := FilterFromQuery(r.URL.Query().Get)
	if appErr != nil {
		h.HandleServiceError(w, appErr)
		return
	}

	expenses, err := h.Service.Filter(r.Context(), filter)
	if err != nil {
		h.Logger.Error("FilterExpenses: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToResponses(expenses))
}

func (h *Handler) GetStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.Service.Statuses(r.Context())
	if err != nil {
		h.Logger.Error("GetStatuses: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, statuses)
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.Logger.Warn("CreateExpense: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, appErr := req.ToNewExpense()
	if appErr != nil {
		h.HandleServiceError(w, appErr)
		return
	}

	id, err := h.Service.Create(r.Context(), in)
	if err != nil {
		h.Logger.Error("CreateExpense: service error", "error", err, "user_id", req.UserID)
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/expenses/%d", id))
	h.WriteJSON(w, http.StatusCreated, CreatedResponse{ID: id, Status: "created"})
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := transport.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	var req UpdateExpenseRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.Logger.Warn("UpdateExpense: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, appErr := req.ToExpenseUpdate()
	if appErr != nil {
		h.HandleServiceError(w, appErr)
		return
	}

	if err := h.Service.Update(r.Context(), expenseID, in); err != nil {
		h.Logger.Error("UpdateExpense: service error", "error", err, "expense_id", expenseID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MutationResponse{ID: expenseID, Status: "updated"})
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := transport.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	if err := h.Service.Delete(r.Context(), expenseID); err != nil {
		h.Logger.Error("DeleteExpense: service error", "error", err, "expense_id", expenseID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MutationResponse{ID: expenseID, Status: "deleted"})
}

func (h *Handler) SubmitExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := transport.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	if err := h.Service.Submit(r.Context(), expenseID); err != nil {
		h.Logger.Error("SubmitExpense: service error", "error", err, "expense_id", expenseID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MutationResponse{ID: expenseID, Status: "submitted"})
}

func (h *Handler) ApproveExpense(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "approved", h.Service.Approve)
}

func (h *Handler) RejectExpense(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "rejected", h.Service.Reject)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, outcome string, apply func(context.Context, int64, int64) error) {
	expenseID, ok := transport.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	var req ReviewRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.Logger.Warn("review: invalid request body", "error", err, "expense_id", expenseID)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := apply(r.Context(), expenseID, req.ReviewedBy); err != nil {
		h.Logger.Error("review: service error", "error", err, "expense_id", expenseID, "outcome", outcome)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MutationResponse{ID: expenseID, Status: outcome})
}

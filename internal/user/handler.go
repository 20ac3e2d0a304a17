package user

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expense-assistant/internal/transport"
)

type ServiceAPI interface {
	GetUsers(ctx context.Context) ([]*User, error)
	GetReviewers(ctx context.Context) ([]*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// GetUsers handles GET /api/users; ?role=manager narrows to reviewers.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	get := h.Service.GetUsers
	if r.URL.Query().Get("role") == "manager" {
		get = h.Service.GetReviewers
	}

	users, err := get(r.Context())
	if err != nil {
		h.Logger.Error("GetUsers: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToResponses(users))
}

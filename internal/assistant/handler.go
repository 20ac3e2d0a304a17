package assistant

import (
	"context"
	"net/http"
	"strings"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/session"
	"github.com/frahmantamala/expense-assistant/internal/transport"
)

const maxMessageLength = 4000

type Replier interface {
	Reply(ctx context.Context, sessionID, message string) string
	History(ctx context.Context, sessionID string) ([]session.Turn, error)
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type Handler struct {
	*transport.BaseHandler
	Assistant Replier
}

func NewHandler(baseHandler *transport.BaseHandler, assistant Replier) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Assistant:   assistant,
	}
}

// ValidateMessage trims the message and checks it is present and bounded.
func ValidateMessage(message string) (string, *errors.AppError) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.NewValidationFieldError("message", "Please enter a message", errors.ErrCodeValidationFailed)
	}
	if len(message) > maxMessageLength {
		return "", errors.NewValidationFieldError("message", "Message is too long", errors.ErrCodeValidationFailed)
	}
	return message, nil
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	sessionID := errors.SessionIDFromContext(r.Context())
	if sessionID == "" {
		h.WriteError(w, http.StatusBadRequest, "missing session")
		return
	}

	var req ChatRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.Logger.Warn("Chat: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, appErr := ValidateMessage(req.Message)
	if appErr != nil {
		h.HandleServiceError(w, appErr)
		return
	}

	h.WriteJSON(w, http.StatusOK, ChatResponse{Reply: h.Assistant.Reply(r.Context(), sessionID, message)})
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := errors.SessionIDFromContext(r.Context())
	if sessionID == "" {
		h.WriteJSON(w, http.StatusOK, []session.Turn{})
		return
	}

	turns, err := h.Assistant.History(r.Context(), sessionID)
	if err != nil {
		h.Logger.Error("GetHistory: failed to load history", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, turns)
}

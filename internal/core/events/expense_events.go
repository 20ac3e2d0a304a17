package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExpenseCreated   = "expense.created"
	EventTypeExpenseUpdated   = "expense.updated"
	EventTypeExpenseDeleted   = "expense.deleted"
	EventTypeExpenseSubmitted = "expense.submitted"
	EventTypeExpenseApproved  = "expense.approved"
	EventTypeExpenseRejected  = "expense.rejected"
)

// ExpenseLifecycleTypes is every event the expense service publishes.
var ExpenseLifecycleTypes = []string{
	EventTypeExpenseCreated,
	EventTypeExpenseUpdated,
	EventTypeExpenseDeleted,
	EventTypeExpenseSubmitted,
	EventTypeExpenseApproved,
	EventTypeExpenseRejected,
}

type ExpenseEvent struct {
	BaseEvent
	ExpenseID  int64  `json:"expense_id"`
	Status     string `json:"status,omitempty"`
	ReviewerID int64  `json:"reviewer_id,omitempty"`
}

func NewExpenseEvent(eventType string, expenseID int64, status string, reviewerID int64) *ExpenseEvent {
	data := map[string]interface{}{
		"expense_id": expenseID,
	}
	if status != "" {
		data["status"] = status
	}
	if reviewerID != 0 {
		data["reviewer_id"] = reviewerID
	}
	return &ExpenseEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data:      data,
		},
		ExpenseID:  expenseID,
		Status:     status,
		ReviewerID: reviewerID,
	}
}

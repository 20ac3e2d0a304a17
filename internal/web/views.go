package web

import (
	"github.com/frahmantamala/expense-assistant/internal/expense"
	"github.com/frahmantamala/expense-assistant/internal/session"
)

// Page carries what the layout needs on every page.
type Page struct {
	Title   string
	Nav     string
	Success string
	Error   string
}

type IndexView struct {
	Page
	Expenses       []*expense.Expense
	Statuses       []*expense.ExpenseStatus
	Categories     []*expense.Category
	FilterStatus   string
	FilterCategory string
}

// ExpenseForm holds raw form input so a failed submit re-renders exactly what was typed.
type ExpenseForm struct {
	UserID      int64
	CategoryID  int64
	StatusID    int64
	Amount      string
	ExpenseDate string
	Description string
}

type ExpenseFormView struct {
	Page
	Editing     bool
	ReadOnly    bool
	Expense     *expense.Expense
	Form        ExpenseForm
	FieldErrors map[string]string
	Users       []*expense.User
	Categories  []*expense.Category
	Statuses    []*expense.ExpenseStatus
}

type ApprovalsView struct {
	Page
	Pending   []*expense.Expense
	Reviewers []*expense.User
}

type ChatView struct {
	Page
	Messages []session.Turn
	Message  string
}

type NotFoundView struct {
	Page
	Message string
}

var notices = map[string]string{
	"created":  "Expense created successfully",
	"updated":  "Expense updated successfully",
	"deleted":  "Expense deleted successfully",
	"approved": "Expense approved successfully",
	"rejected": "Expense rejected successfully",
}

func noticeMessage(key string) string {
	return notices[key]
}

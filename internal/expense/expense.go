package expense

import (
	"context"
	"strings"
	"time"

	expenseDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/expense"
	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

type Status string

const (
	StatusDraft     Status = "Draft"
	StatusSubmitted Status = "Submitted"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
)

var statusIDs = map[Status]int64{
	StatusDraft:     1,
	StatusSubmitted: 2,
	StatusApproved:  3,
	StatusRejected:  4,
}

// AllStatuses lists the fixed status universe in id order.
var AllStatuses = []Status{StatusDraft, StatusSubmitted, StatusApproved, StatusRejected}

func (s Status) ID() int64 {
	return statusIDs[s]
}

func (s Status) Valid() bool {
	_, ok := statusIDs[s]
	return ok
}

func StatusFromID(id int64) (Status, bool) {
	for status, sid := range statusIDs {
		if sid == id {
			return status, true
		}
	}
	return "", false
}

// ParseStatus resolves a status name case-insensitively.
func ParseStatus(name string) (Status, bool) {
	for _, status := range AllStatuses {
		if strings.EqualFold(string(status), strings.TrimSpace(name)) {
			return status, true
		}
	}
	return "", false
}

type Expense struct {
	ID             int64      `json:"expenseId"`
	UserID         int64      `json:"userId"`
	UserName       string     `json:"userName"`
	Email          string     `json:"email"`
	CategoryID     int64      `json:"categoryId"`
	CategoryName   string     `json:"categoryName"`
	StatusID       int64      `json:"statusId"`
	StatusName     string     `json:"statusName"`
	AmountMinor    int64      `json:"amountMinor"`
	Currency       string     `json:"currency"`
	ExpenseDate    time.Time  `json:"expenseDate"`
	Description    *string    `json:"description,omitempty"`
	ReceiptFile    *string    `json:"receiptFile,omitempty"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`
	ReviewedBy     *int64     `json:"reviewedBy,omitempty"`
	ReviewedByName *string    `json:"reviewedByName,omitempty"`
	ReviewedAt     *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Status prefers the status id; the name column is display data.
func (e *Expense) Status() Status {
	if s, ok := StatusFromID(e.StatusID); ok {
		return s
	}
	s, _ := ParseStatus(e.StatusName)
	return s
}

func (e *Expense) AmountMajor() decimal.Decimal {
	return MajorFromMinor(e.AmountMinor)
}

func (e *Expense) FormattedAmount() string {
	return FormatAmount(e.AmountMinor, e.Currency)
}

func (e *Expense) DescriptionText() string {
	if e.Description == nil {
		return ""
	}
	return *e.Description
}

type Category struct {
	ID       int64  `json:"categoryId"`
	Name     string `json:"categoryName"`
	IsActive bool   `json:"isActive"`
}

type ExpenseStatus struct {
	ID   int64  `json:"statusId"`
	Name string `json:"statusName"`
}

type User struct {
	ID          int64     `json:"userId"`
	Name        string    `json:"userName"`
	Email       string    `json:"email"`
	RoleID      int64     `json:"roleId"`
	RoleName    string    `json:"roleName"`
	ManagerID   *int64    `json:"managerId,omitempty"`
	ManagerName *string   `json:"managerName,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

const RoleManager = "Manager"

func (u *User) IsManager() bool {
	return strings.EqualFold(u.RoleName, RoleManager)
}

// NewExpense carries the fields of a create request.
type NewExpense struct {
	UserID      int64
	CategoryID  int64
	StatusID    int64
	AmountMinor int64
	Currency    string
	ExpenseDate time.Time
	Description string
	ReceiptFile *string
}

// ExpenseUpdate carries the editable fields; owner and currency are fixed at creation.
type ExpenseUpdate struct {
	CategoryID  int64
	StatusID    int64
	AmountMinor int64
	ExpenseDate time.Time
	Description string
}

// Filter criteria are optional and combined with AND. Date bounds are inclusive.
type Filter struct {
	Status   string
	Category string
	UserID   *int64
	DateFrom *time.Time
	DateTo   *time.Time
}

func (f Filter) IsEmpty() bool {
	return f.Status == "" && f.Category == "" && f.UserID == nil && f.DateFrom == nil && f.DateTo == nil
}

// Matches applies the filter in memory with the same semantics as sp_filter_expenses.
func (f Filter) Matches(e *Expense) bool {
	if f.Status != "" && e.StatusName != f.Status {
		return false
	}
	if f.Category != "" && e.CategoryName != f.Category {
		return false
	}
	if f.UserID != nil && e.UserID != *f.UserID {
		return false
	}
	day := truncateDay(e.ExpenseDate)
	if f.DateFrom != nil && day.Before(truncateDay(*f.DateFrom)) {
		return false
	}
	if f.DateTo != nil && day.After(truncateDay(*f.DateTo)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Repository is the persistence port. Single-row mutations return the affected row count.
type Repository interface {
	GetExpenses(ctx context.Context) ([]*Expense, error)
	GetExpenseByID(ctx context.Context, id int64) (*Expense, error)
	GetExpensesByStatus(ctx context.Context, status string) ([]*Expense, error)
	GetExpensesByUserID(ctx context.Context, userID int64) ([]*Expense, error)
	GetPendingExpenses(ctx context.Context) ([]*Expense, error)
	FilterExpenses(ctx context.Context, filter Filter) ([]*Expense, error)
	CreateExpense(ctx context.Context, in NewExpense) (int64, error)
	UpdateExpense(ctx context.Context, id int64, in ExpenseUpdate) (int64, error)
	DeleteExpense(ctx context.Context, id int64) (int64, error)
	SubmitExpense(ctx context.Context, id int64) (int64, error)
	ApproveExpense(ctx context.Context, id, reviewerID int64) (int64, error)
	RejectExpense(ctx context.Context, id, reviewerID int64) (int64, error)
	GetCategories(ctx context.Context) ([]*Category, error)
	GetStatuses(ctx context.Context) ([]*ExpenseStatus, error)
	GetUsers(ctx context.Context) ([]*User, error)
}

func FromDataModel(row *expenseDatamodel.ExpenseRow) *Expense {
	return &Expense{
		ID:             row.ExpenseID,
		UserID:         row.UserID,
		UserName:       row.UserName,
		Email:          row.Email,
		CategoryID:     row.CategoryID,
		CategoryName:   row.CategoryName,
		StatusID:       row.StatusID,
		StatusName:     row.StatusName,
		AmountMinor:    row.AmountMinor,
		Currency:       strings.TrimSpace(row.Currency),
		ExpenseDate:    row.ExpenseDate,
		Description:    row.Description,
		ReceiptFile:    row.ReceiptFile,
		SubmittedAt:    row.SubmittedAt,
		ReviewedBy:     row.ReviewedBy,
		ReviewedByName: row.ReviewedByName,
		ReviewedAt:     row.ReviewedAt,
		CreatedAt:      row.CreatedAt,
	}
}

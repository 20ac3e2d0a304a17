package expense

import (
	"strconv"

	errors "github.com/frahmantamala/expense-assistant/internal"
)

type CreateExpenseRequest struct {
	UserID      int64   `json:"userId"`
	CategoryID  int64   `json:"categoryId"`
	StatusID    int64   `json:"statusId"`
	AmountMinor int64   `json:"amountMinor"`
	Currency    string  `json:"currency"`
	ExpenseDate string  `json:"expenseDate"`
	Description string  `json:"description"`
	ReceiptFile *string `json:"receiptFile,omitempty"`
}

func (r CreateExpenseRequest) ToNewExpense() (NewExpense, *errors.AppError) {
	date, appErr := ParseDate("expenseDate", r.ExpenseDate)
	if appErr != nil {
		return NewExpense{}, appErr
	}
	return NewExpense{
		UserID:      r.UserID,
		CategoryID:  r.CategoryID,
		StatusID:    r.StatusID,
		AmountMinor: r.AmountMinor,
		Currency:    r.Currency,
		ExpenseDate: date,
		Description: r.Description,
		ReceiptFile: r.ReceiptFile,
	}, nil
}

type UpdateExpenseRequest struct {
	CategoryID  int64  `json:"categoryId"`
	StatusID    int64  `json:"statusId"`
	AmountMinor int64  `json:"amountMinor"`
	ExpenseDate string `json:"expenseDate"`
	Description string `json:"description"`
}

func (r UpdateExpenseRequest) ToExpenseUpdate() (ExpenseUpdate, *errors.AppError) {
	date, appErr := ParseDate("expenseDate", r.ExpenseDate)
	if appErr != nil {
		return ExpenseUpdate{}, appErr
	}
	return ExpenseUpdate{
		CategoryID:  r.CategoryID,
		StatusID:    r.StatusID,
		AmountMinor: r.AmountMinor,
		ExpenseDate: date,
		Description: r.Description,
	}, nil
}

type ReviewRequest struct {
	ReviewedBy int64 `json:"reviewedBy"`
}

type ExpenseResponse struct {
	*Expense
	ExpenseDate     string `json:"expenseDate"`
	Amount          string `json:"amount"`
	FormattedAmount string `json:"formattedAmount"`
}

func ToResponse(e *Expense) ExpenseResponse {
	return ExpenseResponse{
		Expense:         e,
		ExpenseDate:     e.ExpenseDate.Format(DateLayout),
		Amount:          e.AmountMajor().StringFixed(minorUnitExponent),
		FormattedAmount: e.FormattedAmount(),
	}
}

func ToResponses(expenses []*Expense) []ExpenseResponse {
	out := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, ToResponse(e))
	}
	return out
}

type CreatedResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type MutationResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// FilterFromQuery reads status, category, userId, dateFrom and dateTo.
func FilterFromQuery(get func(string) string) (Filter, *errors.AppError) {
	f := Filter{
		Status:   get("status"),
		Category: get("category"),
	}
	if raw := get("userId"); raw != "" {
		id, appErr := parseQueryID("userId", raw)
		if appErr != nil {
			return Filter{}, appErr
		}
		f.UserID = &id
	}
	if raw := get("dateFrom"); raw != "" {
		d, appErr := ParseDate("dateFrom", raw)
		if appErr != nil {
			return Filter{}, appErr
		}
		f.DateFrom = &d
	}
	if raw := get("dateTo"); raw != "" {
		d, appErr := ParseDate("dateTo", raw)
		if appErr != nil {
			return Filter{}, appErr
		}
		f.DateTo = &d
	}
	return f, nil
}

func parseQueryID(field, raw string) (int64, *errors.AppError) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationFieldError(field, field+" must be a positive integer", errors.ErrCodeValidationFailed)
	}
	return id, nil
}

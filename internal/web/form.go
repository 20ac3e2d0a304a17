package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/expense"
)

func readExpenseForm(r *http.Request) ExpenseForm {
	return ExpenseForm{
		UserID:      formInt(r, "userId"),
		CategoryID:  formInt(r, "categoryId"),
		StatusID:    formInt(r, "statusId"),
		Amount:      strings.TrimSpace(r.FormValue("amount")),
		ExpenseDate: strings.TrimSpace(r.FormValue("expenseDate")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
}

func formInt(r *http.Request, key string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(r.FormValue(key)), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func formFromExpense(e *expense.Expense) ExpenseForm {
	return ExpenseForm{
		UserID:      e.UserID,
		CategoryID:  e.CategoryID,
		StatusID:    e.StatusID,
		Amount:      e.AmountMajor().StringFixed(2),
		ExpenseDate: e.ExpenseDate.Format(expense.DateLayout),
		Description: e.DescriptionText(),
	}
}

// parse converts the major-unit amount and the date, collecting both field errors.
func (f ExpenseForm) parse() (int64, time.Time, *errors.AppError) {
	var details errors.ValidationErrors
	collect := func(appErr *errors.AppError) {
		if ve, ok := appErr.Details.(errors.ValidationErrors); ok {
			details.Errors = append(details.Errors, ve.Errors...)
		}
	}

	amount, appErr := expense.ParseAmount("amount", f.Amount)
	if appErr != nil {
		collect(appErr)
	}
	date, appErr := expense.ParseDate("expenseDate", f.ExpenseDate)
	if appErr != nil {
		collect(appErr)
	}
	if len(details.Errors) > 0 {
		return 0, time.Time{}, errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).WithDetails(details)
	}
	return amount, date, nil
}

// toNewExpense always creates a Draft in the default currency.
func (f ExpenseForm) toNewExpense(currency string) (expense.NewExpense, *errors.AppError) {
	amount, date, appErr := f.parse()
	if appErr != nil {
		return expense.NewExpense{}, appErr
	}
	return expense.NewExpense{
		UserID:      f.UserID,
		CategoryID:  f.CategoryID,
		StatusID:    expense.StatusDraft.ID(),
		AmountMinor: amount,
		Currency:    currency,
		ExpenseDate: date,
		Description: f.Description,
	}, nil
}

func (f ExpenseForm) toExpenseUpdate() (expense.ExpenseUpdate, *errors.AppError) {
	amount, date, appErr := f.parse()
	if appErr != nil {
		return expense.ExpenseUpdate{}, appErr
	}
	return expense.ExpenseUpdate{
		CategoryID:  f.CategoryID,
		StatusID:    f.StatusID,
		AmountMinor: amount,
		ExpenseDate: date,
		Description: f.Description,
	}, nil
}

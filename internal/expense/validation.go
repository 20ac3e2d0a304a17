package expense

import (
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/core/common/validation"
)

func ValidateNewExpense(in NewExpense) *errors.AppError {
	v := validation.NewValidator()
	v.Field("userId", in.UserID).Positive(errors.ErrCodeInvalidUser)
	v.Field("categoryId", in.CategoryID).Positive(errors.ErrCodeInvalidCategory)
	v.Field("amountMinor", in.AmountMinor).
		MinInt(validation.MinAmountMinor, errors.ErrCodeAmountTooLow).
		MaxInt(validation.MaxAmountMinor, errors.ErrCodeAmountTooHigh)
	v.Field("currency", in.Currency).Required().CurrencyCode()
	v.Field("expenseDate", in.ExpenseDate).Required()
	v.Field("description", in.Description).
		Required().
		MaxLength(validation.MaxDescriptionLength, errors.ErrCodeInvalidDescription)
	return v.Validate()
}

func ValidateUpdate(in ExpenseUpdate) *errors.AppError {
	v := validation.NewValidator()
	v.Field("categoryId", in.CategoryID).Positive(errors.ErrCodeInvalidCategory)
	v.Field("statusId", in.StatusID).Positive(errors.ErrCodeInvalidStatus)
	v.Field("amountMinor", in.AmountMinor).
		MinInt(validation.MinAmountMinor, errors.ErrCodeAmountTooLow).
		MaxInt(validation.MaxAmountMinor, errors.ErrCodeAmountTooHigh)
	v.Field("expenseDate", in.ExpenseDate).Required()
	v.Field("description", in.Description).
		Required().
		MaxLength(validation.MaxDescriptionLength, errors.ErrCodeInvalidDescription)
	return v.Validate()
}

func ValidateReviewer(reviewerID int64) *errors.AppError {
	if reviewerID <= 0 {
		return errors.NewValidationFieldError("reviewedBy", "Please select a reviewer", errors.ErrCodeInvalidReviewer)
	}
	return nil
}

// ParseDate accepts YYYY-MM-DD or RFC 3339.
func ParseDate(field, raw string) (time.Time, *errors.AppError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.NewValidationFieldError(field, field+" is required", errors.ErrCodeInvalidDate)
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, errors.NewValidationFieldError(field, field+" must be a date in YYYY-MM-DD format", errors.ErrCodeInvalidDate)
}

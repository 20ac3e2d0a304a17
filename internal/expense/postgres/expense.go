package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/expense-assistant/internal"
	categoryDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/category"
	expenseDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/expense"
	userDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-assistant/internal/expense"
	"github.com/frahmantamala/expense-assistant/internal/metrics"
	"github.com/jmoiron/sqlx"
)

const (
	fallbackUnhealthy   = "store_unhealthy"
	fallbackQueryFailed = "query_failed"
)

// ExpenseRepository implements expense.Repository with stored procedure calls.
// Reads fall back to fixture data; writes never do.
type ExpenseRepository struct {
	db           *sqlx.DB
	health       HealthChecker
	queryTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

type Option func(*ExpenseRepository)

func WithQueryTimeout(d time.Duration) Option {
	return func(r *ExpenseRepository) { r.queryTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *ExpenseRepository) { r.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(r *ExpenseRepository) { r.now = now }
}

func NewExpenseRepository(db *sqlx.DB, health HealthChecker, opts ...Option) *ExpenseRepository {
	r := &ExpenseRepository{
		db:     db,
		health: health,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ expense.Repository = (*ExpenseRepository)(nil)

func (r *ExpenseRepository) available() bool {
	return r.db != nil && r.health != nil && r.health.Healthy()
}

func (r *ExpenseRepository) fallback(operation string, err error) {
	if err == nil {
		metrics.RecordFallback(operation, fallbackUnhealthy)
		r.logger.Debug("store unhealthy, serving fixtures", "operation", operation)
		return
	}
	metrics.RecordFallback(operation, fallbackQueryFailed)
	r.logger.Error("stored procedure failed, serving fixtures", "operation", operation, "error", err)
}

// selectExpenses runs a set-returning expense procedure, or filters the fixtures when it cannot.
func (r *ExpenseRepository) selectExpenses(ctx context.Context, proc string, keep func(*expense.Expense) bool, args ...interface{}) ([]*expense.Expense, error) {
	if !r.available() {
		r.fallback(proc, nil)
		return r.fixtureExpenses(keep), nil
	}

	ctx, cancel := errors.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var rows []expenseDatamodel.ExpenseRow
	if err := r.db.SelectContext(ctx, &rows, rowsCall(proc, len(args)), args...); err != nil {
		r.fallback(proc, err)
		return r.fixtureExpenses(keep), nil
	}

	out := make([]*expense.Expense, 0, len(rows))
	for i := range rows {
		out = append(out, expense.FromDataModel(&rows[i]))
	}
	return out, nil
}

func (r *ExpenseRepository) fixtureExpenses(keep func(*expense.Expense) bool) []*expense.Expense {
	all := FixtureExpenses(r.now())
	if keep == nil {
		return all
	}
	out := make([]*expense.Expense, 0, len(all))
	for _, e := range all {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (r *ExpenseRepository) GetExpenses(ctx context.Context) ([]*expense.Expense, error) {
	return r.selectExpenses(ctx, procGetExpenses, nil)
}

func (r *ExpenseRepository) GetExpenseByID(ctx context.Context, id int64) (*expense.Expense, error) {
	expenses, err := r.selectExpenses(ctx, procGetExpenseByID, func(e *expense.Expense) bool { return e.ID == id }, id)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, errors.ErrExpenseNotFound
	}
	return expenses[0], nil
}

func (r *ExpenseRepository) GetExpensesByStatus(ctx context.Context, status string) ([]*expense.Expense, error) {
	return r.selectExpenses(ctx, procGetExpensesByStatus, func(e *expense.Expense) bool { return e.StatusName == status }, status)
}

func (r *ExpenseRepository) GetExpensesByUserID(ctx context.Context, userID int64) ([]*expense.Expense, error) {
	return r.selectExpenses(ctx, procGetExpensesByUserID, func(e *expense.Expense) bool { return e.UserID == userID }, userID)
}

func (r *ExpenseRepository) GetPendingExpenses(ctx context.Context) ([]*expense.Expense, error) {
	return r.selectExpenses(ctx, procGetPendingExpenses, func(e *expense.Expense) bool {
		return e.StatusName == string(expense.StatusSubmitted)
	})
}

func (r *ExpenseRepository) FilterExpenses(ctx context.Context, filter expense.Filter) ([]*expense.Expense, error) {
	return r.selectExpenses(ctx, procFilterExpenses, filter.Matches,
		nullString(filter.Status),
		nullString(filter.Category),
		nullInt(filter.UserID),
		nullDate(filter.DateFrom),
		nullDate(filter.DateTo),
	)
}

// scalar runs a write procedure that returns a single integer.
func (r *ExpenseRepository) scalar(ctx context.Context, proc string, args ...interface{}) (int64, error) {
	if !r.available() {
		r.logger.Warn("write rejected, store unavailable", "operation", proc)
		return 0, errors.ErrStoreUnavailable
	}

	ctx, cancel := errors.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var result sql.NullInt64
	if err := r.db.GetContext(ctx, &result, scalarCall(proc, len(args)), args...); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%s: %w", proc, err)
	}
	return result.Int64, nil
}

func (r *ExpenseRepository) CreateExpense(ctx context.Context, in expense.NewExpense) (int64, error) {
	return r.scalar(ctx, procCreateExpense,
		in.UserID,
		in.CategoryID,
		in.StatusID,
		in.AmountMinor,
		in.Currency,
		in.ExpenseDate.Format(expense.DateLayout),
		in.Description,
		nullStringPtr(in.ReceiptFile),
	)
}

func (r *ExpenseRepository) UpdateExpense(ctx context.Context, id int64, in expense.ExpenseUpdate) (int64, error) {
	return r.scalar(ctx, procUpdateExpense,
		id,
		in.CategoryID,
		in.StatusID,
		in.AmountMinor,
		in.ExpenseDate.Format(expense.DateLayout),
		in.Description,
	)
}

func (r *ExpenseRepository) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	return r.scalar(ctx, procDeleteExpense, id)
}

func (r *ExpenseRepository) SubmitExpense(ctx context.Context, id int64) (int64, error) {
	return r.scalar(ctx, procSubmitExpense, id)
}

func (r *ExpenseRepository) ApproveExpense(ctx context.Context, id, reviewerID int64) (int64, error) {
	return r.scalar(ctx, procApproveExpense, id, reviewerID)
}

func (r *ExpenseRepository) RejectExpense(ctx context.Context, id, reviewerID int64) (int64, error) {
	return r.scalar(ctx, procRejectExpense, id, reviewerID)
}

func (r *ExpenseRepository) GetCategories(ctx context.Context) ([]*expense.Category, error) {
	if !r.available() {
		r.fallback(procGetCategories, nil)
		return FixtureCategories(), nil
	}

	ctx, cancel := errors.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var rows []categoryDatamodel.ExpenseCategory
	if err := r.db.SelectContext(ctx, &rows, rowsCall(procGetCategories, 0)); err != nil {
		r.fallback(procGetCategories, err)
		return FixtureCategories(), nil
	}

	out := make([]*expense.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, &expense.Category{ID: row.CategoryID, Name: row.CategoryName, IsActive: row.IsActive})
	}
	return out, nil
}

func (r *ExpenseRepository) GetStatuses(ctx context.Context) ([]*expense.ExpenseStatus, error) {
	if !r.available() {
		r.fallback(procGetStatuses, nil)
		return FixtureStatuses(), nil
	}

	ctx, cancel := errors.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var rows []expenseDatamodel.ExpenseStatus
	if err := r.db.SelectContext(ctx, &rows, rowsCall(procGetStatuses, 0)); err != nil {
		r.fallback(procGetStatuses, err)
		return FixtureStatuses(), nil
	}

	out := make([]*expense.ExpenseStatus, 0, len(rows))
	for _, row := range rows {
		out = append(out, &expense.ExpenseStatus{ID: row.StatusID, Name: row.StatusName})
	}
	return out, nil
}

func (r *ExpenseRepository) GetUsers(ctx context.Context) ([]*expense.User, error) {
	if !r.available() {
		r.fallback(procGetUsers, nil)
		return FixtureUsers(r.now()), nil
	}

	ctx, cancel := errors.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var rows []userDatamodel.UserRow
	if err := r.db.SelectContext(ctx, &rows, rowsCall(procGetUsers, 0)); err != nil {
		r.fallback(procGetUsers, err)
		return FixtureUsers(r.now()), nil
	}

	out := make([]*expense.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, &expense.User{
			ID:          row.UserID,
			Name:        row.UserName,
			Email:       row.Email,
			RoleID:      row.RoleID,
			RoleName:    row.RoleName,
			ManagerID:   row.ManagerID,
			ManagerName: row.ManagerName,
			IsActive:    row.IsActive,
			CreatedAt:   row.CreatedAt,
		})
	}
	return out, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullStringPtr(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func nullInt(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(expense.DateLayout)
}

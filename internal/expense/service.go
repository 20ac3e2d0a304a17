package expense

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/core/events"
)

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service owns validation and the lifecycle guard. The JSON API, the pages and the assistant tools all go through it.
type Service struct {
	repo            Repository
	policy          Policy
	publisher       EventPublisher
	defaultCurrency string
	logger          *slog.Logger
}

type ServiceOption func(*Service)

func WithPolicy(p Policy) ServiceOption {
	return func(s *Service) { s.policy = p }
}

func WithPublisher(p EventPublisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

func WithDefaultCurrency(currency string) ServiceOption {
	return func(s *Service) { s.defaultCurrency = currency }
}

func NewService(repo Repository, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:            repo,
		logger:          logger,
		defaultCurrency: "GBP",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) DefaultCurrency() string {
	return s.defaultCurrency
}

func (s *Service) Policy() Policy {
	return s.policy
}

// ----------------- READS -----------------

func (s *Service) ListExpenses(ctx context.Context) ([]*Expense, error) {
	expenses, err := s.repo.GetExpenses(ctx)
	if err != nil {
		return nil, s.readError("failed to list expenses", err)
	}
	return expenses, nil
}

func (s *Service) GetExpense(ctx context.Context, id int64) (*Expense, error) {
	exp, err := s.repo.GetExpenseByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, errors.ErrExpenseNotFound) {
			return nil, errors.ErrExpenseNotFound
		}
		return nil, s.readError("failed to get expense", err, "expense_id", id)
	}
	if exp == nil {
		return nil, errors.ErrExpenseNotFound
	}
	return exp, nil
}

func (s *Service) ListByStatus(ctx context.Context, status string) ([]*Expense, error) {
	expenses, err := s.repo.GetExpensesByStatus(ctx, status)
	if err != nil {
		return nil, s.readError("failed to list expenses by status", err, "status", status)
	}
	return expenses, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*Expense, error) {
	expenses, err := s.repo.GetExpensesByUserID(ctx, userID)
	if err != nil {
		return nil, s.readError("failed to list expenses by user", err, "user_id", userID)
	}
	return expenses, nil
}

func (s *Service) ListPending(ctx context.Context) ([]*Expense, error) {
	expenses, err := s.repo.GetPendingExpenses(ctx)
	if err != nil {
		return nil, s.readError("failed to list pending expenses", err)
	}
	return expenses, nil
}

// Filter with no criteria is the same as ListExpenses.
func (s *Service) Filter(ctx context.Context, filter Filter) ([]*Expense, error) {
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, errors.NewValidationFieldError("dateFrom", "dateFrom must not be after dateTo", errors.ErrCodeInvalidDate)
	}
	if filter.IsEmpty() {
		return s.ListExpenses(ctx)
	}
	expenses, err := s.repo.FilterExpenses(ctx, filter)
	if err != nil {
		return nil, s.readError("failed to filter expenses", err)
	}
	return expenses, nil
}

func (s *Service) Categories(ctx context.Context) ([]*Category, error) {
	categories, err := s.repo.GetCategories(ctx)
	if err != nil {
		return nil, s.readError("failed to get categories", err)
	}
	return categories, nil
}

func (s *Service) Statuses(ctx context.Context) ([]*ExpenseStatus, error) {
	statuses, err := s.repo.GetStatuses(ctx)
	if err != nil {
		return nil, s.readError("failed to get statuses", err)
	}
	return statuses, nil
}

func (s *Service) Users(ctx context.Context) ([]*User, error) {
	users, err := s.repo.GetUsers(ctx)
	if err != nil {
		return nil, s.readError("failed to get users", err)
	}
	return users, nil
}

// ----------------- MUTATIONS -----------------

func (s *Service) Create(ctx context.Context, in NewExpense) (int64, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Currency == "" {
		in.Currency = s.defaultCurrency
	}
	status, appErr := CreationStatus(in.StatusID)
	if appErr != nil {
		return 0, appErr
	}
	in.StatusID = status.ID()
	if appErr := ValidateNewExpense(in); appErr != nil {
		return 0, appErr
	}
	if err := s.checkOwner(ctx, in.UserID); err != nil {
		return 0, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return 0, err
	}

	id, err := s.repo.CreateExpense(ctx, in)
	if err != nil {
		return 0, s.writeError("failed to create expense", err, "user_id", in.UserID)
	}

	s.logger.Info("expense created", "expense_id", id, "user_id", in.UserID, "amount_minor", in.AmountMinor, "status", status)
	s.publish(ctx, events.NewExpenseEvent(events.EventTypeExpenseCreated, id, string(status), 0))
	return id, nil
}

func (s *Service) Update(ctx context.Context, id int64, in ExpenseUpdate) error {
	in.Description = strings.TrimSpace(in.Description)
	if appErr := ValidateUpdate(in); appErr != nil {
		return appErr
	}
	requested, ok := StatusFromID(in.StatusID)
	if !ok {
		return errors.NewValidationFieldError("statusId", "unknown status", errors.ErrCodeInvalidStatus)
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return err
	}

	current, err := s.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	next, err := s.policy.ResolveUpdate(current.Status(), requested)
	if err != nil {
		return s.transitionError(err, id)
	}
	in.StatusID = next.ID()

	rows, err := s.repo.UpdateExpense(ctx, id, in)
	if err != nil {
		return s.writeError("failed to update expense", err, "expense_id", id)
	}
	if rows == 0 {
		return errors.ErrExpenseNotFound
	}

	s.publish(ctx, events.NewExpenseEvent(events.EventTypeExpenseUpdated, id, string(next), 0))
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	rows, err := s.repo.DeleteExpense(ctx, id)
	if err != nil {
		return s.writeError("failed to delete expense", err, "expense_id", id)
	}
	if rows == 0 {
		return errors.ErrExpenseNotFound
	}

	s.publish(ctx, events.NewExpenseEvent(events.EventTypeExpenseDeleted, id, "", 0))
	return nil
}

func (s *Service) Submit(ctx context.Context, id int64) error {
	next, err := s.guard(ctx, id, ActionSubmit)
	if err != nil {
		return err
	}

	rows, err := s.repo.SubmitExpense(ctx, id)
	if err != nil {
		return s.writeError("failed to submit expense", err, "expense_id", id)
	}
	if rows == 0 {
		return errors.ErrExpenseNotFound
	}

	s.publish(ctx, events.NewExpenseEvent(events.EventTypeExpenseSubmitted, id, string(next), 0))
	return nil
}

func (s *Service) Approve(ctx context.Context, id, reviewerID int64) error {
	if appErr := ValidateReviewer(reviewerID); appErr != nil {
		return appErr
	}
	if err := s.checkReviewer(ctx, reviewerID); err != nil {
		return err
	}
	next, err := s.guard(ctx, id, ActionApprove)
	if err != nil {
		return err
	}

	rows, err := s.repo.ApproveExpense(ctx, id, reviewerID)
	if err != nil {
		return s.writeError("failed to approve expense", err, "expense_id", id, "reviewer_id", reviewerID)
	}
	if rows == 0 {
		return errors.ErrExpenseNotFound
	}

	s.publish(ctx, events.NewExpenseEvent(events.EventTypeExpenseApproved, id, string(next), reviewerID))
	return nil
}

func (s *Service) Reject(ctx context.Context, id, reviewerID int64) error {
	if appErr := ValidateReviewer(reviewerID); appErr != nil {
		return appErr
	}
	if err := s.checkReviewer(ctx, reviewerID); err != nil {
		return err
	}
	next, err := s.guard(ctx, id, ActionReject)
	if err != nil {
		return err
	}

	rows, err := s.repo.RejectExpense(ctx, id, reviewerID)
	if err != nil {
		return s.writeError("failed to reject expense", err, "expense_id", id, "reviewer_id", reviewerID)
	}
	if rows == 0 {
		return errors.ErrExpenseNotFound
	}

	s.publish(ctx, events.NewExpenseEvent(events.EventTypeExpenseRejected, id, string(next), reviewerID))
	return nil
}

// guard loads the expense and checks the action against the lifecycle.
func (s *Service) guard(ctx context.Context, id int64, action Action) (Status, error) {
	current, err := s.GetExpense(ctx, id)
	if err != nil {
		return "", err
	}
	next, err := s.policy.Transition(current.Status(), action)
	if err != nil {
		return "", s.transitionError(err, id)
	}
	return next, nil
}

func (s *Service) transitionError(err error, id int64) error {
	var terr *TransitionError
	if stderrors.As(err, &terr) {
		s.logger.Warn("rejected status transition", "expense_id", id, "from", terr.From, "action", terr.Action)
		return terr.AppError()
	}
	return err
}

func (s *Service) readError(msg string, err error, fields ...any) error {
	s.logger.Error(msg, append([]any{"error", err}, fields...)...)
	if appErr, ok := errors.IsAppError(err); ok {
		return appErr
	}
	return errors.NewInternalError(msg, err)
}

// writeError keeps store-unavailable visible and hides every other cause behind a 500.
func (s *Service) writeError(msg string, err error, fields ...any) error {
	s.logger.Error(msg, append([]any{"error", err}, fields...)...)
	if stderrors.Is(err, errors.ErrStoreUnavailable) {
		return errors.ErrStoreUnavailable.WithCause(err)
	}
	if stderrors.Is(err, errors.ErrExpenseNotFound) {
		return errors.ErrExpenseNotFound
	}
	return errors.NewInternalError(msg, err)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

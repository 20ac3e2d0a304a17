package web_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	apperrors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/expense"
	"github.com/frahmantamala/expense-assistant/internal/session"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type reviewCall struct {
	id, reviewerID int64
	outcome        string
}

// fakeExpenseService keeps expenses in memory and lets tests inject failures.
type fakeExpenseService struct {
	expenses map[int64]*expense.Expense
	nextID   int64
	created  []expense.NewExpense
	updated  []expense.ExpenseUpdate
	deleted  []int64
	reviews  []reviewCall
	filters  []expense.Filter
	readErr  error
	writeErr error
}

func newFakeExpenseService() *fakeExpenseService {
	return &fakeExpenseService{expenses: map[int64]*expense.Expense{}, nextID: 1}
}

func (f *fakeExpenseService) add(status expense.Status, amountMinor int64, description string) *expense.Expense {
	submitted := time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC)
	e := &expense.Expense{
		ID:           f.nextID,
		UserID:       1,
		UserName:     "Alice Example",
		CategoryID:   1,
		CategoryName: "Travel",
		StatusID:     status.ID(),
		StatusName:   string(status),
		AmountMinor:  amountMinor,
		Currency:     "GBP",
		ExpenseDate:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Description:  &description,
	}
	if status != expense.StatusDraft {
		e.SubmittedAt = &submitted
	}
	f.expenses[e.ID] = e
	f.nextID++
	return e
}

func (f *fakeExpenseService) all(keep func(*expense.Expense) bool) []*expense.Expense {
	out := []*expense.Expense{}
	for _, e := range f.expenses {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeExpenseService) ListExpenses(ctx context.Context) ([]*expense.Expense, error) {
	return f.Filter(ctx, expense.Filter{})
}

func (f *fakeExpenseService) GetExpense(ctx context.Context, id int64) (*expense.Expense, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	e, ok := f.expenses[id]
	if !ok {
		return nil, apperrors.ErrExpenseNotFound
	}
	return e, nil
}

func (f *fakeExpenseService) ListPending(ctx context.Context) ([]*expense.Expense, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.all(func(e *expense.Expense) bool { return e.Status() == expense.StatusSubmitted }), nil
}

func (f *fakeExpenseService) Filter(ctx context.Context, filter expense.Filter) ([]*expense.Expense, error) {
	f.filters = append(f.filters, filter)
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.all(filter.Matches), nil
}

func (f *fakeExpenseService) Statuses(ctx context.Context) ([]*expense.ExpenseStatus, error) {
	out := make([]*expense.ExpenseStatus, 0, len(expense.AllStatuses))
	for _, s := range expense.AllStatuses {
		out = append(out, &expense.ExpenseStatus{ID: s.ID(), Name: string(s)})
	}
	return out, nil
}

func (f *fakeExpenseService) Create(ctx context.Context, in expense.NewExpense) (int64, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.created = append(f.created, in)
	e := f.add(expense.StatusDraft, in.AmountMinor, in.Description)
	return e.ID, nil
}

func (f *fakeExpenseService) Update(ctx context.Context, id int64, in expense.ExpenseUpdate) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	if _, ok := f.expenses[id]; !ok {
		return apperrors.ErrExpenseNotFound
	}
	f.updated = append(f.updated, in)
	return nil
}

func (f *fakeExpenseService) Delete(ctx context.Context, id int64) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	if _, ok := f.expenses[id]; !ok {
		return apperrors.ErrExpenseNotFound
	}
	delete(f.expenses, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeExpenseService) review(id, reviewerID int64, outcome string, action expense.Action) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	e, ok := f.expenses[id]
	if !ok {
		return apperrors.ErrExpenseNotFound
	}
	next, err := expense.Transition(e.Status(), action)
	if err != nil {
		return err.(*expense.TransitionError).AppError()
	}
	e.StatusID, e.StatusName = next.ID(), string(next)
	f.reviews = append(f.reviews, reviewCall{id: id, reviewerID: reviewerID, outcome: outcome})
	return nil
}

func (f *fakeExpenseService) Approve(ctx context.Context, id, reviewerID int64) error {
	return f.review(id, reviewerID, "approved", expense.ActionApprove)
}

func (f *fakeExpenseService) Reject(ctx context.Context, id, reviewerID int64) error {
	return f.review(id, reviewerID, "rejected", expense.ActionReject)
}

func (f *fakeExpenseService) DefaultCurrency() string {
	return "GBP"
}

func (f *fakeExpenseService) Policy() expense.Policy {
	return expense.Policy{}
}

type fakeCategoryService struct{}

func (fakeCategoryService) GetActiveCategories(ctx context.Context) ([]*expense.Category, error) {
	return []*expense.Category{
		{ID: 1, Name: "Travel", IsActive: true},
		{ID: 2, Name: "Meals", IsActive: true},
	}, nil
}

type fakeUserService struct{}

func (fakeUserService) GetUsers(ctx context.Context) ([]*expense.User, error) {
	return []*expense.User{
		{ID: 1, Name: "Alice Example", RoleName: "Employee", IsActive: true},
		{ID: 2, Name: "Morgan Manager", RoleName: "Manager", IsActive: true},
	}, nil
}

func (fakeUserService) GetReviewers(ctx context.Context) ([]*expense.User, error) {
	return []*expense.User{{ID: 2, Name: "Morgan Manager", RoleName: "Manager", IsActive: true}}, nil
}

// fakeReplier echoes messages into an in-memory transcript.
type fakeReplier struct {
	turns map[string][]session.Turn
}

func newFakeReplier() *fakeReplier {
	return &fakeReplier{turns: map[string][]session.Turn{}}
}

func (f *fakeReplier) Reply(ctx context.Context, sessionID, message string) string {
	reply := "You said: " + message
	f.turns[sessionID] = append(f.turns[sessionID],
		session.Turn{Content: message, IsUser: true},
		session.Turn{Content: reply},
	)
	return reply
}

func (f *fakeReplier) History(ctx context.Context, sessionID string) ([]session.Turn, error) {
	return f.turns[sessionID], nil
}

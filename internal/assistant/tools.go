package assistant

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/expense"
	"github.com/frahmantamala/expense-assistant/internal/metrics"
)

const (
	ToolGetExpenses    = "get_expenses"
	ToolCreateExpense  = "create_expense"
	ToolApproveExpense = "approve_expense"
)

// ExpenseService is the slice of expense.Service the tools need.
type ExpenseService interface {
	Filter(ctx context.Context, filter expense.Filter) ([]*expense.Expense, error)
	Create(ctx context.Context, in expense.NewExpense) (int64, error)
	Approve(ctx context.Context, id, reviewerID int64) error
	DefaultCurrency() string
}

// unknownToolLabel keeps model-supplied names out of metric labels.
const unknownToolLabel = "unknown"

var toolDefinitions = []Tool{
	{
		Type: "function",
		Function: FunctionDef{
			Name:        ToolGetExpenses,
			Description: "Get all expenses or filter them by criteria",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"status": {"type": "string", "description": "Filter by status: Draft, Submitted, Approved, Rejected"},
					"category": {"type": "string", "description": "Filter by category name"},
					"userId": {"type": "integer", "description": "Filter by user ID"}
				}
			}`),
		},
	},
	{
		Type: "function",
		Function: FunctionDef{
			Name:        ToolCreateExpense,
			Description: "Create a new expense in Draft status",
			Parameters: json.RawMessage(`{
				"type": "object",
				"required": ["userId", "categoryId", "amount", "expenseDate", "description"],
				"properties": {
					"userId": {"type": "integer", "description": "The user ID creating the expense"},
					"categoryId": {"type": "integer", "description": "Category ID (1=Travel, 2=Meals, 3=Supplies, 4=Accommodation, 5=Other)"},
					"amount": {"type": "number", "description": "Amount in pounds with at most two decimals (e.g., 25.40)"},
					"expenseDate": {"type": "string", "description": "Date of expense in YYYY-MM-DD format"},
					"description": {"type": "string", "description": "Description of the expense"}
				}
			}`),
		},
	},
	{
		Type: "function",
		Function: FunctionDef{
			Name:        ToolApproveExpense,
			Description: "Approve a submitted expense",
			Parameters: json.RawMessage(`{
				"type": "object",
				"required": ["expenseId", "reviewerId"],
				"properties": {
					"expenseId": {"type": "integer", "description": "The expense ID to approve"},
					"reviewerId": {"type": "integer", "description": "The manager's user ID approving the expense"}
				}
			}`),
		},
	},
}

// Tools returns the declared tool schemas.
func Tools() []Tool {
	out := make([]Tool, len(toolDefinitions))
	copy(out, toolDefinitions)
	return out
}

// Toolbox executes tool calls against the shared expense service.
type Toolbox struct {
	service ExpenseService
	logger  *slog.Logger
}

func NewToolbox(service ExpenseService, logger *slog.Logger) *Toolbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toolbox{service: service, logger: logger}
}

type expenseSummary struct {
	ExpenseID    int64  `json:"expenseId"`
	UserName     string `json:"userName"`
	CategoryName string `json:"categoryName"`
	StatusName   string `json:"statusName"`
	Amount       string `json:"amount"`
	ExpenseDate  string `json:"expenseDate"`
	Description  string `json:"description"`
}

type createdResult struct {
	ExpenseID int64  `json:"expenseId"`
	Message   string `json:"message"`
}

type messageResult struct {
	Message string `json:"message"`
}

type errorResult struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Execute runs one tool call and returns its JSON result. Failures are
// reported to the model as {"error": ...} results, never as Go errors.
func (t *Toolbox) Execute(ctx context.Context, call ToolCall) string {
	name := call.Function.Name
	t.logger.Info("executing tool", "tool", name, "tool_call_id", call.ID)

	var (
		result interface{}
		err    error
	)
	args := call.Function.Arguments
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}

	switch {
	case !gjson.Valid(args):
		err = errors.NewValidationError("tool arguments are not valid JSON", errors.ErrCodeRequestBodyInvalid)
	case name == ToolGetExpenses:
		result, err = t.getExpenses(ctx, gjson.Parse(args))
	case name == ToolCreateExpense:
		result, err = t.createExpense(ctx, gjson.Parse(args))
	case name == ToolApproveExpense:
		result, err = t.approveExpense(ctx, gjson.Parse(args))
	default:
		t.logger.Warn("model requested an unknown tool", "tool", name)
		metrics.RecordToolCall(unknownToolLabel, "unknown")
		return encode(errorResult{Error: "Unknown function"})
	}

	if err != nil {
		t.logger.Warn("tool call failed", "tool", name, "error", err)
		metrics.RecordToolCall(name, "error")
		return encode(toolError(err))
	}
	metrics.RecordToolCall(name, "ok")
	return encode(result)
}

func (t *Toolbox) getExpenses(ctx context.Context, args gjson.Result) (interface{}, error) {
	filter := expense.Filter{
		Status:   args.Get("status").String(),
		Category: args.Get("category").String(),
	}
	if status, ok := expense.ParseStatus(filter.Status); ok {
		filter.Status = string(status)
	}
	if v := args.Get("userId"); v.Exists() && v.Type != gjson.Null {
		id := v.Int()
		filter.UserID = &id
	}

	expenses, err := t.service.Filter(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]expenseSummary, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, expenseSummary{
			ExpenseID:    e.ID,
			UserName:     e.UserName,
			CategoryName: e.CategoryName,
			StatusName:   e.StatusName,
			Amount:       e.FormattedAmount(),
			ExpenseDate:  e.ExpenseDate.Format(expense.DateLayout),
			Description:  e.DescriptionText(),
		})
	}
	return out, nil
}

func (t *Toolbox) createExpense(ctx context.Context, args gjson.Result) (interface{}, error) {
	amount, appErr := parseToolAmount(args.Get("amount"))
	if appErr != nil {
		return nil, appErr
	}
	date, appErr := expense.ParseDate("expenseDate", args.Get("expenseDate").String())
	if appErr != nil {
		return nil, appErr
	}

	id, err := t.service.Create(ctx, expense.NewExpense{
		UserID:      args.Get("userId").Int(),
		CategoryID:  args.Get("categoryId").Int(),
		StatusID:    expense.StatusDraft.ID(),
		AmountMinor: amount,
		Currency:    t.service.DefaultCurrency(),
		ExpenseDate: date,
		Description: args.Get("description").String(),
	})
	if err != nil {
		return nil, err
	}
	return createdResult{ExpenseID: id, Message: "Expense created successfully"}, nil
}

// parseToolAmount reads the raw JSON number so 25.40 converts without float rounding.
func parseToolAmount(v gjson.Result) (int64, *errors.AppError) {
	var raw string
	switch v.Type {
	case gjson.Number:
		raw = v.Raw
	case gjson.String:
		raw = v.Str
	default:
		return 0, errors.NewValidationFieldError("amount", "Amount is required", errors.ErrCodeInvalidAmount)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, errors.NewValidationFieldError("amount", "Amount must be a number", errors.ErrCodeInvalidAmount)
	}
	return expense.AmountFromDecimal("amount", d)
}

func (t *Toolbox) approveExpense(ctx context.Context, args gjson.Result) (interface{}, error) {
	if err := t.service.Approve(ctx, args.Get("expenseId").Int(), args.Get("reviewerId").Int()); err != nil {
		return nil, err
	}
	return messageResult{Message: "Expense approved successfully"}, nil
}

// toolError keeps client-facing messages and hides internal causes.
func toolError(err error) errorResult {
	appErr, ok := errors.IsAppError(err)
	if !ok || (appErr.StatusCode >= 500 && !stderrors.Is(err, errors.ErrStoreUnavailable)) {
		return errorResult{Error: "The operation failed. Please try again later."}
	}
	res := errorResult{Error: appErr.GetDetailedMessage()}
	if fields := appErr.FieldErrors(); len(fields) > 0 {
		res.Fields = fields
	}
	return res
}

func encode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(b)
}

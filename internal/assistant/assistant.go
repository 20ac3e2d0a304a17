package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/expense-assistant/internal/metrics"
	"github.com/frahmantamala/expense-assistant/internal/session"
)

const (
	ApologyMessage   = "I'm sorry, I encountered an error processing your request. Please try again."
	ExhaustedMessage = "I'm sorry, I couldn't finish that request. Please try rephrasing it or breaking it into smaller steps."

	DefaultMaxToolRounds = 5
)

const systemPrompt = `You are a helpful assistant for an Expense Management System. You can help users with:
- Getting information about expenses
- Filtering expenses by status, category or user
- Creating new expenses
- Approving submitted expenses

When users ask about expenses, use the available functions to retrieve or modify data.
Amounts are in pounds unless the user says otherwise. Today's date is %s.
Always be concise and professional in your responses.`

// Assistant runs one chat turn: history in, bounded tool loop, history out.
type Assistant struct {
	client    ChatClient
	tools     *Toolbox
	store     session.Store
	maxRounds int
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Assistant)

func WithMaxToolRounds(n int) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Assistant) { a.now = now }
}

func New(client ChatClient, tools *Toolbox, store session.Store, logger *slog.Logger, opts ...Option) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Assistant{
		client:    client,
		tools:     tools,
		store:     store,
		maxRounds: DefaultMaxToolRounds,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Reply answers message in the context of the session's history. It never
// fails: errors become ApologyMessage and the history is saved either way.
func (a *Assistant) Reply(ctx context.Context, sessionID, message string) string {
	history, err := a.store.Load(ctx, sessionID)
	if err != nil {
		a.logger.Error("failed to load chat history", "session_id", sessionID, "error", err)
		history = []session.Turn{}
	}

	reply, outcome, err := a.complete(ctx, history, message)
	if err != nil {
		a.logger.Error("chat turn failed", "session_id", sessionID, "error", err)
		reply = ApologyMessage
	}
	metrics.RecordChatTurn(outcome)

	history = append(history,
		session.Turn{Content: message, IsUser: true},
		session.Turn{Content: reply, IsUser: false},
	)
	if err := a.store.Save(ctx, sessionID, history); err != nil {
		a.logger.Error("failed to save chat history", "session_id", sessionID, "error", err)
	}
	return reply
}

func (a *Assistant) History(ctx context.Context, sessionID string) ([]session.Turn, error) {
	return a.store.Load(ctx, sessionID)
}

func (a *Assistant) complete(ctx context.Context, history []session.Turn, message string) (string, string, error) {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: fmt.Sprintf(systemPrompt, a.now().Format("2006-01-02"))})
	for _, turn := range history {
		role := RoleAssistant
		if turn.IsUser {
			role = RoleUser
		}
		messages = append(messages, Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, Message{Role: RoleUser, Content: message})

	tools := Tools()
	for round := 0; ; round++ {
		resp, err := a.client.Complete(ctx, messages, tools)
		if err != nil {
			return "", "error", err
		}
		if len(resp.ToolCalls) == 0 {
			if strings.TrimSpace(resp.Content) == "" {
				return "", "error", fmt.Errorf("completion returned no content")
			}
			return resp.Content, "answered", nil
		}
		if round >= a.maxRounds {
			a.logger.Warn("tool rounds exhausted", "max_rounds", a.maxRounds)
			return ExhaustedMessage, "exhausted", nil
		}

		messages = append(messages, Message{Role: RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
		for _, call := range resp.ToolCalls {
			messages = append(messages, Message{
				Role:       RoleTool,
				ToolCallID: call.ID,
				Content:    a.tools.Execute(ctx, call),
			})
		}
	}
}

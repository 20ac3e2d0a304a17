package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/ulule/limiter/v3"

	"github.com/frahmantamala/expense-assistant/internal/assistant"
	"github.com/frahmantamala/expense-assistant/internal/category"
	"github.com/frahmantamala/expense-assistant/internal/expense"
	"github.com/frahmantamala/expense-assistant/internal/metrics"
	"github.com/frahmantamala/expense-assistant/internal/session"
	"github.com/frahmantamala/expense-assistant/internal/transport/middleware"
	"github.com/frahmantamala/expense-assistant/internal/transport/swagger"
	"github.com/frahmantamala/expense-assistant/internal/user"
	"github.com/frahmantamala/expense-assistant/internal/web"
)

// Handlers groups the HTTP surfaces. A nil handler leaves its routes unmounted.
type Handlers struct {
	Expense   *expense.Handler
	Category  *category.Handler
	User      *user.Handler
	Assistant *assistant.Handler
	Web       *web.Handler
	Health    *HealthHandler
}

type Options struct {
	AllowedOrigins string
	OpenAPIPath    string
	MetricsPath    string
	Sessions       *session.Manager
	ChatLimiter    *limiter.Limiter
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options, logger *slog.Logger) {
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(metrics.InstrumentHandler)

	if opts.MetricsPath != "" {
		router.Handle(opts.MetricsPath, metrics.Handler())
	}
	if opts.OpenAPIPath != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, opts.OpenAPIPath)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}

	var chatLimits []func(http.Handler) http.Handler
	if opts.ChatLimiter != nil {
		chatLimits = append(chatLimits, middleware.RateLimit(opts.ChatLimiter, logger))
	}

	router.Route("/api", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Expense != nil {
			r.Route("/expenses", func(er chi.Router) {
				er.Get("/", h.Expense.GetExpenses)
				er.Post("/", h.Expense.CreateExpense)
				er.Get("/filter", h.Expense.FilterExpenses)
				er.Get("/pending", h.Expense.GetPendingExpenses)
				er.Get("/status/{name}", h.Expense.GetExpensesByStatus)
				er.Get("/user/{id}", h.Expense.GetExpensesByUser)
				er.Get("/{id}", h.Expense.GetExpense)
				er.Put("/{id}", h.Expense.UpdateExpense)
				er.Delete("/{id}", h.Expense.DeleteExpense)
				er.Post("/{id}/submit", h.Expense.SubmitExpense)
				er.Post("/{id}/approve", h.Expense.ApproveExpense)
				er.Post("/{id}/reject", h.Expense.RejectExpense)
				er.Get("/statuses", h.Expense.GetStatuses)
				if h.Category != nil {
					er.Get("/categories", h.Category.GetCategories)
				}
				if h.User != nil {
					er.Get("/users", h.User.GetUsers)
				}
			})
			r.Get("/statuses", h.Expense.GetStatuses)
		}

		if h.Category != nil {
			r.Get("/categories", h.Category.GetCategories)
		}

		if h.User != nil {
			r.Get("/users", h.User.GetUsers)
		}

		if h.Assistant != nil {
			r.Group(func(cr chi.Router) {
				if opts.Sessions != nil {
					cr.Use(opts.Sessions.Middleware)
				}
				cr.With(chatLimits...).Post("/chat", h.Assistant.Chat)
				cr.Get("/chat/history", h.Assistant.GetHistory)
			})
		}
	})

	if h.Web != nil {
		router.Group(func(pr chi.Router) {
			if opts.Sessions != nil {
				pr.Use(opts.Sessions.Middleware)
			}
			h.Web.Routes(pr, chatLimits...)
		})
	}
}
